package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenKind selects which signing profile a token is issued and verified
// under. A token issued under one kind never verifies under the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// SigningProfile pairs an HMAC secret with the lifetime applied to tokens
// of one kind.
type SigningProfile struct {
	Secret []byte
	TTL    time.Duration
}

// CredentialSigner issues and verifies signed identity tokens. It holds no
// state beyond its configuration; persistence is the store's business.
type CredentialSigner interface {
	Issue(claims *IdentityClaims, kind TokenKind) (string, error)
	Verify(tokenString string, kind TokenKind) (*IdentityClaims, error)
}

type credentialSigner struct {
	access   SigningProfile
	refresh  SigningProfile
	issuer   string
	audience jwt.ClaimStrings
	logger   Logger
}

// NewCredentialSigner builds an HS256 signer with independent access and
// refresh profiles.
func NewCredentialSigner(access, refresh SigningProfile, issuer string, audience []string, logger Logger) CredentialSigner {
	if logger == nil {
		logger = defLogger{}
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &credentialSigner{
		access:   access,
		refresh:  refresh,
		issuer:   issuer,
		audience: aud,
		logger:   logger,
	}
}

func (s *credentialSigner) profile(kind TokenKind) (SigningProfile, error) {
	switch kind {
	case TokenKindAccess:
		return s.access, nil
	case TokenKindRefresh:
		return s.refresh, nil
	}
	return SigningProfile{}, errors.New(
		fmt.Sprintf("unknown token kind: %q", kind),
		errors.CategoryBadInput,
	)
}

// Issue stamps the registered claims and signs the token. Each issued token
// gets a fresh jti, so two pairs minted for the same identity never collide
// byte for byte.
func (s *credentialSigner) Issue(claims *IdentityClaims, kind TokenKind) (string, error) {
	if claims == nil {
		return "", errors.New("claims are required", errors.CategoryBadInput)
	}

	profile, err := s.profile(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	stamped := *claims
	stamped.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   claims.UID,
		Audience:  s.audience,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(profile.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &stamped)

	signed, err := token.SignedString(profile.Secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify checks signature and expiry under the given kind. Expiry maps to
// ErrTokenExpired; every other failure collapses into ErrTokenMalformed.
func (s *credentialSigner) Verify(tokenString string, kind TokenKind) (*IdentityClaims, error) {
	profile, err := s.profile(kind)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return profile.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "token malformed").
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
