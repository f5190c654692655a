package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserStore is the slice of Users the lifecycle needs: fetching the current
// record while minting a successor pair.
type UserStore interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*User, error)
}

// TokenLifecycle owns the authentication invariants: it issues token pairs,
// rotates and revokes refresh credentials, and answers who an access token
// belongs to.
type TokenLifecycle struct {
	signer   CredentialSigner
	tokens   RefreshTokens
	users    UserStore
	logger   Logger
	provider LoggerProvider
}

func NewTokenLifecycle(signer CredentialSigner, tokens RefreshTokens, users UserStore) *TokenLifecycle {
	provider, logger := ResolveLogger("accounts.lifecycle", nil, nil)
	return &TokenLifecycle{
		signer:   signer,
		tokens:   tokens,
		users:    users,
		logger:   logger,
		provider: provider,
	}
}

func (s *TokenLifecycle) WithLogger(logger Logger) *TokenLifecycle {
	s.provider, s.logger = ResolveLogger("accounts.lifecycle", s.provider, logger)
	return s
}

func (s *TokenLifecycle) WithLoggerProvider(provider LoggerProvider) *TokenLifecycle {
	s.provider, s.logger = ResolveLogger("accounts.lifecycle", provider, nil)
	return s
}

// IssuePair derives the identity claim from the user record, signs both
// kinds, and persists the refresh half in the user's slot.
func (s *TokenLifecycle) IssuePair(ctx context.Context, user *User) (*TokenPair, error) {
	if user == nil {
		return nil, errors.New("user record is required", errors.CategoryBadInput)
	}

	claims := NewIdentityClaims(user)

	access, err := s.signer.Issue(claims, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := s.signer.Issue(claims, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	if _, err := s.tokens.Upsert(ctx, user.ID, refresh); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Authenticate verifies an access token by signature and expiry alone, no
// store round-trip. An access token outlives logout until its own expiry.
func (s *TokenLifecycle) Authenticate(accessToken string) (*IdentityClaims, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.signer.Verify(accessToken, TokenKindAccess)
	if err != nil {
		s.logger.Debug("access token rejected: %v", err)
		return nil, err
	}

	return claims, nil
}

// Refresh exchanges a live refresh token for a new pair. The order matters:
// an empty token fails before any store access, the signature is checked
// before store membership, and the final compare-and-swap rotation makes
// the token single use even under concurrent requests.
func (s *TokenLifecycle) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *User, error) {
	if refreshToken == "" {
		return nil, nil, ErrMissingRefreshToken
	}

	claims, err := s.signer.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.tokens.FindByValue(ctx, refreshToken); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrRefreshTokenRevoked
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "refresh token lookup failed")
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, nil, ErrTokenMalformed
	}

	// The new pair is built from the current row, not the old token's
	// payload, so profile changes since issuance show up after a refresh.
	user, err := s.users.GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user during refresh")
	}

	next := NewIdentityClaims(user)

	access, err := s.signer.Issue(next, TokenKindAccess)
	if err != nil {
		return nil, nil, err
	}

	newRefresh, err := s.signer.Issue(next, TokenKindRefresh)
	if err != nil {
		return nil, nil, err
	}

	if err := s.tokens.Rotate(ctx, user.ID, refreshToken, newRefresh); err != nil {
		var rich *errors.Error
		if errors.As(err, &rich) && rich.TextCode == TextCodeRefreshRevoked {
			s.logger.Debug("refresh token lost rotation race: user=%s", user.ID)
			return nil, nil, ErrRefreshTokenRevoked
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
	}, user, nil
}

// Logout revokes a refresh token by value. Unknown or already-removed
// values return (nil, nil); logging out twice is not an error.
func (s *TokenLifecycle) Logout(ctx context.Context, refreshToken string) (*RefreshToken, error) {
	if refreshToken == "" {
		return nil, nil
	}

	record, err := s.tokens.DeleteByValue(ctx, refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}

	return record, nil
}
