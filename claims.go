package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read surface of a verified token's identity payload.
type AuthClaims interface {
	Subject() string
	UserID() string
	UserEmail() string
	UserName() string
	UserAge() int
	Expires() time.Time
	Issued() time.Time
}

// IdentityClaims is the claim set carried by both token kinds. Access and
// refresh tokens embed the same identity; only secret and TTL differ.
type IdentityClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Age   int    `json:"age,omitempty"`
}

var _ AuthClaims = (*IdentityClaims)(nil)

// NewIdentityClaims builds the claim payload from a user record. The
// password hash never makes it into a token.
func NewIdentityClaims(user *User) *IdentityClaims {
	if user == nil {
		return &IdentityClaims{}
	}
	return &IdentityClaims{
		UID:   user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Age:   user.Age,
	}
}

func (c *IdentityClaims) Subject() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UID
}

func (c *IdentityClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *IdentityClaims) UserEmail() string { return c.Email }

func (c *IdentityClaims) UserName() string { return c.Name }

func (c *IdentityClaims) UserAge() int { return c.Age }

func (c *IdentityClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func (c *IdentityClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// TokenPair is the product of one issuance: a short-lived access token and
// a long-lived refresh token carrying the same identity.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
