package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized       = "accounts_unauthorized"
	TextCodeTokenExpired       = "accounts_token_expired"
	TextCodeTokenMalformed     = "accounts_token_malformed"
	TextCodeMissingRefresh     = "accounts_missing_refresh_token"
	TextCodeRefreshRevoked     = "accounts_refresh_token_revoked"
	TextCodeEmailExists        = "accounts_email_exists"
	TextCodeInvalidCredentials = "accounts_invalid_credentials"
	TextCodeUserNotFound       = "accounts_user_not_found"
)

// ErrUnauthorized is the catch-all authentication failure.
var ErrUnauthorized = errors.New("user is not authorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token's signature checks out but its
// expiry has passed.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for any verification failure other than
// expiry: bad signature, tampered payload, wrong token kind, garbage input.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMissingRefreshToken is returned when a refresh is attempted with an
// empty credential. No store access happens in that path.
var ErrMissingRefreshToken = errors.New("missing refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingRefresh).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenRevoked is returned when a refresh token verifies
// cryptographically but is no longer present in the store: it was rotated,
// logged out, or lost a concurrent rotation race.
var ErrRefreshTokenRevoked = errors.New("refresh token revoked", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrEmailAlreadyExists is returned when signup finds the email taken.
var ErrEmailAlreadyExists = errors.New("email already registered", errors.CategoryValidation).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// response does not reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid login or password", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrUserNotFound is returned for lookups, updates, and deletes against an
// unknown user id.
var ErrUserNotFound = errors.New("user not found", errors.CategoryValidation).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError reports whether err represents an expired token.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeTokenExpired
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError reports whether err represents an unverifiable token.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeTokenMalformed
	}

	return strings.Contains(err.Error(), "token is malformed")
}
