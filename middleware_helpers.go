package accounts

import (
	"context"

	"github.com/goliatone/go-accounts/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// ValidationListener aliases the jwtware listener so consumers can use accounts helpers directly.
type ValidationListener = jwtware.ValidationListener

type lifecycleValidator struct {
	lifecycle *TokenLifecycle
}

func (v lifecycleValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.lifecycle.Authenticate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenValidatorAdapter exposes a TokenLifecycle as the middleware's validator.
func TokenValidatorAdapter(lifecycle *TokenLifecycle) jwtware.TokenValidator {
	return lifecycleValidator{lifecycle: lifecycle}
}

// ContextEnricherAdapter adapts jwtware.AuthClaims to accounts.AuthClaims and
// stores them in the standard context for downstream usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// ProtectedRoute builds the bearer token middleware guarding user routes.
func ProtectedRoute(lifecycle *TokenLifecycle, cfg Config, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:    errorHandler,
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AuthScheme:      cfg.GetAuthScheme(),
		TokenValidator:  TokenValidatorAdapter(lifecycle),
		ContextEnricher: ContextEnricherAdapter,
	})
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
