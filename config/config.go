// Package config holds the configuration container loaded by go-config in
// cmd/server. The accounts package itself only sees the getter interfaces.
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the root configuration container.
type BaseConfig struct {
	App         App         `json:"app" yaml:"app"`
	Auth        Auth        `json:"auth" yaml:"auth"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
}

func (c *BaseConfig) Validate() error {
	if c.Auth.AccessSigningKey == "" {
		return fmt.Errorf("auth.access_signing_key is required")
	}
	if c.Auth.RefreshSigningKey == "" {
		return fmt.Errorf("auth.refresh_signing_key is required")
	}
	if c.Auth.AccessSigningKey == c.Auth.RefreshSigningKey {
		return fmt.Errorf("auth.access_signing_key and auth.refresh_signing_key must differ")
	}
	return nil
}

func (c *BaseConfig) GetApp() App { return c.App }

func (c *BaseConfig) GetAuth() Auth { return c.Auth }

func (c *BaseConfig) GetPersistence() Persistence { return c.Persistence }

type App struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

func (a App) GetName() string {
	if a.Name == "" {
		return "accounts"
	}
	return a.Name
}

func (a App) GetAddress() string {
	if a.Address == "" {
		return ":3000"
	}
	return a.Address
}

// Auth configures token issuance and the bearer middleware. It satisfies
// the accounts.Config interface.
type Auth struct {
	AccessSigningKey     string   `json:"access_signing_key" yaml:"access_signing_key"`
	RefreshSigningKey    string   `json:"refresh_signing_key" yaml:"refresh_signing_key"`
	AccessTTLExpression  string   `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTTLExpression string   `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	Issuer               string   `json:"issuer" yaml:"issuer"`
	Audience             []string `json:"audience" yaml:"audience"`
	ContextKey           string   `json:"context_key" yaml:"context_key"`
	TokenLookup          string   `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme           string   `json:"auth_scheme" yaml:"auth_scheme"`
	RefreshCookieName    string   `json:"refresh_cookie_name" yaml:"refresh_cookie_name"`
}

func (a Auth) GetAccessSigningKey() string { return a.AccessSigningKey }

func (a Auth) GetRefreshSigningKey() string { return a.RefreshSigningKey }

func (a Auth) GetAccessTokenTTL() time.Duration {
	return parseDuration(a.AccessTTLExpression, time.Minute*30)
}

func (a Auth) GetRefreshTokenTTL() time.Duration {
	return parseDuration(a.RefreshTTLExpression, time.Hour*24*30)
}

func (a Auth) GetIssuer() string { return a.Issuer }

func (a Auth) GetAudience() []string { return a.Audience }

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization"
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetRefreshCookieName() string {
	if a.RefreshCookieName == "" {
		return "refreshToken"
	}
	return a.RefreshCookieName
}

type Persistence struct {
	Debug                 bool   `json:"debug" yaml:"debug"`
	Driver                string `json:"driver" yaml:"driver"`
	Server                string `json:"server" yaml:"server"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) GetDebug() bool { return p.Debug }

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

// GetServer returns the DSN.
func (p Persistence) GetServer() string {
	if p.Server == "" {
		return "file::memory:?cache=shared"
	}
	return p.Server
}

func (p Persistence) GetDSN() string { return p.GetServer() }

func (p Persistence) GetOtelIdentifier() string { return "" }

func (p Persistence) GetPingTimeout() time.Duration {
	return parseDuration(p.PingTimeoutExpression, time.Second*5)
}

func parseDuration(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", expr))
	}
	return dur
}
