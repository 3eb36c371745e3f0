package di

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/identity"
)

// AuthService wraps the bearer token authenticator. Authenticator is nil
// when authentication is not configured; routes then treat every request
// as anonymous.
type AuthService struct {
	Authenticator identity.Authenticator

	bearer *identity.BearerAuthenticator
}

// NewAuth builds the bearer authenticator from configuration.
func NewAuth(i do.Injector) (*AuthService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cfg := cfgSvc.Get()

	if !cfg.Auth.IsEnabled() {
		log.Warn().Msg("auth.jwt_secret not set, all requests are anonymous")
		return &AuthService{}, nil
	}

	bearer, err := identity.NewBearerAuthenticator(
		cfg.Auth.JWTSecret,
		cfg.Auth.GetTokenCacheSize(),
		cfg.Auth.GetTokenCacheTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	return &AuthService{Authenticator: bearer, bearer: bearer}, nil
}

// Shutdown implements do.Shutdowner, releasing the token verification cache.
func (a *AuthService) Shutdown() error {
	if a.bearer != nil {
		a.bearer.Close()
	}
	return nil
}
