package auth

import (
	"context"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
)

// Claims is the caller identity resolved from a bearer token
type Claims struct {
	UserID string
	Email  string
}

// Provider verifies bearer tokens issued by the identity service
type Provider interface {
	GetProvider() types.AuthProvider
	// ValidateToken returns the identity of a valid token and an
	// ErrUnauthorized error otherwise
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

func NewProvider(cfg *config.Configuration) (Provider, error) {
	switch cfg.Auth.Provider {
	case types.AuthProviderSupabase:
		return NewSupabaseAuth(cfg)
	case types.AuthProviderJWT:
		return NewJWTAuth(cfg)
	default:
		return nil, ierr.NewErrorf("unknown auth provider %q", cfg.Auth.Provider).
			WithHint("Unsupported auth provider").
			Mark(ierr.ErrValidation)
	}
}

func unauthorized(err error, msg string) error {
	return ierr.WithError(err).
		WithMessage(msg).
		WithHint("Unauthorized").
		Mark(ierr.ErrUnauthorized)
}
