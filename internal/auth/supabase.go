package auth

import (
	"context"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/nedpals/supabase-go"
)

// supabaseAuth resolves tokens through the Supabase auth API, the way the
// dashboard itself looks up the signed in user
type supabaseAuth struct {
	client *supabase.Client
}

func NewSupabaseAuth(cfg *config.Configuration) (Provider, error) {
	if cfg.Auth.Supabase.BaseURL == "" || cfg.Auth.Supabase.ServiceKey == "" {
		return nil, ierr.NewError("supabase base_url and service_key are required").
			WithHint("Supabase auth is not configured").
			Mark(ierr.ErrValidation)
	}

	client := supabase.CreateClient(cfg.Auth.Supabase.BaseURL, cfg.Auth.Supabase.ServiceKey)
	if client == nil {
		return nil, ierr.NewError("failed to create supabase client").
			Mark(ierr.ErrSystem)
	}

	return &supabaseAuth{
		client: client,
	}, nil
}

func (s *supabaseAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderSupabase
}

func (s *supabaseAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, unauthorized(ierr.ErrUnauthorized, "empty token")
	}

	user, err := s.client.Auth.User(ctx, token)
	if err != nil {
		return nil, unauthorized(err, "supabase rejected token")
	}
	if user == nil || user.ID == "" {
		return nil, unauthorized(ierr.ErrUnauthorized, "supabase returned no user")
	}

	return &Claims{
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}
