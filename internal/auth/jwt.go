package auth

import (
	"context"
	"fmt"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/golang-jwt/jwt/v4"
)

// jwtAuth verifies Supabase access tokens locally with the project's JWT secret
type jwtAuth struct {
	secret []byte
}

func NewJWTAuth(cfg *config.Configuration) (Provider, error) {
	if cfg.Auth.Secret == "" {
		return nil, ierr.NewError("auth secret is required").
			WithHint("JWT auth is not configured").
			Mark(ierr.ErrValidation)
	}
	return &jwtAuth{
		secret: []byte(cfg.Auth.Secret),
	}, nil
}

func (a *jwtAuth) GetProvider() types.AuthProvider {
	return types.AuthProviderJWT
}

func (a *jwtAuth) ValidateToken(_ context.Context, token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, unauthorized(err, "token parse error")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, unauthorized(ierr.ErrUnauthorized, "invalid token claims")
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, unauthorized(ierr.ErrUnauthorized, "token missing user ID")
	}
	email, _ := claims["email"].(string)

	return &Claims{
		UserID: userID,
		Email:  email,
	}, nil
}
