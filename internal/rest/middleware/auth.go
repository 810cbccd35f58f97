package middleware

import (
	"strings"

	"github.com/adforge/adforge/internal/auth"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticateMiddleware resolves the bearer token of the Authorization header
// into the caller identity and stores it in the request context. Requests
// without a valid token are rejected with 401.
func AuthenticateMiddleware(authProvider auth.Provider, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(types.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, ierr.NewError("missing bearer token").Error())
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := authProvider.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Debugw("failed to validate token", "error", err)
			abortUnauthorized(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx = types.SetUserID(ctx, claims.UserID)
		if claims.Email != "" {
			ctx = types.SetEmail(ctx, claims.Email)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	_ = c.Error(ierr.WithError(err).
		WithHint("Unauthorized").
		Mark(ierr.ErrUnauthorized))
	c.Abort()
}
