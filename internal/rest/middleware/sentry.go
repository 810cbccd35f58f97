package middleware

import (
	"strings"
	"time"

	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware starts a Sentry transaction per request and reports panics
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the authenticated caller and
// the org or job the route addresses. It must run after AuthenticateMiddleware.
func SentryScopeMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Sentry.Enabled {
			c.Next()
			return
		}

		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			ctx := c.Request.Context()
			hub.Scope().SetUser(sentry.User{
				ID:    types.GetUserID(ctx),
				Email: types.GetEmail(ctx),
			})
			hub.Scope().SetTag("request_id", types.GetRequestID(ctx))
			if id := c.Param("id"); id != "" {
				hub.Scope().SetTag(routeResource(c.FullPath())+"_id", id)
			}
		}
		c.Next()
	}
}

func routeResource(route string) string {
	if strings.HasPrefix(route, "/api/jobs") {
		return "job"
	}
	return "org"
}
