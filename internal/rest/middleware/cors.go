package middleware

import (
	"net/http"

	"github.com/adforge/adforge/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// CORSMiddleware handles CORS headers. An empty allow-list allows every origin.
func CORSMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	allowed := cfg.Server.AllowedOrigins

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && lo.Contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
