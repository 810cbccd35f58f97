package middleware

import (
	"github.com/adforge/adforge/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxRequestIDLength bounds caller supplied request ids before they reach logs
// and published events
const maxRequestIDLength = 128

// RequestIDMiddleware propagates the caller's X-Request-ID, or a fresh one, into
// the request context and echoes it in the response
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" || len(requestID) > maxRequestIDLength {
		requestID = uuid.NewString()
	}

	c.Request = c.Request.WithContext(types.SetRequestID(c.Request.Context(), requestID))
	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}
