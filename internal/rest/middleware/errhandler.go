package middleware

import (
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached to the context as
// {"ok": false, "error": <hint>} with the status of its sentinel
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
	}
}
