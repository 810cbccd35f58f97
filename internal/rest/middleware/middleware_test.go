package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware, CORSMiddleware(config.GetDefaultConfig()), ErrorHandler())
	r.GET("/t", handlers...)
	return r
}

func TestErrorHandler(t *testing.T) {
	r := newTestEngine(func(c *gin.Context) {
		_ = c.Error(ierr.NewError("balance too low").
			WithHint("Insufficient credits").
			Mark(ierr.ErrInsufficientFunds))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Insufficient credits"}`, w.Body.String())
}

func TestErrorHandlerKeepsWrittenResponse(t *testing.T) {
	r := newTestEngine(func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		_ = c.Error(ierr.NewError("late").Mark(ierr.ErrSystem))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	r := newTestEngine(func(c *gin.Context) {
		seen = types.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set(types.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", w.Header().Get(types.HeaderRequestID))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddlewareReplacesOversizedIDs(t *testing.T) {
	r := newTestEngine(func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set(types.HeaderRequestID, strings.Repeat("x", 500))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get(types.HeaderRequestID)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), maxRequestIDLength)
}
