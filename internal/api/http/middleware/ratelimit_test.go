package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/roomforge/roomforge-backend/internal/auth"
)

func rateLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(auth.CtxUserID, uid)
		}
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func ping(r *gin.Engine, user string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter(t *testing.T) {
	t.Run("rejects requests over the burst", func(t *testing.T) {
		r := rateLimitedRouter(NewRateLimiter(0.001, 2))

		assert.Equal(t, http.StatusOK, ping(r, "user-1"))
		assert.Equal(t, http.StatusOK, ping(r, "user-1"))
		assert.Equal(t, http.StatusTooManyRequests, ping(r, "user-1"))
	})

	t.Run("buckets are per user", func(t *testing.T) {
		r := rateLimitedRouter(NewRateLimiter(0.001, 1))

		assert.Equal(t, http.StatusOK, ping(r, "user-1"))
		assert.Equal(t, http.StatusTooManyRequests, ping(r, "user-1"))
		assert.Equal(t, http.StatusOK, ping(r, "user-2"))
	})
}
