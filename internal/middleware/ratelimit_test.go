package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, 3)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i)
	}

	// Burst exhausted
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterIsPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, 1)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest("GET", "/test", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(first, reqA)
	assert.Equal(t, http.StatusOK, first.Code)

	// Same client is throttled
	second := httptest.NewRecorder()
	router.ServeHTTP(second, reqA)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// A different client still passes
	third := httptest.NewRecorder()
	reqB := httptest.NewRequest("GET", "/test", nil)
	reqB.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(third, reqB)
	assert.Equal(t, http.StatusOK, third.Code)
}
