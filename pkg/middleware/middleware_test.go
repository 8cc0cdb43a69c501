package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
	"github.com/yeisme/chunkvault/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ownerEngine(conf configs.AuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(conf))
	r.GET("/api/v1/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetOwner(c.Request.Context()))
	})
	r.GET("/api/v1/health/db", func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetOwner(c.Request.Context()))
	})

	return r
}

func TestAuthMiddlewareOwner(t *testing.T) {
	conf := configs.AuthConfig{Enabled: true, DevAllowQuery: true, SkipPaths: []string{"/api/v1/health"}}
	r := ownerEngine(conf)

	cases := []struct {
		name    string
		target  string
		headers map[string]string
		want    string
	}{
		{"oauth2 proxy header", "/api/v1/whoami", map[string]string{"X-Auth-Request-Email": "a@x.io", "X-User": "b@x.io"}, "a@x.io"},
		{"forwarded email", "/api/v1/whoami", map[string]string{"X-Forwarded-Email": "c@x.io"}, "c@x.io"},
		{"x-user", "/api/v1/whoami", map[string]string{"X-User": "d@x.io"}, "d@x.io"},
		{"query", "/api/v1/whoami?user=e@x.io", nil, "e@x.io"},
		{"dev fallback", "/api/v1/whoami", nil, middleware.DevOwner},
		{"skipped path", "/api/v1/health/db", map[string]string{"X-User": "d@x.io"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}

func TestAuthMiddlewareReleaseRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	r := ownerEngine(configs.AuthConfig{Enabled: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/whoami?user=x@x.io", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("X-Auth-Request-Email", "a@x.io")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestETagMiddleware(t *testing.T) {
	body := `{"success":true}`

	r := gin.New()
	r.Use(middleware.ETagMiddleware())
	r.GET("/status", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())

	etag := w.Header().Get("ETag")
	assert.Equal(t, middleware.WeakETag([]byte(body)), etag)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("If-None-Match", etag)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("If-None-Match", `W/"0000000000000000"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	assert.JSONEq(t, `{"success":false}`, w.Body.String())
}

func TestETagMatches(t *testing.T) {
	etag := `W/"abc"`

	assert.True(t, middleware.ETagMatches(`W/"abc"`, etag))
	assert.True(t, middleware.ETagMatches(`"abc"`, etag))
	assert.True(t, middleware.ETagMatches(`"x", W/"abc"`, etag))
	assert.True(t, middleware.ETagMatches(`*`, etag))
	assert.False(t, middleware.ETagMatches(``, etag))
	assert.False(t, middleware.ETagMatches(`"abd"`, etag))
}

func TestRateLimitPerOwner(t *testing.T) {
	r := gin.New()
	r.Use(
		middleware.AuthMiddleware(configs.AuthConfig{Enabled: true}),
		middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "owner"}),
	)
	r.GET("/api/v1/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-User", user)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	assert.Equal(t, http.StatusNoContent, call("bob"))
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.GinLoggerMiddleware())
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetRequestID(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(ctxPkg.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(ctxPkg.RequestIDHeader, "given-id")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Body.String())
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0

	r := gin.New()
	r.Use(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		Interval:          time.Minute,
		OpenTimeout:       time.Minute,
		MaxRequestsInHalf: 1,
	}))
	r.GET("/boom", func(c *gin.Context) {
		calls++
		c.Status(http.StatusInternalServerError)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{500, 500, 503}, codes)
	assert.Equal(t, 2, calls)
}
