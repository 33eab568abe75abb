package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/service"
	"refine-ai-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAuth = AuthConfig{Secret: "secret", Issuer: "refine-test"}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func identityEngine() *gin.Engine {
	e := gin.New()
	e.Use(OptionalAuth(testAuth))
	e.GET("/whoami", func(c *gin.Context) {
		id, ok := service.IdentityFromContext(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.UserID+"|"+GetUserIDFromGin(c))
	})
	e.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return e
}

func TestOptionalAuth(t *testing.T) {
	e := identityEngine()
	jwt := utils.NewJWTManager(testAuth.Secret, testAuth.Issuer)

	w := serve(e, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	access, err := jwt.GenerateToken("u1", "u1@example.com", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer "+access)
	w = serve(e, req)
	assert.Equal(t, "u1|u1", w.Body.String())

	cases := map[string]string{
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer abc.def.ghi",
	}
	refresh, err := jwt.GenerateToken("u1", "u1@example.com", utils.TokenTypeRefresh, time.Minute)
	require.NoError(t, err)
	cases["refresh token"] = "Bearer " + refresh
	other, err := utils.NewJWTManager("other-secret", testAuth.Issuer).GenerateToken("u1", "", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	cases["foreign signature"] = "Bearer " + other

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", header)
			w := serve(e, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error_code"`)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	e := identityEngine()
	w := serve(e, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	access, err := utils.NewJWTManager(testAuth.Secret, testAuth.Issuer).GenerateToken("u1", "", utils.TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	assert.Equal(t, http.StatusNoContent, serve(e, req).Code)
}

type countingLimiter struct {
	keys  []string
	limit int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.keys = append(l.keys, key)
	l.limit = limit
	n := 0
	for _, k := range l.keys {
		if k == key {
			n++
		}
	}
	return n <= limit, nil
}

func keyOf(subject, endpoint string) string {
	return endpoint + "/" + subject
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{}
	e := gin.New()
	e.POST("/generate", RateLimit(config.RateLimitConfig{Enabled: true, Limit: 1, Window: 30 * time.Second}, limiter, "generate", keyOf), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/generate", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		return r
	}
	assert.Equal(t, http.StatusOK, serve(e, req()).Code)
	w := serve(e, req())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "generate/ip:10.0.0.1", limiter.keys[0])
}

func TestRateLimitDefaultsAndFailOpen(t *testing.T) {
	limiter := &countingLimiter{}
	e := gin.New()
	e.POST("/x", RateLimit(config.RateLimitConfig{Enabled: true}, limiter, "x", keyOf), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/x", nil)).Code)
	assert.Equal(t, 20, limiter.limit)

	limiter.err = errors.New("redis down")
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/x", nil)).Code)

	disabled := gin.New()
	disabled.POST("/x", RateLimit(config.RateLimitConfig{}, nil, "x", keyOf), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(disabled, httptest.NewRequest(http.MethodPost, "/x", nil)).Code)
}

func TestRecovery(t *testing.T) {
	e := gin.New()
	e.Use(Recovery())
	e.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	e.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late boom")
	})

	w := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code"`)

	w = serve(e, httptest.NewRequest(http.MethodGet, "/late", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestRequestID(t *testing.T) {
	e := gin.New()
	e.Use(RequestID())
	e.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(e, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w = serve(e, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}
