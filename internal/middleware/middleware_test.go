package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/security"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTokens() *security.JWTManager {
	return security.NewJWTManager("mindfulpath-test", "secret", time.Hour)
}

func protectedEngine(tokens *security.JWTManager, role string) *gin.Engine {
	r := gin.New()
	r.GET("/open", OptionalAuth(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": ClaimsFrom(c) != nil})
	})
	r.GET("/private", Authenticate(tokens, nil), RequireRole(role, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": ClaimsFrom(c).Role})
	})
	return r
}

func doRequest(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	tokens := newTokens()
	r := protectedEngine(tokens, security.RoleAdmin)

	userToken, err := tokens.Sign(7, security.RoleUser)
	require.NoError(t, err)
	adminToken, err := tokens.Sign(1, security.RoleAdmin)
	require.NoError(t, err)

	rec := doRequest(r, "/private", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No token provided", body.Message)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/private", "garbage").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, "/private", userToken).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "/private", adminToken).Code)
}

func TestOptionalAuthIgnoresBadTokens(t *testing.T) {
	tokens := newTokens()
	r := protectedEngine(tokens, security.RoleUser)
	token, err := tokens.Sign(3, security.RoleUser)
	require.NoError(t, err)

	assert.JSONEq(t, `{"authenticated":false}`, doRequest(r, "/open", "").Body.String())
	assert.JSONEq(t, `{"authenticated":false}`, doRequest(r, "/open", "garbage").Body.String())
	assert.JSONEq(t, `{"authenticated":true}`, doRequest(r, "/open", token).Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"))

	clock = clock.Add(30 * time.Second)
	assert.True(t, limiter.Allow("1.1.1.1"))

	r := gin.New()
	r.Use(NewRateLimiter(1, time.Hour).Middleware(nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, doRequest(r, "/", "").Code)
	rec := doRequest(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests, please try again later"}`, rec.Body.String())
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	r := gin.New()
	r.GET("/fail", func(c *gin.Context) {
		WriteError(c, logger, assertError("database is on fire"))
	})
	r.GET("/invalid", func(c *gin.Context) {
		WriteError(c, logger, apperr.Field("email", "is required"))
	})

	rec := doRequest(r, "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.Len())

	rec = doRequest(r, "/invalid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"validation failed","errors":[{"field":"email","reason":"is required"}]}`, rec.Body.String())
}

func TestRequestLoggerWritesOneLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	doRequest(r, "/ping", "")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "HTTP request", entry.Message)
	assert.Equal(t, int64(http.StatusOK), entry.ContextMap()["status"])
}

type assertError string

func (e assertError) Error() string { return string(e) }
