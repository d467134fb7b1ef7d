package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/policy"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/pkg/auth"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type evaluatorFunc func(context.Context, auth.Caller) (bool, error)

func (f evaluatorFunc) IsAdmin(ctx context.Context, c auth.Caller) (bool, error) {
	return f(ctx, c)
}

func newTokens() auth.JWTService {
	return auth.NewJWTService("test-secret", "care-booking", time.Hour)
}

func bearer(t *testing.T, tokens auth.JWTService, caller auth.Caller) string {
	t.Helper()
	token, err := tokens.GenerateToken(caller)
	require.NoError(t, err)
	return "Bearer " + token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.Response {
	t.Helper()
	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func serve(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func callerEcho(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"caller": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"caller": caller.ID})
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens()
	m := NewAuthMiddleware(tokens, policy.Any())
	r := gin.New()
	r.GET("/me", m.Authenticate(), callerEcho)

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization format"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid token"},
		{"valid", bearer(t, tokens, auth.Caller{ID: "auth0|kai"}), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/me", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				resp := decode(t, w)
				assert.Equal(t, "error", resp.Status)
				assert.Equal(t, string(apperrors.KindUnauthorized), resp.Code)
				assert.Equal(t, tt.msg, resp.Message)
			} else {
				assert.Contains(t, w.Body.String(), "auth0|kai")
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTokens()
	m := NewAuthMiddleware(tokens, policy.Any())
	r := gin.New()
	r.GET("/onboarding", m.OptionalAuth(), callerEcho)

	w := serve(r, http.MethodGet, "/onboarding", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"caller":""}`, w.Body.String())

	w = serve(r, http.MethodGet, "/onboarding", bearer(t, tokens, auth.Caller{ID: "auth0|kai"}))
	assert.JSONEq(t, `{"caller":"auth0|kai"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/onboarding", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTokens()
	admins := evaluatorFunc(func(_ context.Context, c auth.Caller) (bool, error) {
		switch c.ID {
		case "root":
			return true, nil
		case "flaky":
			return false, repository.ErrUnavailable
		case "broken":
			return false, errors.New("boom")
		}
		return false, nil
	})
	m := NewAuthMiddleware(tokens, admins)
	r := gin.New()
	r.GET("/admin", m.Authenticate(), m.RequireAdmin(), callerEcho)

	tests := []struct {
		caller string
		status int
		code   apperrors.Kind
	}{
		{"root", http.StatusOK, ""},
		{"patient", http.StatusForbidden, apperrors.KindForbidden},
		{"flaky", http.StatusServiceUnavailable, apperrors.KindPersistenceUnavailable},
		{"broken", http.StatusInternalServerError, apperrors.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.caller, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/admin", bearer(t, tokens, auth.Caller{ID: tt.caller}))
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, string(tt.code), decode(t, w).Code)
			}
		})
	}

	w := serve(r, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorHandlerEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/invalid", func(c *gin.Context) {
		_ = c.Error(apperrors.ValidationFailed("date", "time"))
	})
	r.GET("/opaque", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: password authentication failed"))
	})
	r.GET("/wrapped", func(c *gin.Context) {
		_ = c.Error(apperrors.WriteFailed("failed to create booking", errors.New("pq: secret detail")))
	})

	w := serve(r, http.MethodGet, "/invalid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, []string{"date", "time"}, resp.Fields)

	w = serve(r, http.MethodGet, "/opaque", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = serve(r, http.MethodGet, "/wrapped", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "persistence_write_failed", decode(t, w).Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", decode(t, w).Code)
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "bad id\nwith newline")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1}).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4321"
	other := httptest.NewRecorder()
	r.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"too long"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(TimeoutConfig{Duration: time.Second}))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
}
