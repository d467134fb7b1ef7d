package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/policy"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/internal/service/onboarding"
	"github.com/jwalitptl/care-booking/pkg/auth"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/messaging/redis"
	"github.com/jwalitptl/care-booking/pkg/metrics"
	"github.com/jwalitptl/care-booking/pkg/security"
)

const (
	testKey     = "6368616e676520746869732070617373776f726420746f206120736563726574"
	pendingList = "onboarding:pending"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type queueFunc func(ctx context.Context, list string, message interface{}) error

func (f queueFunc) Enqueue(ctx context.Context, list string, message interface{}) error {
	return f(ctx, list, message)
}

type fixture struct {
	engine *gin.Engine
	store  *memory.Store
	sealer security.Encryptor
	tokens auth.JWTService
}

func newFixture(t *testing.T, queue messaging.Queue, degraded bool) *fixture {
	t.Helper()
	store := memory.New()
	sealer, err := security.NewSecretboxEncryptorHex(testKey)
	require.NoError(t, err)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := onboarding.NewService(store, sealer, log, metrics.NewMetrics("test", prometheus.NewRegistry()))
	h := NewHandler(svc, queue, sealer, Config{DegradedAck: degraded, PendingList: pendingList}, log)

	tokens := auth.NewJWTService("test-secret", "care-booking", time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(tokens, policy.Any())

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h.RegisterRoutes(r.Group("/api/v1", authMiddleware.OptionalAuth()))
	return &fixture{engine: r, store: store, sealer: sealer, tokens: tokens}
}

func newRedisQueue(t *testing.T) (*redis.RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	zl := zerolog.Nop()
	broker := redis.NewRedisBrokerFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), &zl)
	t.Cleanup(func() { _ = broker.Close() })
	return broker, mr
}

func validRequest() gin.H {
	return gin.H{
		"name":           "Dr. Nalu Kahale",
		"email":          "nalu@example.com",
		"phone":          "808-555-0100",
		"bio":            "Family medicine on the Big Island.",
		"specialties":    []string{"Family Medicine", " Pediatrics "},
		"clinic_name":    "Hilo Health",
		"clinic_address": "1 Kamehameha Ave",
		"island":         "Hawaii",
		"company_id":     "hilohealth",
		"api_user":       "nalu",
		"api_key":        "sk_live_secret",
	}
}

func (f *fixture) post(t *testing.T, body interface{}, caller *auth.Caller) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		token, err := f.tokens.GenerateToken(*caller)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestSubmitCreatesEverything(t *testing.T) {
	f := newFixture(t, nil, true)

	w, resp := f.post(t, validRequest(), &auth.Caller{ID: "auth0|nalu", Email: "nalu@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result model.OnboardingResult
	require.NoError(t, json.Unmarshal(resp["data"], &result))
	assert.Equal(t, "Hilo Health", result.Clinic.Name)
	require.NotNil(t, result.Integration)
	assert.NotContains(t, w.Body.String(), "sk_live_secret")

	counts := f.store.Counts()
	assert.Equal(t, 1, counts["profiles"])
	assert.Equal(t, 1, counts["providers"])
	assert.Equal(t, 1, counts["integrations"])
	assert.Len(t, f.store.Events(model.EventProviderOnboarded), 1)
}

func TestSubmitAnonymous(t *testing.T) {
	f := newFixture(t, nil, true)

	w, _ := f.post(t, validRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, f.store.Counts()["profiles"])
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil, true)
	req := validRequest()
	delete(req, "bio")
	req["specialties"] = []string{" "}

	w, resp := f.post(t, req, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"validation_failed"`, string(resp["code"]))
	assert.JSONEq(t, `["bio","specialties"]`, string(resp["fields"]))
	assert.Zero(t, f.store.Counts()["profiles"])
}

func TestSubmitDegradedAck(t *testing.T) {
	broker, mr := newRedisQueue(t)
	f := newFixture(t, broker, true)
	f.store.Fail("tx.Begin", repository.ErrUnavailable)

	w, resp := f.post(t, validRequest(), &auth.Caller{ID: "auth0|nalu"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	assert.JSONEq(t, `"accepted"`, string(resp["status"]))
	assert.JSONEq(t, `false`, string(resp["durable"]))
	assert.NotContains(t, resp, "data")

	var ack model.OnboardingAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "accepted", ack.Status)
	assert.False(t, ack.Durable)
	assert.NotEmpty(t, ack.Reference)

	items, err := mr.List(pendingList)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "sk_live_secret")

	var stashed pendingSubmission
	require.NoError(t, json.Unmarshal([]byte(items[0]), &stashed))
	assert.Equal(t, ack.Reference, stashed.Reference)
	assert.Equal(t, "auth0|nalu", stashed.AuthID)
	assert.Empty(t, stashed.Request.APIKey)
	key, err := f.sealer.Decrypt(stashed.APIKeySealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_secret", string(key))
}

func TestSubmitUnavailableWithoutAck(t *testing.T) {
	tests := []struct {
		name     string
		queue    messaging.Queue
		degraded bool
	}{
		{"ack disabled", queueFunc(func(context.Context, string, interface{}) error { return nil }), false},
		{"no queue", nil, true},
		{"stash fails", queueFunc(func(context.Context, string, interface{}) error { return errors.New("redis down") }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.queue, tt.degraded)
			f.store.Fail("tx.Begin", repository.ErrUnavailable)

			w, resp := f.post(t, validRequest(), nil)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.JSONEq(t, `"persistence_unavailable"`, string(resp["code"]))
		})
	}
}

func TestSubmitWriteFailureIsNotAcked(t *testing.T) {
	enqueued := 0
	f := newFixture(t, queueFunc(func(context.Context, string, interface{}) error {
		enqueued++
		return nil
	}), true)
	f.store.Fail("providers.Create", errors.New("constraint violation"))

	w, resp := f.post(t, validRequest(), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `"persistence_write_failed"`, string(resp["code"]))
	assert.NotContains(t, w.Body.String(), "constraint violation")
	assert.Zero(t, enqueued)
	assert.Zero(t, f.store.Counts()["profiles"])
}
