package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingops/internal/services"
	"trainingops/internal/supabase/supabasetest"
	"trainingops/pkg/auth"
)

type testServer struct {
	app      *fiber.App
	fake     *supabasetest.Server
	verifier *auth.Verifier
}

func setupTestApp(t *testing.T) *testServer {
	t.Helper()
	fake := supabasetest.New(t)
	verifier, err := auth.NewVerifier("test-secret")
	require.NoError(t, err)

	backend := fake.Backend()
	app := fiber.New()
	Routes{
		Health:    NewHealthHandler(backend),
		Analytics: NewAnalyticsHandler(services.NewAnalyticsService(backend, 0, nil)),
		Feedback:  NewFeedbackHandler(services.NewFeedbackService(backend)),
		Verifier:  verifier,
	}.Mount(app)

	return &testServer{app: app, fake: fake, verifier: verifier}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := s.verifier.Sign(auth.User{ID: "user-7", Role: "authenticated"}, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	s := setupTestApp(t)

	code, body := s.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["backend"])
	assert.NotEmpty(t, body["timestamp"])
}

type downBackend struct{}

func (downBackend) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_BackendDown(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(downBackend{}).Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unreachable", body["backend"])
}

func TestAnalytics_RequiresAuth(t *testing.T) {
	s := setupTestApp(t)
	for _, path := range []string{"/api/analytics/usage", "/api/analytics/comparison", "/api/analytics/effectiveness"} {
		code, _ := s.do(t, http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
	assert.Empty(t, s.fake.Requests(http.MethodPost, ""))
}

func TestAnalytics_Usage(t *testing.T) {
	s := setupTestApp(t)
	var gotUser interface{}
	s.fake.HandleRPC(services.RPCUsageStatistics, func(params map[string]interface{}) (interface{}, int) {
		gotUser = params["p_user_id"]
		return []map[string]interface{}{{"total_queries": 3, "tools_used": []string{"slack"}}}, 0
	})

	code, body := s.do(t, http.MethodGet, "/api/analytics/usage", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user-7", gotUser)
	assert.Equal(t, float64(3), body["total_queries"])
	assert.Equal(t, []interface{}{"slack"}, body["tools_used"])
}

func TestAnalytics_DefaultShape(t *testing.T) {
	s := setupTestApp(t)
	s.fake.HandleRPC(services.RPCCompareTrainingVsLive, func(map[string]interface{}) (interface{}, int) {
		return nil, 0
	})

	code, body := s.do(t, http.MethodGet, "/api/analytics/comparison", "", true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["training_examples"])
	assert.Equal(t, float64(0), body["coverage_rate"])
}

func TestAnalytics_BackendError(t *testing.T) {
	s := setupTestApp(t)

	code, body := s.do(t, http.MethodGet, "/api/analytics/effectiveness", "", true)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body["error"], "effectiveness")
}

func TestFeedback(t *testing.T) {
	s := setupTestApp(t)
	s.fake.Seed("training_data", map[string]interface{}{"id": 5, "tool": "slack", "query": "q", "response": "r"})

	code, body := s.do(t, http.MethodPost, "/api/feedback/5", `{"field":"query","rating":4,"feedback":"close"}`, true)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), body["id"])
	assert.Equal(t, float64(4), s.fake.Rows("training_data")[0]["query_rating"])

	code, _ = s.do(t, http.MethodPost, "/api/feedback/5", `{"field":"tone","rating":4}`, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/feedback/99", `{"field":"query","rating":4}`, true)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/feedback/abc", `{"field":"query","rating":4}`, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/feedback/5", `{"field":"query","rating":4}`, false)
	assert.Equal(t, http.StatusUnauthorized, code)
}
