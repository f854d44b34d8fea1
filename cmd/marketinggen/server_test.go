package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.OutputDir = t.TempDir()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []config.APIKeyConfig{
		{Key: "std-key", User: "alice", Tier: config.TierStandard},
		{Key: "premium-key", User: "root", Tier: config.TierPremium},
	}
	cfg.Database.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

// newTestServer collector 为 nil，避免重复注册 Prometheus 指标
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	app, err := NewApp(context.Background(), cfg, nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return NewServer(cfg, app, nil, logger)
}

func serve(h http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		r.Header.Set("X-API-Key", key)
	}
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_PublicRoutes(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	for _, path := range []string{"/health", "/healthz", "/ready", "/v1/banner-types"} {
		w := serve(h, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"), path)
	}
}

func TestServer_HealthIncludesStorage(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Contains(t, status.Checks, "storage")
	assert.NotContains(t, status.Checks, "redis")
}

func TestServer_AuthRequired(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodGet, "/v1/outputs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, "/v1/outputs", "std-key", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AdminStatsRequiresPremium(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodGet, "/v1/admin/stats", "std-key", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, http.MethodGet, "/v1/admin/stats", "premium-key", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Users []struct {
				User string `json:"user"`
			} `json:"users"`
			Artifacts int `json:"artifacts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Data.Artifacts)
	var users []string
	for _, u := range resp.Data.Users {
		users = append(users, u.User)
	}
	assert.ElementsMatch(t, []string{"alice", "root"}, users)
}

func TestServer_GenerateValidation(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodPost, "/v1/generate", "std-key", `{"session_id":"s1","text":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", errorCode(t, w.Body.Bytes()))

	w = serve(h, http.MethodPost, "/v1/generate/banner", "std-key", `{"campaign":"Spring"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_SessionsAndFiles(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodGet, "/v1/sessions/unknown", "std-key", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(h, http.MethodDelete, "/v1/sessions/unknown", "std-key", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/v1/files/missing.png", "std-key", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, testConfig(t)).Handler()

	w := serve(h, http.MethodGet, "/v1/generate", "std-key", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_AnonymousWhenAuthDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Enabled = false
	h := newTestServer(t, cfg).Handler()

	w := serve(h, http.MethodGet, "/v1/outputs", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(h, http.MethodGet, "/v1/admin/stats", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Session.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()

	app, err := NewApp(context.Background(), cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.cache)
	var names []string
	for _, c := range app.HealthChecks() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"storage", "redis"}, names)

	ctx := context.Background()
	unlock, err := app.sessions.TryLock(ctx, "s1")
	require.NoError(t, err)
	_, err = app.sessions.TryLock(ctx, "s1")
	assert.Error(t, err)
	unlock()

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}

func TestNewApp_UnsupportedSessionBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = "memcached"

	_, err := NewApp(context.Background(), cfg, nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unsupported session backend")
}
