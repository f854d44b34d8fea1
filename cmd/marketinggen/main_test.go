package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gpolydatas/marketing-generator/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LogConfig
		level zapcore.Level
	}{
		{"json debug", config.LogConfig{Level: "debug", Format: "json", OutputPaths: []string{"stdout"}}, zapcore.DebugLevel},
		{"console warn", config.LogConfig{Level: "warn", Format: "console", EnableCaller: true}, zapcore.WarnLevel},
		{"unknown level", config.LogConfig{Level: "loud"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := initLogger(tt.cfg)
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestInitLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger := initLogger(config.LogConfig{Level: "info", Format: "json", OutputPaths: []string{path}})
	logger.Info("hello file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello file"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9090
storage:
  output_dir: `+dir+`
session:
  backend: memory
`), 0o600))
	t.Setenv("MARKETINGGEN_SERVER_HTTP_PORT", "9191")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.HTTPPort)
	assert.Equal(t, dir, cfg.Storage.OutputDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: etcd\n"), 0o600))

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestRunHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runHealthCheck([]string{"--addr", healthy.URL + "/"}, &stdout, &stderr))
	assert.Equal(t, "OK\n", stdout.String())

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	stdout.Reset()
	assert.Equal(t, 1, runHealthCheck([]string{"--addr", unhealthy.URL}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "status 503")
}

func TestRunGenerate_RequiresText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runGenerate([]string{"--session", "s1"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--text is required")
}

func TestRunMigrate_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runMigrate(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Database Migration Commands")

	stdout.Reset()
	assert.Equal(t, 0, runMigrate([]string{"help"}, &stdout, &stderr))
}

func TestRunMigrate_UnsupportedDatabase(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runMigrate([]string{"up", "--db-type", "oracle", "--db-url", "oracle://x"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Failed to create migrator")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "marketing-generator "+Version)
	assert.Contains(t, buf.String(), "Git Commit")
}
