package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/server"
)

func TestServeCommandFlags(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)

	require.NoError(t, serveCmd.Flags().Set("port", "9191"))
	require.NoError(t, serveCmd.Flags().Set("host", "0.0.0.0"))
	require.NoError(t, serveCmd.Flags().Set("rate-limit-enabled", "true"))
	require.NoError(t, serveCmd.Flags().Set("requests-per-minute", "7"))
	t.Cleanup(func() { resetCommand(serveCmd) })

	cfg := GetConfig()
	applyServeFlags(serveCmd, cfg)
	assert.Equal(t, "0.0.0.0:9191", cfg.Server.Addr())
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 7, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 1000, cfg.Server.RateLimit.RequestsPerHour, "unset flags keep config values")
}

func TestServeCommandInvalidPort(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}

func TestNewHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.LocalOCR.Enabled = false
	cfg.Server.TimeoutSec = 20

	a, err := buildApp(t.Context(), &cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	srv := newHTTPServer(&cfg, a)
	assert.Equal(t, "localhost:8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 20*time.Second, srv.ReadTimeout)

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, []string{"direct_text"}, health.Strategies)
}
