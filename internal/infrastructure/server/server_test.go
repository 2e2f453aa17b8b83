package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/playground/internal/infrastructure/config"
)

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close(ctx)
	})
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, config.Default())

	tests := []struct {
		method   string
		path     string
		body     string
		status   int
		contains string
	}{
		{http.MethodGet, "/", "", http.StatusOK, "<textarea id=\"editor\""},
		{http.MethodGet, "/health", "", http.StatusOK, `"status":"healthy"`},
		{http.MethodGet, "/api/registry", "", http.StatusOK, `"key":"card"`},
		{http.MethodPost, "/api/compile", `{"source":"export default () => <b>hi</b>;"}`, http.StatusOK, "AppBundle"},
		{http.MethodPost, "/api/render", `{"source":"export default () => <b>hi</b>;"}`, http.StatusOK, "hi\\u003c/b\\u003e"},
		{http.MethodPost, "/api/logs", `{"source":"ui","entries":[{"level":"warn","message":"websocket closed"}]}`, http.StatusOK, `"entries_received":1`},
		{http.MethodGet, "/metrics", "", http.StatusOK, "playground_uptime_seconds"},
		{http.MethodGet, "/metrics/json", "", http.StatusOK, `"sandbox"`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestWatchFileSeedsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.jsx")
	source := []byte("export default () => <i>watched</i>;")
	require.NoError(t, os.WriteFile(path, source, 0o644))

	cfg := config.Default()
	cfg.Playground.WatchFile = path
	s := newTestServer(t, cfg)
	assert.Equal(t, string(source), s.Host().Source())

	updated := []byte("export default () => <i>updated</i>;")
	require.NoError(t, os.WriteFile(path, updated, 0o644))
	require.Eventually(t, func() bool {
		return bytes.Equal([]byte(s.Host().Source()), updated)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchFileMissingDir(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Playground.WatchFile = filepath.Join(t.TempDir(), "missing", "app.jsx")
	_, err := NewServer(cfg)
	assert.Error(t, err)
}
