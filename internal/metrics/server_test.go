// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicAuthUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: map[string]string{}},
		{name: "single", raw: "prom:secret", want: map[string]string{"prom": "secret"}},
		{name: "trims entries", raw: " prom:secret , ops:hunter2 ", want: map[string]string{"prom": "secret", "ops": "hunter2"}},
		{name: "password may contain colons", raw: "prom:a:b", want: map[string]string{"prom": "a:b"}},
		{name: "skips malformed", raw: "prom:secret,nocolon,:nouser", want: map[string]string{"prom": "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseBasicAuthUsers(tt.raw))
		})
	}
}

func TestNewMetricsServerAddr(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(NewManager(nil, nil), "::1", 9074, "")
	assert.Equal(t, "[::1]:9074", srv.server.Addr)
	assert.Empty(t, srv.basicAuthUsers)
}

func scrape(t *testing.T, srv *MetricsServer, path string, auth ...string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestMetricsServerServesEngineMetrics(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(NewManager(staticStats{IndexedPaths: 7, PendingTasks: 2}, nil), "127.0.0.1", 0, "")

	code, body := scrape(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "unlinkr_index_paths 7")
	assert.Contains(t, body, "unlinkr_pending_tasks 2")
	assert.Contains(t, body, "go_goroutines")

	code, _ = scrape(t, srv, "/")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsServerBasicAuth(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(NewManager(nil, nil), "127.0.0.1", 0, "prom:secret")

	code, _ := scrape(t, srv, "/metrics")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = scrape(t, srv, "/metrics", "prom", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := scrape(t, srv, "/metrics", "prom", "secret")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "unlinkr_index_paths 0")
}

func TestMetricsServerShutdown(t *testing.T) {
	t.Parallel()

	srv := NewMetricsServer(NewManager(nil, nil), "127.0.0.1", 0, "")

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		require.NoError(t, err, "a closed server is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after Shutdown")
	}
}
