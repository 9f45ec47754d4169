package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docrunner/internal/config"
	"git.home.luguber.info/inful/docrunner/internal/history"
	"git.home.luguber.info/inful/docrunner/internal/pipeline"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Daemon.Listen = "127.0.0.1:0"
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Daemon.MetricsEnabled = true

	d, err := New(cfg, pipeline.BuildRequest{Project: "demo", Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.store.Close() })
	return d
}

func TestHealthEndpoint(t *testing.T) {
	d := newTestDaemon(t)
	ts := httptest.NewServer(d.server.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.False(t, status.Building)
}

func TestTriggerEndpointCoalesces(t *testing.T) {
	d := newTestDaemon(t)
	ts := httptest.NewServer(d.server.srv.Handler)
	defer ts.Close()

	post := func() map[string]string {
		resp, err := http.Post(ts.URL+"/api/builds", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	assert.Equal(t, "queued", post()["status"])
	assert.Equal(t, "already queued", post()["status"])
}

func TestListAndGetBuilds(t *testing.T) {
	d := newTestDaemon(t)
	ts := httptest.NewServer(d.server.srv.Handler)
	defer ts.Close()

	ctx := context.Background()
	rec := history.BuildRecord{
		ID:      "build-1",
		Project: "demo",
		Outcome: "success",
		Started: time.Now(),
	}
	require.NoError(t, d.store.RecordBuild(ctx, rec))
	require.NoError(t, d.store.AppendEvent(ctx, "build-1", history.EventBuildStarted, nil,
		map[string]string{"project": "demo"}))

	resp, err := http.Get(ts.URL + "/api/builds")
	require.NoError(t, err)
	defer resp.Body.Close()
	var builds []history.BuildRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&builds))
	require.Len(t, builds, 1)
	assert.Equal(t, "build-1", builds[0].ID)

	resp2, err := http.Get(ts.URL + "/api/builds/build-1")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	var detail buildDetail
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&detail))
	assert.Equal(t, "demo", detail.Record.Project)
	assert.Equal(t, history.StatusRunning, detail.Summary.Status)

	resp3, err := http.Get(ts.URL + "/api/builds/missing")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestMetricsEndpointRegistered(t *testing.T) {
	d := newTestDaemon(t)
	ts := httptest.NewServer(d.server.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTriggerChannelCoalesces(t *testing.T) {
	d := newTestDaemon(t)
	assert.True(t, d.Trigger("api"))
	assert.False(t, d.Trigger("schedule"))
	<-d.triggers
	assert.True(t, d.Trigger("watch"))
}

func TestManifestWatcherDebounce(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, ".docs.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 2\n"), 0o644))

	var fired atomic.Int32
	w, err := NewManifestWatcher(manifestPath, 50*time.Millisecond, func() {
		fired.Add(1)
	})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Two writes inside the debounce window must collapse into one trigger.
	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 2\nformats: [html]\n"), 0o644))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 2\n"), 0o644))

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		2*time.Second, 20*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}
