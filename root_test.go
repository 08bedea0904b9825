package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunv/foldersync/internal/config"
	"github.com/arjunv/foldersync/internal/debounce"
	"github.com/arjunv/foldersync/internal/filter"
	"github.com/arjunv/foldersync/internal/health"
	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/httpapi"
	"github.com/arjunv/foldersync/internal/lifecycle"
	"github.com/arjunv/foldersync/internal/logstream"
	"github.com/arjunv/foldersync/internal/notify"
	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/reconcile"
	"github.com/arjunv/foldersync/internal/remoteclient"
	"github.com/arjunv/foldersync/internal/syncstate"
	"github.com/arjunv/foldersync/internal/watcher"
)

type stubClient struct{}

func (stubClient) ListTree(ctx context.Context) ([]remoteclient.RemoteEntry, error) { return nil, nil }
func (stubClient) ListChanges(ctx context.Context, cursor string) ([]remoteclient.Change, string, error) {
	return nil, "cursor-1", nil
}
func (stubClient) Download(ctx context.Context, path, localPath string, p remoteclient.ProgressFunc) (bool, error) {
	return true, os.WriteFile(localPath, []byte("remote"), 0o644)
}
func (stubClient) Upload(ctx context.Context, path, localPath string, p remoteclient.ProgressFunc) (*remoteclient.RemoteEntry, error) {
	return &remoteclient.RemoteEntry{Path: path}, nil
}
func (stubClient) Delete(ctx context.Context, path string) (bool, error) { return true, nil }
func (stubClient) Validate(ctx context.Context) (bool, error)            { return true, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// newTestDaemon spins up a real httpapi.Server (via httptest) backed by a
// fully wired, unstarted Engine, and returns its base URL.
func newTestDaemon(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	local := filepath.Join(dir, "sync")

	cfg := config.DefaultConfig()
	cfg.ShareLink = "https://example.com/s"
	cfg.LocalFolder = local

	holder := config.NewHolder(cfg, filepath.Join(dir, "config.json"))
	store := syncstate.Open(filepath.Join(dir, "state.json"), discardLogger())
	historyLog := history.New(filepath.Join(dir, "history.jsonl"))

	r := &reconcile.Reconciler{
		Store:     store,
		Client:    stubClient{},
		Filter:    filter.New(filter.DefaultIgnorePatterns, nil, nil),
		Debounce:  debounce.New(),
		Progress:  progress.NewTracker(),
		History:   historyLog,
		LocalRoot: local,
		Logger:    discardLogger(),
	}

	e := lifecycle.New(holder, store, r, health.New(local), notify.New(false, discardLogger()), discardLogger())
	e.NewWatcher = func(root string, handler watcher.Handler, l *slog.Logger) (*watcher.Watcher, error) {
		return watcher.New(root, handler, l)
	}

	server := httpapi.NewServer(e, holder, historyLog, logstream.NewHub(), discardLogger(), "")

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return ts.URL
}

func runCLI(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmdOut = &out

	fullArgs := append([]string{"--addr", addr}, args...)

	root := newRootCmd()
	root.SetArgs(fullArgs)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()

	return out.String(), err
}

func TestCLIStatusAgainstDaemon(t *testing.T) {
	addr := newTestDaemon(t)

	out, err := runCLI(t, addr, "--json", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"running": false`)
}

func TestCLITriggerFailsWhenStopped(t *testing.T) {
	addr := newTestDaemon(t)

	_, err := runCLI(t, addr, "trigger")
	assert.Error(t, err)
}

func TestCLIConfigShowAndSet(t *testing.T) {
	addr := newTestDaemon(t)

	out, err := runCLI(t, addr, "--json", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "share_link")

	_, err = runCLI(t, addr, "config", "set", "poll_interval", "120")
	require.NoError(t, err)

	out, err = runCLI(t, addr, "--json", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "120")
}

func TestCLIHistoryEmpty(t *testing.T) {
	addr := newTestDaemon(t)

	out, err := runCLI(t, addr, "--json", "history")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}
