package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunv/foldersync/internal/debounce"
	"github.com/arjunv/foldersync/internal/filter"
	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/remoteclient"
	"github.com/arjunv/foldersync/internal/syncstate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// fakeRemote is an in-memory remoteclient.Client backed by a map, keyed by
// path, standing in for the HTTP-based implementation in full-pass tests.
type fakeRemote struct {
	mu       sync.Mutex
	content  map[string][]byte
	mtime    map[string]int64
	deleted  map[string]bool
	failNext map[string]error

	// queuedChanges/queuedCursor back a single canned ListChanges response,
	// consumed the first time it's called and empty thereafter.
	queuedChanges []remoteclient.Change
	queuedCursor  string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		content:  make(map[string][]byte),
		mtime:    make(map[string]int64),
		deleted:  make(map[string]bool),
		failNext: make(map[string]error),
	}
}

// queueChanges arms the next ListChanges call to return the given changes
// and cursor exactly once.
func (f *fakeRemote) queueChanges(cursor string, changes []remoteclient.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queuedCursor = cursor
	f.queuedChanges = changes
}

func (f *fakeRemote) put(path string, data []byte, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.content[path] = data
	f.mtime[path] = mtime
}

func (f *fakeRemote) ListTree(ctx context.Context) ([]remoteclient.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []remoteclient.RemoteEntry
	for path, data := range f.content {
		out = append(out, remoteclient.RemoteEntry{
			Path:       path,
			Size:       int64(len(data)),
			Mtime:      f.mtime[path],
			RemoteHash: hashOf(data),
		})
	}

	return out, nil
}

func (f *fakeRemote) ListChanges(ctx context.Context, cursor string) ([]remoteclient.Change, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	changes, newCursor := f.queuedChanges, f.queuedCursor
	f.queuedChanges, f.queuedCursor = nil, ""

	return changes, newCursor, nil
}

func (f *fakeRemote) Download(ctx context.Context, path, localPath string, p remoteclient.ProgressFunc) (bool, error) {
	f.mu.Lock()
	data, ok := f.content[path]
	f.mu.Unlock()

	if !ok {
		return false, os.ErrNotExist
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return false, err
	}

	if p != nil {
		p(int64(len(data)), int64(len(data)))
	}

	return true, os.WriteFile(localPath, data, 0o644)
}

func (f *fakeRemote) Upload(ctx context.Context, path, localPath string, p remoteclient.ProgressFunc) (*remoteclient.RemoteEntry, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}

	if p != nil {
		p(int64(len(data)), int64(len(data)))
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}

	mtime := info.ModTime().Unix()
	f.put(path, data, mtime)

	return &remoteclient.RemoteEntry{Path: path, Size: int64(len(data)), Mtime: mtime, RemoteHash: hashOf(data)}, nil
}

func (f *fakeRemote) Delete(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.content, path)
	delete(f.mtime, path)
	f.deleted[path] = true

	return true, nil
}

func (f *fakeRemote) Validate(ctx context.Context) (bool, error) {
	return true, nil
}

func hashOf(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}

// newFullReconciler wires a Reconciler against a real temp directory and a
// fakeRemote, the shape FullSync needs end to end.
func newFullReconciler(t *testing.T, client *fakeRemote) (*Reconciler, string) {
	t.Helper()

	root := t.TempDir()

	r := &Reconciler{
		Store:      syncstate.Open(filepath.Join(t.TempDir(), "state.json"), nil),
		Client:     client,
		Filter:     filter.New(nil, nil, nil),
		Debounce:   debounce.New(),
		Progress:   progress.NewTracker(),
		History:    history.New(filepath.Join(t.TempDir(), "history.jsonl")),
		LocalRoot:  root,
		MaxWorkers: 4,
		Logger:     discardLogger(),
	}

	return r, root
}

func TestFullSyncUploadsLocalOnlyFile(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hello"), 0o644))

	require.NoError(t, r.FullSync(context.Background()))

	client.mu.Lock()
	data, ok := client.content["new.txt"]
	client.mu.Unlock()

	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	entry, ok := r.Store.GetEntry("new.txt")
	require.True(t, ok)
	assert.Equal(t, hashOf([]byte("hello")), entry.LocalHash)
}

func TestFullSyncDownloadsRemoteOnlyFile(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	client.put("remote.txt", []byte("from the cloud"), time.Now().Unix())

	require.NoError(t, r.FullSync(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "remote.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from the cloud", string(data))

	_, ok := r.Store.GetEntry("remote.txt")
	assert.True(t, ok)
}

func TestFullSyncPropagatesLocalDelete(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	client.put("tracked.txt", []byte("data"), time.Now().Unix())
	r.Store.SetEntry("tracked.txt", syncstate.FileEntry{Size: 4})

	// Local copy never existed (simulating a file deleted since last sync).
	_ = root

	require.NoError(t, r.FullSync(context.Background()))

	client.mu.Lock()
	_, stillThere := client.content["tracked.txt"]
	wasDeleted := client.deleted["tracked.txt"]
	client.mu.Unlock()

	assert.False(t, stillThere)
	assert.True(t, wasDeleted)

	_, ok := r.Store.GetEntry("tracked.txt")
	assert.False(t, ok)
}

func TestFullSyncPropagatesRemoteDelete(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	local := filepath.Join(root, "local-only-now.txt")
	require.NoError(t, os.WriteFile(local, []byte("still here"), 0o644))
	r.Store.SetEntry("local-only-now.txt", syncstate.FileEntry{Size: 10})

	require.NoError(t, r.FullSync(context.Background()))

	_, err := os.Stat(local)
	assert.True(t, os.IsNotExist(err))

	_, ok := r.Store.GetEntry("local-only-now.txt")
	assert.False(t, ok)
}

func TestFullSyncNoOpWhenNothingChanged(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	local := filepath.Join(root, "stable.txt")
	require.NoError(t, os.WriteFile(local, []byte("stable"), 0o644))

	info, err := os.Stat(local)
	require.NoError(t, err)

	client.put("stable.txt", []byte("stable"), info.ModTime().Unix())
	r.Store.SetEntry("stable.txt", syncstate.FileEntry{
		Size:        6,
		LocalMtime:  info.ModTime().UTC(),
		RemoteMtime: time.Unix(info.ModTime().Unix(), 0).UTC(),
		LocalHash:   hashOf([]byte("stable")),
		RemoteHash:  hashOf([]byte("stable")),
	})

	require.NoError(t, r.FullSync(context.Background()))

	client.mu.Lock()
	data := client.content["stable.txt"]
	client.mu.Unlock()
	assert.Equal(t, "stable", string(data))
}

func TestFullSyncConflictRenamesLocalAndDownloadsRemote(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	var notified string
	r.NotifyConflict = func(path string) { notified = path }

	past := time.Now().Add(-time.Hour).UTC()

	local := filepath.Join(root, "doc.txt")
	require.NoError(t, os.WriteFile(local, []byte("local edit"), 0o644))
	require.NoError(t, os.Chtimes(local, time.Now(), time.Now()))

	client.put("doc.txt", []byte("remote edit"), time.Now().Unix())

	r.Store.SetEntry("doc.txt", syncstate.FileEntry{
		Size:        9,
		LocalMtime:  past,
		RemoteMtime: past,
		LocalHash:   hashOf([]byte("original")),
		RemoteHash:  hashOf([]byte("original")),
	})

	require.NoError(t, r.FullSync(context.Background()))

	assert.Equal(t, "doc.txt", notified)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "remote edit", string(data))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	var sawConflictCopy bool
	for _, e := range entries {
		if e.Name() != "doc.txt" {
			sawConflictCopy = true
		}
	}
	assert.True(t, sawConflictCopy, "expected a renamed conflict copy alongside doc.txt")
}

func TestFullSyncSucceedsOnConsecutivePasses(t *testing.T) {
	client := newFakeRemote()
	r, _ := newFullReconciler(t, client)

	require.NoError(t, r.FullSync(context.Background()))
	require.NoError(t, r.FullSync(context.Background()))
}
