package reconcile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunv/foldersync/internal/syncstate"
)

// seedRetryState writes a state file with the given retry items already due,
// then opens a Store on it. AddRetry always schedules NextRetry into the
// future via the real backoff formula, so tests that need a due item seed
// the file directly rather than going through AddRetry.
func seedRetryState(t *testing.T, items []syncstate.RetryItem) *syncstate.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.json")

	raw, err := json.Marshal(syncstate.SyncState{
		Files:      make(map[string]syncstate.FileEntry),
		RetryQueue: items,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	return syncstate.Open(path, nil)
}

func TestProcessRetryQueueSkipsItemsNotYetDue(t *testing.T) {
	client := newFakeRemote()
	r, _ := newFullReconciler(t, client)

	r.Store.AddRetry("future.txt", syncstate.ActionUploadNew, "transient error")

	r.processRetryQueue(context.Background())

	assert.Len(t, r.Store.RetryQueue(), 1, "item not yet due should remain queued")
}

func TestProcessRetryQueueDropsItemAtMaxAttempts(t *testing.T) {
	client := newFakeRemote()
	r, _ := newFullReconciler(t, client)

	r.Store = seedRetryState(t, []syncstate.RetryItem{
		{
			Path:      "doomed.txt",
			Action:    syncstate.ActionUploadNew,
			Attempts:  maxRetryAttempts,
			NextRetry: time.Now().Add(-time.Hour).Unix(),
			Error:     "still failing",
		},
	})

	r.processRetryQueue(context.Background())

	assert.Empty(t, r.Store.RetryQueue(), "item at max attempts should be dropped, not retried again")
}

func TestProcessRetryQueueSucceedsAndRemovesItem(t *testing.T) {
	client := newFakeRemote()
	r, root := newFullReconciler(t, client)

	local := filepath.Join(root, "recovering.txt")
	require.NoError(t, os.WriteFile(local, []byte("payload"), 0o644))

	r.Store = seedRetryState(t, []syncstate.RetryItem{
		{
			Path:      "recovering.txt",
			Action:    syncstate.ActionUploadNew,
			Attempts:  1,
			NextRetry: time.Now().Add(-time.Minute).Unix(),
			Error:     "transient error",
		},
	})

	r.processRetryQueue(context.Background())

	assert.Empty(t, r.Store.RetryQueue())

	client.mu.Lock()
	_, uploaded := client.content["recovering.txt"]
	client.mu.Unlock()
	assert.True(t, uploaded)
}
