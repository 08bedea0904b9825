package syncstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	assert.Equal(t, 0, st.FileCount())
	assert.Equal(t, 0, st.RetryCount())
	assert.Equal(t, "", st.DeltaLink())
	assert.Nil(t, st.LastPoll())
}

func TestSetEntryThenGetEntry(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	entry := FileEntry{Size: 1024, LocalHash: "abc"}
	st.SetEntry("docs/report.pdf", entry)

	got, ok := st.GetEntry("docs/report.pdf")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	_, ok = st.GetEntry("nonexistent.txt")
	assert.False(t, ok)
}

func TestRemoveEntry(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.SetEntry("a.txt", FileEntry{Size: 1})
	st.RemoveEntry("a.txt")

	_, ok := st.GetEntry("a.txt")
	assert.False(t, ok)
}

func TestSaveThenOpenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	st := Open(path, nil)
	st.SetEntry("a.txt", FileEntry{Size: 42, LocalHash: "h1"})
	st.SetDeltaLink("cursor-1")
	require.NoError(t, st.Save())

	reopened := Open(path, nil)
	entry, ok := reopened.GetEntry("a.txt")
	require.True(t, ok)
	assert.EqualValues(t, 42, entry.Size)
	assert.Equal(t, "cursor-1", reopened.DeltaLink())
}

func TestOpenCorruptFileQuarantinesAndStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	st := Open(path, nil)
	assert.Equal(t, 0, st.FileCount())

	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAddRetryFirstAttempt(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.AddRetry("a.txt", ActionUploadNew, "connection reset")

	queue := st.RetryQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, "a.txt", queue[0].Path)
	assert.Equal(t, ActionUploadNew, queue[0].Action)
	assert.Equal(t, 1, queue[0].Attempts)
	assert.Equal(t, "connection reset", queue[0].Error)
}

func TestAddRetrySamePathIncrementsAttempts(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.AddRetry("a.txt", ActionUploadNew, "err1")
	st.AddRetry("a.txt", ActionUploadNew, "err2")

	queue := st.RetryQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, 2, queue[0].Attempts)
	assert.Equal(t, "err2", queue[0].Error)
}

func TestAddRetryDistinctActionsAreSeparateItems(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.AddRetry("a.txt", ActionUploadNew, "err")
	st.AddRetry("a.txt", ActionDownloadNew, "err")

	assert.Len(t, st.RetryQueue(), 2)
}

func TestRemoveRetry(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.AddRetry("a.txt", ActionUploadNew, "err")
	st.AddRetry("b.txt", ActionUploadNew, "err")
	st.RemoveRetry("a.txt", ActionUploadNew)

	queue := st.RetryQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, "b.txt", queue[0].Path)
}

func TestAddRetryBackoffGrowsWithAttempts(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	before := time.Now().Unix()
	st.AddRetry("a.txt", ActionUploadNew, "err")
	firstNextRetry := st.RetryQueue()[0].NextRetry

	st.AddRetry("a.txt", ActionUploadNew, "err")
	secondNextRetry := st.RetryQueue()[0].NextRetry

	assert.Greater(t, firstNextRetry, before)
	assert.Greater(t, secondNextRetry, firstNextRetry)
}

func TestSetLastPollThenGet(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	now := time.Now()
	st.SetLastPoll(now)

	got := st.LastPoll()
	require.NotNil(t, got)
	assert.True(t, got.Equal(now))
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	st := Open(filepath.Join(t.TempDir(), "state.json"), nil)

	st.SetEntry("a.txt", FileEntry{Size: 1})
	snap := st.Snapshot()

	st.SetEntry("b.txt", FileEntry{Size: 2})

	assert.Len(t, snap, 1)
	assert.Len(t, st.Snapshot(), 2)
}

func TestCommitPersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := Open(path, nil)

	st.SetEntry("a.txt", FileEntry{Size: 1})
	require.NoError(t, st.Commit())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
