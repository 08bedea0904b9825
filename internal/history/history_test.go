package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOnMissingFileReturnsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "history.jsonl"))

	events, err := l.Get(10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppendThenGetReturnsNewestFirst(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "history.jsonl"))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append(Event{Timestamp: base, Action: "upload_new", Path: "a.txt", Status: StatusOK}))
	require.NoError(t, l.Append(Event{Timestamp: base.Add(time.Minute), Action: "download_new", Path: "b.txt", Status: StatusOK}))

	events, err := l.Get(10, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b.txt", events[0].Path)
	assert.Equal(t, "a.txt", events[1].Path)
}

func TestGetRespectsLimitAndOffset(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "history.jsonl"))

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(Event{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
			Action:    "sync_existing",
			Path:      fmt.Sprintf("file%d.txt", i),
			Status:    StatusOK,
		}))
	}

	events, err := l.Get(2, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "file3.txt", events[0].Path)
	assert.Equal(t, "file2.txt", events[1].Path)
}

func TestGetOffsetBeyondLengthReturnsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "history.jsonl"))

	require.NoError(t, l.Append(Event{Timestamp: time.Now(), Action: "upload_new", Path: "a.txt", Status: StatusOK}))

	events, err := l.Get(10, 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppendRotatesWhenExceedingMaxLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l := New(path)

	for i := 0; i < MaxLines+10; i++ {
		require.NoError(t, l.Append(Event{
			Timestamp: time.Now(),
			Action:    "sync_existing",
			Path:      fmt.Sprintf("file%d.txt", i),
			Status:    StatusOK,
		}))
	}

	events, err := l.Get(0, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), MaxLines+1)

	assert.Equal(t, fmt.Sprintf("file%d.txt", MaxLines+9), events[0].Path)
}

func TestAppendPreservesErrorAndSize(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "history.jsonl"))

	require.NoError(t, l.Append(Event{
		Timestamp: time.Now(),
		Action:    "upload_new",
		Path:      "big.bin",
		Status:    StatusError,
		Size:      4096,
		Error:     "connection reset",
	}))

	events, err := l.Get(1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, StatusError, events[0].Status)
	assert.EqualValues(t, 4096, events[0].Size)
	assert.Equal(t, "connection reset", events[0].Error)
}
