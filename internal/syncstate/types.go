// Package syncstate implements the durable shadow of the sync engine: the
// set of tracked files, the persisted retry queue, and the delta cursor.
// Everything is held as one JSON document, mutated only through the Store,
// and written atomically via temp-file-plus-rename.
package syncstate

import "time"

// FileEntry is the durable shadow of one synced file, keyed by its
// POSIX-style path relative to the local sync root.
type FileEntry struct {
	Size        int64     `json:"size"`
	LocalMtime  time.Time `json:"local_mtime"`
	RemoteMtime time.Time `json:"remote_mtime"`
	SyncedAt    time.Time `json:"synced_at"`
	LocalHash   string    `json:"local_hash,omitempty"`
	RemoteHash  string    `json:"remote_hash,omitempty"`
}

// Action identifies the kind of operation a RetryItem or reconciliation
// decision represents.
type Action string

const (
	ActionUploadNew     Action = "upload_new"
	ActionDownloadNew   Action = "download_new"
	ActionLocalDeleted  Action = "local_deleted"
	ActionRemoteDeleted Action = "remote_deleted"
	ActionSyncExisting  Action = "sync_existing"
)

// RetryItem is a failed operation awaiting its next attempt.
type RetryItem struct {
	Path      string `json:"path"`
	Action    Action `json:"action"`
	Attempts  int    `json:"attempts"`
	NextRetry int64  `json:"next_retry"` // unix seconds
	Error     string `json:"error,omitempty"`
}

// SyncState is the single persisted JSON document backing the state store.
type SyncState struct {
	Files      map[string]FileEntry `json:"files"`
	RetryQueue []RetryItem          `json:"retry_queue"`
	DeltaLink  string               `json:"delta_link,omitempty"`
	LastPoll   *time.Time           `json:"last_poll,omitempty"`
}

// newEmptyState returns a SyncState with initialized collections, never nil
// maps/slices, so callers can range and index immediately.
func newEmptyState() *SyncState {
	return &SyncState{
		Files:      make(map[string]FileEntry),
		RetryQueue: []RetryItem{},
	}
}
