package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// backoffBase and backoffCap implement next_retry = now + min(2^attempts*30s, 1800s).
const (
	backoffBase = 30 * time.Second
	backoffCap  = 30 * time.Minute
)

// Store owns the in-memory SyncState and guards every mutation with
// stateMu. It is the only component permitted to touch SyncState fields
// directly; everyone else goes through its methods.
type Store struct {
	mu     sync.Mutex
	state  *SyncState
	path   string
	logger *slog.Logger
}

// Open loads the state document at path, or starts from an empty state if
// the file is missing or corrupt. It never returns an error: a corrupt file
// is renamed aside and treated as empty, per the "state corruption" error
// kind — callers get a usable Store even on disk damage.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	state, err := load(path, logger)
	if err != nil {
		logger.Warn("starting with empty sync state", slog.String("error", err.Error()))
		state = newEmptyState()
	}

	return &Store{state: state, path: path, logger: logger}
}

// load deserializes the JSON document at path. A missing file yields an
// empty state with no error. A file that fails to parse is renamed to
// "{path}.corrupt.{UTC stamp}" and an empty state is returned alongside the
// parse error, so the caller can log it.
func load(path string, logger *slog.Logger) (*SyncState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return newEmptyState(), nil
	}
	if err != nil {
		return newEmptyState(), fmt.Errorf("syncstate: reading %s: %w", path, err)
	}

	var s SyncState
	if err := json.Unmarshal(data, &s); err != nil {
		stamp := time.Now().UTC().Format("20060102T150405Z")
		corrupt := fmt.Sprintf("%s.corrupt.%s", path, stamp)

		if renameErr := os.Rename(path, corrupt); renameErr != nil {
			logger.Error("failed to quarantine corrupt state file",
				slog.String("path", path), slog.String("error", renameErr.Error()))
		} else {
			logger.Warn("quarantined corrupt state file", slog.String("backup", corrupt))
		}

		return newEmptyState(), fmt.Errorf("syncstate: parsing %s: %w", path, err)
	}

	if s.Files == nil {
		s.Files = make(map[string]FileEntry)
	}

	return &s, nil
}

// Save persists the current state to disk. It is also exposed standalone
// (not just via flush-on-commit) so callers can force a checkpoint.
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.saveLocked()
}

// saveLocked writes st.state to a sibling temp file in the same directory,
// then atomically renames it over the target — readers never observe a
// partially written document. Caller must hold st.mu.
func (st *Store) saveLocked() error {
	data, err := json.MarshalIndent(st.state, "", "  ")
	if err != nil {
		return fmt.Errorf("syncstate: marshaling state: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("syncstate: creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".syncstate-*.tmp")
	if err != nil {
		return fmt.Errorf("syncstate: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("syncstate: writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("syncstate: syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("syncstate: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, st.path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("syncstate: renaming temp file over target: %w", err)
	}

	return nil
}

// Snapshot returns a deep-enough copy of the current files map for callers
// that need to read without holding the store locked across I/O (e.g. the
// reconciler building its three-way diff).
func (st *Store) Snapshot() map[string]FileEntry {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make(map[string]FileEntry, len(st.state.Files))
	for k, v := range st.state.Files {
		out[k] = v
	}

	return out
}

// GetEntry returns the FileEntry for path and whether it exists.
func (st *Store) GetEntry(path string) (FileEntry, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.state.Files[path]

	return e, ok
}

// SetEntry upserts the FileEntry for path.
func (st *Store) SetEntry(path string, entry FileEntry) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.Files[path] = entry
}

// RemoveEntry deletes the FileEntry for path, if present.
func (st *Store) RemoveEntry(path string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.state.Files, path)
}

// RetryQueue returns a copy of the current retry queue.
func (st *Store) RetryQueue() []RetryItem {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]RetryItem, len(st.state.RetryQueue))
	copy(out, st.state.RetryQueue)

	return out
}

// AddRetry upserts a RetryItem keyed by (path, action): increments attempts
// if one already exists, recomputes next_retry via nextRetryTime, and
// records the error string. Invariant: at most one RetryItem per
// (path, action) pair.
func (st *Store) AddRetry(path string, action Action, errMsg string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for i := range st.state.RetryQueue {
		item := &st.state.RetryQueue[i]
		if item.Path == path && item.Action == action {
			item.Attempts++
			item.NextRetry = nextRetryTime(item.Attempts).Unix()
			item.Error = errMsg

			return
		}
	}

	st.state.RetryQueue = append(st.state.RetryQueue, RetryItem{
		Path:      path,
		Action:    action,
		Attempts:  1,
		NextRetry: nextRetryTime(1).Unix(),
		Error:     errMsg,
	})
}

// RemoveRetry deletes the RetryItem matching (path, action), if any.
func (st *Store) RemoveRetry(path string, action Action) {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := st.state.RetryQueue[:0]
	for _, item := range st.state.RetryQueue {
		if item.Path == path && item.Action == action {
			continue
		}

		out = append(out, item)
	}

	st.state.RetryQueue = out
}

// nextRetryTime computes now + min(2^attempts * 30s, 1800s).
func nextRetryTime(attempts int) time.Time {
	backoff := time.Duration(math.Pow(2, float64(attempts))) * backoffBase
	if backoff > backoffCap {
		backoff = backoffCap
	}

	return time.Now().Add(backoff)
}

// DeltaLink returns the current delta cursor, or "" if none recorded.
func (st *Store) DeltaLink() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.state.DeltaLink
}

// SetDeltaLink records a new delta cursor. Per invariant 3, callers must
// only call this after a delta query completes successfully with a new
// cursor — the Store does not enforce that itself.
func (st *Store) SetDeltaLink(link string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.DeltaLink = link
}

// SetLastPoll records the timestamp of the most recently completed
// reconciliation pass.
func (st *Store) SetLastPoll(t time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.LastPoll = &t
}

// LastPoll returns the last recorded poll time, or nil if none.
func (st *Store) LastPoll() *time.Time {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.state.LastPoll
}

// FileCount returns the number of tracked files, for status reporting.
func (st *Store) FileCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.state.Files)
}

// RetryCount returns the number of pending retry items, for status reporting.
func (st *Store) RetryCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.state.RetryQueue)
}

// Commit persists the current in-memory state to disk. Callers invoke this
// at the end of a reconciliation pass (§4.5 step 6) or after any mutation
// that must survive a crash before the next pass begins.
func (st *Store) Commit() error {
	return st.Save()
}
