package lifecycle

import (
	"time"

	"github.com/arjunv/foldersync/internal/progress"
)

// Status is the payload returned by status() and the HTTP status endpoint
// (§6).
type Status struct {
	Running      bool         `json:"running"`
	Connected    bool         `json:"connected"`
	LastSync     *time.Time   `json:"last_sync"`
	NextSync     *time.Time   `json:"next_sync"`
	FileCount    int          `json:"file_count"`
	RetryCount   int          `json:"retry_count"`
	PollInterval int          `json:"poll_interval"`
	LocalFolder  string       `json:"local_folder"`
	ShareLinkSet bool         `json:"share_link_set"`
	Error        string       `json:"error,omitempty"`
	CurrentOp    *progress.Op `json:"current_op,omitempty"`
}

// Status returns a snapshot of the engine's current state.
func (e *Engine) Status() Status {
	cfg := e.Holder.Config()

	e.statusMu.Lock()
	var lastSync, nextSync *time.Time
	if e.hasLastSync {
		t := e.lastSync
		lastSync = &t
	}
	if e.hasNextSync {
		t := e.nextSync
		nextSync = &t
	}
	errMsg := e.lastError
	connected := e.connected
	e.statusMu.Unlock()

	var currentOp *progress.Op
	if e.Reconciler != nil && e.Reconciler.Progress != nil {
		currentOp = e.Reconciler.Progress.Current()
	}

	return Status{
		Running:      e.State() == Running,
		Connected:    connected,
		LastSync:     lastSync,
		NextSync:     nextSync,
		FileCount:    e.Store.FileCount(),
		RetryCount:   e.Store.RetryCount(),
		PollInterval: cfg.PollInterval,
		LocalFolder:  cfg.LocalFolder,
		ShareLinkSet: cfg.ShareLinkSet(),
		Error:        errMsg,
		CurrentOp:    currentOp,
	}
}

func (e *Engine) setConnected(v bool) {
	e.statusMu.Lock()
	e.connected = v
	e.statusMu.Unlock()
}

func (e *Engine) setError(msg string) {
	e.statusMu.Lock()
	e.lastError = msg
	e.statusMu.Unlock()
}

func (e *Engine) clearError() {
	e.setError("")
}

func (e *Engine) setNextSync(t time.Time) {
	e.statusMu.Lock()
	e.nextSync = t
	e.hasNextSync = true
	e.statusMu.Unlock()
}

func (e *Engine) clearNextSync() {
	e.statusMu.Lock()
	e.hasNextSync = false
	e.statusMu.Unlock()
}

// recordSuccess marks a completed reconciliation, resetting the
// consecutive-failure counter and updating health and last_sync.
func (e *Engine) recordSuccess() {
	e.statusMu.Lock()
	e.lastSync = time.Now().UTC()
	e.hasLastSync = true
	e.consecutiveFailure = 0
	e.statusMu.Unlock()

	e.clearError()

	if e.Health != nil {
		e.Health.RecordSuccessfulSync()
	}
}

// recordFailure increments and returns the consecutive-failure count.
func (e *Engine) recordFailure() int {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.consecutiveFailure++

	return e.consecutiveFailure
}

func (e *Engine) resetFailures() {
	e.statusMu.Lock()
	e.consecutiveFailure = 0
	e.statusMu.Unlock()
}
