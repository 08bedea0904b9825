// Package health maintains an in-memory rolling window of API call
// results and exposes the health snapshot described in §4.12.
package health

import (
	"sync"
	"time"
)

const window = 5 * time.Minute

type sample struct {
	at     time.Time
	status int
}

// Monitor tracks recent API call outcomes and the last successful sync.
type Monitor struct {
	mu          sync.Mutex
	calls       []sample
	lastSync    time.Time
	hasLastSync bool
	startedAt   time.Time
	localRoot   string
}

// New creates a Monitor. localRoot is used to report disk_free_bytes for
// the sync folder's volume.
func New(localRoot string) *Monitor {
	return &Monitor{startedAt: time.Now(), localRoot: localRoot}
}

// RecordAPICall appends one (timestamp, status) sample, pruning anything
// older than the 5-minute window. A status of 0 denotes a transport-level
// error, per §4.12.
func (m *Monitor) RecordAPICall(status int) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, sample{at: now, status: status})
	m.pruneLocked(now)
}

// RecordSuccessfulSync records that a reconciliation pass just completed
// without error.
func (m *Monitor) RecordSuccessfulSync() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSync = time.Now()
	m.hasLastSync = true
}

func (m *Monitor) pruneLocked(now time.Time) {
	cutoff := now.Add(-window)

	i := 0
	for i < len(m.calls) && m.calls[i].at.Before(cutoff) {
		i++
	}

	if i > 0 {
		m.calls = m.calls[i:]
	}
}

// Snapshot is the health payload described in §4.12.
type Snapshot struct {
	APICalls5Min       int     `json:"api_calls_5min"`
	APIErrorRate5Min   float64 `json:"api_error_rate_5min"`
	LastSuccessfulSync int64   `json:"last_successful_sync,omitempty"`
	DiskFreeBytes      *uint64 `json:"disk_free_bytes"`
	UptimeSeconds      int64   `json:"uptime_seconds"`
}

// Snapshot builds the current health payload.
func (m *Monitor) Snapshot() Snapshot {
	now := time.Now()

	m.mu.Lock()
	m.pruneLocked(now)

	total := len(m.calls)
	errors := 0

	for _, c := range m.calls {
		if c.status >= 400 || c.status == 0 {
			errors++
		}
	}

	var errorRate float64
	if total > 0 {
		errorRate = float64(errors) / float64(total) * 100
	}

	var lastSync int64
	if m.hasLastSync {
		lastSync = m.lastSync.Unix()
	}

	root := m.localRoot
	m.mu.Unlock()

	var diskFree *uint64
	if free, err := diskFreeBytes(root); err == nil {
		diskFree = &free
	}

	return Snapshot{
		APICalls5Min:       total,
		APIErrorRate5Min:   errorRate,
		LastSuccessfulSync: lastSync,
		DiskFreeBytes:      diskFree,
		UptimeSeconds:      int64(now.Sub(m.startedAt).Seconds()),
	}
}
