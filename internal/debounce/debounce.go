// Package debounce suppresses filesystem watcher events for paths the
// engine itself just wrote, so a sync-triggered write doesn't boomerang
// back into another upload.
package debounce

import (
	"sync"
	"time"
)

// freshWindow is how long a mark counts as "recently synced" (§4.4).
const freshWindow = 3 * time.Second

// pruneAge is the age at which a stale entry is dropped during opportunistic
// cleanup, independent of whether it is still "fresh".
const pruneAge = 5 * time.Second

// Set is a mapping path → timestamp, guarded by its own mutex. It is
// intentionally map-plus-timestamp rather than timer-based: the watcher
// only ever asks "was this touched recently", never "notify me when it
// ages out".
type Set struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// New constructs an empty debounce Set.
func New() *Set {
	return &Set{seen: make(map[string]time.Time), now: time.Now}
}

// Mark records that path was just touched by the engine.
func (s *Set) Mark(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[path] = s.now()
}

// RecentlySynced reports whether path was marked within freshWindow.
func (s *Set) RecentlySynced(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.seen[path]
	if !ok {
		return false
	}

	return s.now().Sub(ts) < freshWindow
}

// Prune drops entries older than pruneAge. Called opportunistically at the
// start of each full reconciliation, not on a timer.
func (s *Set) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for path, ts := range s.seen {
		if now.Sub(ts) >= pruneAge {
			delete(s.seen, path)
		}
	}
}
