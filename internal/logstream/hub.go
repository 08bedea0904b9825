// Package logstream fans out formatted log records to live subscribers,
// replaying recent history to each new one (§4.13).
package logstream

import "sync"

const (
	historySize   = 100
	subscriberCap = 200
)

// Record is one formatted log line handed to the hub.
type Record struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Subscription is a bounded, drop-newest-on-full queue for one subscriber.
type Subscription struct {
	ch chan Record
}

// C returns the channel to read records from.
func (s *Subscription) C() <-chan Record {
	return s.ch
}

// Hub keeps the last historySize records and fans out new ones to
// subscribers. Each subscriber gets its own bounded channel; a full
// channel drops the newest record rather than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	history []Record
	subs    map[*Subscription]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Publish appends rec to history (trimming to historySize) and fans it
// out to every live subscriber without blocking.
func (h *Hub) Publish(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, rec)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	for sub := range h.subs {
		select {
		case sub.ch <- rec:
		default:
			// Subscriber queue full: drop the newest record for it.
		}
	}
}

// Subscribe registers a new subscriber, replays history into its queue,
// and returns the Subscription. Replay happens before the subscriber is
// added to the fan-out set, so no record is delivered twice.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{ch: make(chan Record, subscriberCap)}

	for _, rec := range h.history {
		select {
		case sub.ch <- rec:
		default:
		}
	}

	h.subs[sub] = struct{}{}

	return sub
}

// Unsubscribe detaches sub's queue. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
