package sensor

import (
	"sync"
	"time"
)

// Sample is one retained smoke-level observation.
type Sample struct {
	SmokeLevel float64   `json:"smokeLevel"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// History keeps a bounded in-memory ring of recent samples per room.
// When a room's ring is full the oldest sample is evicted. Nothing is
// persisted; restarting the process starts the rings empty.
type History struct {
	mu     sync.Mutex
	window int
	rings  map[string][]Sample
}

// NewHistory builds a history buffer retaining up to window samples per
// room. A window of zero or less disables retention.
func NewHistory(window int) *History {
	return &History{
		window: window,
		rings:  make(map[string][]Sample),
	}
}

// Append records one sample for a room, evicting the oldest if the window
// is full.
func (h *History) Append(roomID string, sample Sample) {
	if h.window <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ring := h.rings[roomID]
	if len(ring) >= h.window {
		ring = ring[1:]
	}
	h.rings[roomID] = append(ring, sample)
}

// Samples returns the retained samples for a room, oldest first.
func (h *History) Samples(roomID string) []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()

	ring := h.rings[roomID]
	out := make([]Sample, len(ring))
	copy(out, ring)
	return out
}
