package server

import "sync"

const defaultHistorySize = 50

// historyBuffer keeps the most recent chat broadcasts in insertion order.
// Appending beyond capacity evicts exactly one entry, the oldest.
type historyBuffer struct {
	mu       sync.Mutex
	entries  []HistoryEntry
	capacity int
}

func newHistoryBuffer(capacity int) *historyBuffer {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &historyBuffer{capacity: capacity}
}

// setCapacity adjusts the window size, evicting oldest entries if the buffer
// already holds more than the new capacity allows.
func (h *historyBuffer) setCapacity(capacity int) {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.capacity = capacity
	if excess := len(h.entries) - capacity; excess > 0 {
		h.entries = append(h.entries[:0], h.entries[excess:]...)
	}
}

func (h *historyBuffer) append(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.capacity {
		// Shift in place so the backing array stays bounded.
		h.entries = append(h.entries[:0], h.entries[1:]...)
	}
	metricHistoryEntries.Set(float64(len(h.entries)))
}

// snapshot returns an oldest-first copy, so later appends cannot mutate a
// view already handed to a client.
func (h *historyBuffer) snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *historyBuffer) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
