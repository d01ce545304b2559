package delivery

import (
	"sync"
	"time"
)

// DefaultBufferCapacity bounds how many undelivered payloads survive an
// outage. Loss beyond that is accepted, bounded degradation.
const DefaultBufferCapacity = 20

// BufferedTrack is one payload awaiting replay, stamped with its
// original capture time.
type BufferedTrack struct {
	Payload   NowPlayingPayload
	Timestamp time.Time
}

// Buffer is a fixed-capacity circular store of payloads awaiting
// replay. Push never blocks and never errors: when full, the oldest
// entry is evicted. Not persisted across restarts.
type Buffer struct {
	mu       sync.Mutex
	entries  []BufferedTrack
	capacity int
}

// NewBuffer creates a buffer holding at most capacity entries.
// Non-positive capacities fall back to DefaultBufferCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{capacity: capacity}
}

// Push appends an entry, evicting the oldest when the buffer is full.
func (b *Buffer) Push(t BufferedTrack) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity+1:]
	}
	b.entries = append(b.entries, t)
}

// Drain atomically returns and empties the full content in insertion
// order.
func (b *Buffer) Drain() []BufferedTrack {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.entries
	b.entries = nil
	return out
}

// Size returns the number of buffered entries.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear discards all buffered entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
