package delivery_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/decklive/decklive-bridge/internal/infra/delivery"
)

func buffered(title string) delivery.BufferedTrack {
	return delivery.BufferedTrack{
		Payload: delivery.NowPlayingPayload{
			EventCode: delivery.EventCodeNowPlaying,
			Title:     title,
			Artist:    "Test Artist",
		},
		Timestamp: time.Now(),
	}
}

func TestBufferOverflowEvictsOldest(t *testing.T) {
	const capacity = 5
	const extra = 3
	b := delivery.NewBuffer(capacity)

	for i := 0; i < capacity+extra; i++ {
		b.Push(buffered(fmt.Sprintf("track-%d", i)))
	}

	if b.Size() != capacity {
		t.Fatalf("expected size %d after overflow, got %d", capacity, b.Size())
	}

	items := b.Drain()
	if len(items) != capacity {
		t.Fatalf("expected %d drained items, got %d", capacity, len(items))
	}

	// The most recent capacity items survive, oldest-first.
	for i, item := range items {
		want := fmt.Sprintf("track-%d", i+extra)
		if item.Payload.Title != want {
			t.Errorf("item %d: expected %q, got %q", i, want, item.Payload.Title)
		}
	}
}

func TestDrainEmptiesBuffer(t *testing.T) {
	b := delivery.NewBuffer(10)
	b.Push(buffered("a"))
	b.Push(buffered("b"))

	if got := len(b.Drain()); got != 2 {
		t.Fatalf("expected 2 drained items, got %d", got)
	}
	if b.Size() != 0 {
		t.Errorf("expected empty buffer after drain, got size %d", b.Size())
	}
	if got := len(b.Drain()); got != 0 {
		t.Errorf("expected nothing on second drain, got %d", got)
	}
}

func TestBufferClear(t *testing.T) {
	b := delivery.NewBuffer(10)
	b.Push(buffered("a"))
	b.Clear()
	if b.Size() != 0 {
		t.Errorf("expected empty buffer after clear, got size %d", b.Size())
	}
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := delivery.NewBuffer(0)
	for i := 0; i < delivery.DefaultBufferCapacity+5; i++ {
		b.Push(buffered(fmt.Sprintf("track-%d", i)))
	}
	if b.Size() != delivery.DefaultBufferCapacity {
		t.Errorf("expected default capacity %d, got %d", delivery.DefaultBufferCapacity, b.Size())
	}
}
