package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/decklive/decklive-bridge/internal/logging"
)

// Notifier wraps a Sender with the circuit breaker and the history
// buffer. Delivery failures are absorbed, never returned: the payload is
// buffered and replayed with the delayed flag once the remote service
// recovers.
//
// One mutex guards both the breaker and the buffer so the normal
// delivery path and the replay path can never double-deliver a buffered
// item.
type Notifier struct {
	sender  Sender
	breaker *Breaker
	buffer  *Buffer
	log     logging.Logger

	mu sync.Mutex
}

// NotifierOption configures a Notifier.
type NotifierOption func(*notifierConfig)

type notifierConfig struct {
	threshold      int
	cooldown       time.Duration
	bufferCapacity int
	clock          func() time.Time
}

// WithFailureThreshold sets how many consecutive failures open the
// circuit.
func WithFailureThreshold(n int) NotifierOption {
	return func(c *notifierConfig) { c.threshold = n }
}

// WithCooldown sets how long the circuit stays open before a trial
// delivery is permitted.
func WithCooldown(d time.Duration) NotifierOption {
	return func(c *notifierConfig) { c.cooldown = d }
}

// WithBufferCapacity sets how many undelivered payloads are retained.
func WithBufferCapacity(n int) NotifierOption {
	return func(c *notifierConfig) { c.bufferCapacity = n }
}

// WithClock overrides the breaker's time source. Tests only.
func WithClock(now func() time.Time) NotifierOption {
	return func(c *notifierConfig) { c.clock = now }
}

// NewNotifier creates a notifier delivering through sender.
func NewNotifier(sender Sender, opts ...NotifierOption) *Notifier {
	cfg := notifierConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	breaker := NewBreaker(cfg.threshold, cfg.cooldown)
	if cfg.clock != nil {
		breaker.now = cfg.clock
	}

	return &Notifier{
		sender:  sender,
		breaker: breaker,
		buffer:  NewBuffer(cfg.bufferCapacity),
		log:     logging.For("delivery"),
	}
}

// NowPlaying delivers a track payload, buffering it instead when the
// circuit is open or the send fails. Always returns nil; connectivity
// trouble is this layer's job to absorb.
func (n *Notifier) NowPlaying(ctx context.Context, p NowPlayingPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.breaker.Allow() {
		n.buffer.Push(BufferedTrack{Payload: p, Timestamp: time.Now()})
		n.log.Debugf("circuit open, buffered %q (%d pending)", p.Title, n.buffer.Size())
		return nil
	}

	if err := n.sender.NowPlaying(ctx, p); err != nil {
		n.breaker.RecordFailure()
		n.buffer.Push(BufferedTrack{Payload: p, Timestamp: time.Now()})
		n.log.Warnf("delivery failed, buffered %q (%d pending): %v", p.Title, n.buffer.Size(), err)
		return nil
	}

	n.breaker.RecordSuccess()
	n.replayLocked(ctx)
	return nil
}

// Status delivers a connection status payload. Status events are not
// replayed: a stale connected/disconnected flag is worse than none.
func (n *Notifier) Status(ctx context.Context, p StatusPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.breaker.Allow() {
		n.log.Debugf("circuit open, dropping status event")
		return nil
	}

	if err := n.sender.Status(ctx, p); err != nil {
		n.breaker.RecordFailure()
		n.log.Warnf("status delivery failed: %v", err)
		return nil
	}

	n.breaker.RecordSuccess()
	n.replayLocked(ctx)
	return nil
}

// replayLocked drains the buffer oldest-first, re-sending each payload
// flagged as delayed. A failure mid-drain re-buffers the remainder in
// order and reopens the circuit. Caller holds n.mu.
func (n *Notifier) replayLocked(ctx context.Context) {
	if n.buffer.Size() == 0 {
		return
	}

	items := n.buffer.Drain()
	n.log.Infof("replaying %d buffered payloads", len(items))

	for i, item := range items {
		p := item.Payload
		p.Delayed = true
		if err := n.sender.NowPlaying(ctx, p); err != nil {
			n.breaker.Trip()
			for _, rest := range items[i:] {
				n.buffer.Push(rest)
			}
			n.log.Warnf("replay failed after %d payloads, re-buffered %d: %v", i, len(items)-i, err)
			return
		}
	}
}

// BackendReachable reports whether the remote service is considered
// reachable: true unless the circuit is open.
func (n *Notifier) BackendReachable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.breaker.State() != BreakerOpen
}

// BufferSize returns how many payloads await replay.
func (n *Notifier) BufferSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.buffer.Size()
}
