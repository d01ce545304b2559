package delivery

import "time"

// BreakerState is the circuit breaker phase.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the lowercase state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

// Breaker isolates a failing delivery operation: a run of consecutive
// failures opens the circuit, a cooldown later one trial call is let
// through, and its outcome decides between closing again and reopening.
//
// Breaker is not safe for concurrent use on its own; the Notifier
// serializes every access under one mutex, together with the buffer.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker. Non-positive arguments fall back
// to the defaults.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a delivery attempt may proceed, promoting an
// open breaker to half-open once the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and clears the failure run.
func (b *Breaker) RecordSuccess() {
	b.state = BreakerClosed
	b.failures = 0
}

// RecordFailure counts a failed attempt. The half-open trial failing, or
// the failure run reaching the threshold, opens the breaker.
func (b *Breaker) RecordFailure() {
	if b.state == BreakerHalfOpen {
		b.trip()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.trip()
	}
}

// Trip forces the breaker open, regardless of the failure count. Used
// when a buffered replay fails mid-drain.
func (b *Breaker) Trip() {
	b.trip()
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.failures = 0
	b.openedAt = b.now()
}

// State returns the current phase without side effects.
func (b *Breaker) State() BreakerState {
	return b.state
}
