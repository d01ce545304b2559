package deck

import (
	"sort"
	"time"

	"github.com/decklive/decklive-bridge/internal/logging"
	"github.com/decklive/decklive-bridge/internal/plugin"
)

// LiveFunc receives the deck id and track judged live.
type LiveFunc func(deckID string, track plugin.Track)

// ClearedFunc receives the deck id whose reported track stopped being
// advertised as now playing after a long pause.
type ClearedFunc func(deckID string)

// Engine runs one state machine per observed deck id. It is not safe
// for concurrent use: the owning bridge serializes all event delivery
// and ticks onto a single goroutine.
type Engine struct {
	cfg   Config
	decks map[string]*deckState
	now   func() time.Time
	log   logging.Logger

	onLive    LiveFunc
	onCleared ClearedFunc

	// masterGateBypassed is set by the bridge when the active plugin
	// cannot report a master deck and more than one deck is active, in
	// which case master-deck priority cannot be meaningfully enforced.
	masterGateBypassed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLiveFunc sets the callback fired when a deck goes live.
func WithLiveFunc(fn LiveFunc) Option {
	return func(e *Engine) { e.onLive = fn }
}

// WithClearedFunc sets the callback fired when a reported track stops
// being advertised as now playing.
func WithClearedFunc(fn ClearedFunc) Option {
	return func(e *Engine) { e.onCleared = fn }
}

// NewEngine creates an engine with the given detection settings.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg.Normalize(),
		decks: make(map[string]*deckState),
		now:   time.Now,
		log:   logging.For("deck"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetMasterGateBypassed toggles whether master-deck priority is treated
// as always satisfied.
func (e *Engine) SetMasterGateBypassed(bypassed bool) {
	e.masterGateBypassed = bypassed
}

// ensure returns the deck for id, lazily creating a default one.
// Equipment telemetry ordering is not guaranteed, so fader or master
// events may legitimately arrive before any track event.
func (e *Engine) ensure(id string) *deckState {
	if d, ok := e.decks[id]; ok {
		return d
	}
	d := &deckState{
		id:    id,
		state: StateEmpty,
		// Unknown fader defaults to open so a missing fader signal
		// never blocks live detection.
		faderLevel: 1.0,
	}
	e.decks[id] = d
	return d
}

// OnTrack processes a track load (or nil for deck emptied).
func (e *Engine) OnTrack(deckID string, track *plugin.Track) {
	now := e.now()
	d := e.ensure(deckID)
	e.advance(d, now)

	if track == nil {
		if d.state != StateEmpty {
			e.log.Debugf("deck %s emptied", deckID)
		}
		d.state = StateEnded
		d.track = nil
		d.isPlaying = false
		d.playStart = time.Time{}
		d.lastAccumulate = time.Time{}
		d.lastPause = time.Time{}
		d.accumulated = 0
		d.hasBeenReported = false
		d.clearedNotified = false
		return
	}

	if plugin.SameTrack(d.track, track) {
		// Metadata refresh for the same recording; keep all bookkeeping.
		d.track = track
		e.evaluate(d)
		return
	}

	e.log.Debugf("deck %s loaded %q by %q", deckID, track.Title, track.Artist)
	d.track = track
	d.accumulated = 0
	d.hasBeenReported = false
	d.clearedNotified = false
	d.lastPause = time.Time{}
	if d.isPlaying {
		// Track switched without an intervening pause; the new track is
		// playing from zero.
		d.state = StatePlaying
		d.playStart = now
		d.lastAccumulate = now
	} else {
		d.state = StateLoaded
		d.playStart = time.Time{}
		d.lastAccumulate = time.Time{}
	}
	e.evaluate(d)
}

// OnPlayState processes a play/pause signal.
func (e *Engine) OnPlayState(deckID string, isPlaying bool) {
	now := e.now()
	d := e.ensure(deckID)
	e.advance(d, now)

	if isPlaying {
		d.isPlaying = true
		d.lastPause = time.Time{}
		if d.track != nil && d.state != StatePlaying {
			d.state = StatePlaying
			d.playStart = now
			d.lastAccumulate = now
		}
	} else {
		if d.isPlaying && d.state == StatePlaying {
			d.lastPause = now
		}
		d.isPlaying = false
	}
	e.evaluate(d)
}

// OnFader processes a fader level reading, clamped to [0,1].
func (e *Engine) OnFader(deckID string, level float64) {
	now := e.now()
	d := e.ensure(deckID)
	e.advance(d, now)

	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	d.faderLevel = level
	e.evaluate(d)
}

// OnMasterDeck processes a master-deck designation. Exactly one deck is
// master at a time; a change never retroactively un-reports a deck that
// already went live.
func (e *Engine) OnMasterDeck(deckID string) {
	now := e.now()
	d := e.ensure(deckID)

	for _, other := range e.decks {
		other.isMaster = false
	}
	d.isMaster = true

	e.advance(d, now)
	e.evaluate(d)
}

// Tick advances wall-clock accounting for every deck and re-runs live
// detection. The bridge calls it on a fixed interval.
func (e *Engine) Tick() {
	now := e.now()
	for _, d := range e.decks {
		e.advance(d, now)
		e.evaluate(d)
	}
}

// Reset discards all deck state. Called when the bridge stops.
func (e *Engine) Reset() {
	e.decks = make(map[string]*deckState)
}

// Snapshots returns a stable view of every deck, sorted by id.
func (e *Engine) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(e.decks))
	for _, d := range e.decks {
		out = append(out, Snapshot{
			ID:                 d.id,
			State:              d.state,
			Track:              d.track,
			IsPlaying:          d.isPlaying,
			FaderLevel:         d.faderLevel,
			IsMaster:           d.isMaster,
			Reported:           d.hasBeenReported,
			AccumulatedSeconds: d.accumulated.Seconds(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// advance moves deck bookkeeping forward to now: play time keeps
// accumulating while the deck is in the playing state (including short
// pauses inside the grace window), a pause past the grace window demotes
// the deck to cueing and resets accumulation, and a pause past the
// now-playing window clears the advertised track.
func (e *Engine) advance(d *deckState, now time.Time) {
	if d.state == StatePlaying {
		if !d.lastAccumulate.IsZero() && now.After(d.lastAccumulate) {
			d.accumulated += now.Sub(d.lastAccumulate)
		}
		d.lastAccumulate = now

		if !d.isPlaying && !d.lastPause.IsZero() {
			pause := now.Sub(d.lastPause).Seconds()
			if pause >= e.cfg.PauseGraceSeconds {
				e.log.Debugf("deck %s pause exceeded grace, back to cueing", d.id)
				d.state = StateCueing
				d.accumulated = 0
				d.lastAccumulate = time.Time{}
				d.playStart = time.Time{}
			}
		}
	}

	// The now-playing clear window keeps running in cueing as well; the
	// grace window is shorter than it in any sane configuration.
	if !d.isPlaying && !d.lastPause.IsZero() && d.hasBeenReported && !d.clearedNotified {
		if now.Sub(d.lastPause).Seconds() >= e.cfg.NowPlayingPauseSeconds {
			e.log.Infof("deck %s paused too long, clearing now playing", d.id)
			d.clearedNotified = true
			if e.onCleared != nil {
				e.onCleared(d.id)
			}
		}
	}
}

// evaluate runs the debounced go-live check. All thresholds are
// inclusive lower bounds; a fader at exactly zero counts as muted.
func (e *Engine) evaluate(d *deckState) {
	if d.state != StatePlaying || d.hasBeenReported || d.track == nil {
		return
	}

	secs := d.accumulated.Seconds()
	if secs < e.cfg.LiveThresholdSeconds || secs < e.cfg.MinPlaySeconds {
		return
	}
	if e.cfg.UseFaderDetection && !(d.faderLevel > 0) {
		return
	}
	if e.cfg.MasterDeckPriority && !e.masterGateBypassed && !d.isMaster {
		return
	}

	d.hasBeenReported = true
	e.log.Infof("deck %s live: %q by %q", d.id, d.track.Title, d.track.Artist)
	if e.onLive != nil {
		e.onLive(d.id, *d.track)
	}
}
