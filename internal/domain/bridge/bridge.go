// Package bridge connects one active equipment plugin to the deck
// engine, synthesizing whatever signals the plugin cannot natively
// provide, and forwards live/ended decisions to the delivery layer.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/decklive/decklive-bridge/internal/domain/deck"
	"github.com/decklive/decklive-bridge/internal/infra/delivery"
	"github.com/decklive/decklive-bridge/internal/logging"
	"github.com/decklive/decklive-bridge/internal/plugin"
)

// ErrAlreadyRunning is returned by Start while a plugin is active.
var ErrAlreadyRunning = errors.New("bridge already running")

// Notifier is the outbound delivery surface the bridge talks to. The
// delivery.Notifier satisfies it.
type Notifier interface {
	NowPlaying(ctx context.Context, p delivery.NowPlayingPayload) error
	Status(ctx context.Context, p delivery.StatusPayload) error
	BackendReachable() bool
}

// Config carries the bridge's fixed settings.
type Config struct {
	// Deck tunes live-track detection.
	Deck deck.Config

	// TickInterval paces periodic live-detection re-evaluation while
	// decks are playing. Zero means one second.
	TickInterval time.Duration

	// Warnings are startup network advisories surfaced in status
	// snapshots.
	Warnings []string
}

// Status is the snapshot handed to the owning shell.
type Status struct {
	Running          bool            `json:"running"`
	PluginID         string          `json:"pluginId,omitempty"`
	Connected        bool            `json:"connected"`
	DeviceName       string          `json:"deviceName,omitempty"`
	CurrentTrack     *plugin.Track   `json:"currentTrack,omitempty"`
	Decks            []deck.Snapshot `json:"decks,omitempty"`
	BackendReachable bool            `json:"backendReachable"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// StatusFunc receives status snapshots whenever something observable
// changes.
type StatusFunc func(Status)

// Bridge owns the active plugin and the deck engine. All deck mutation
// happens on the bridge's single event goroutine; Status and Stop may be
// called from anywhere.
type Bridge struct {
	registry *plugin.Registry
	notifier Notifier
	cfg      Config
	log      logging.Logger
	clock    func() time.Time

	// lifecycle serializes Start/Stop against each other; mu guards the
	// fields below and serializes engine access with the run loop.
	lifecycle sync.Mutex

	mu       sync.Mutex
	running  bool
	active   plugin.Plugin
	caps     plugin.Capabilities
	pluginID string
	engine   *deck.Engine
	cancel   context.CancelFunc
	done     chan struct{}
	runCtx   context.Context

	connected  bool
	deviceName string
	current    *plugin.Track
	statusFn   StatusFunc

	// activeDecks tracks which decks hold a track, for master-deck
	// synthesis.
	activeDecks map[string]bool

	// pending deliveries collected by engine callbacks while the mutex
	// is held, flushed to the notifier outside it.
	pendingLive    []delivery.NowPlayingPayload
	pendingCleared []string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithEngineClock overrides the deck engine's time source. Tests only.
func WithEngineClock(now func() time.Time) Option {
	return func(b *Bridge) { b.clock = now }
}

// New creates a stopped bridge.
func New(registry *plugin.Registry, notifier Notifier, cfg Config, opts ...Option) *Bridge {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	b := &Bridge{
		registry: registry,
		notifier: notifier,
		cfg:      cfg,
		log:      logging.For("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetStatusFunc installs the snapshot callback. Pass nil to remove it.
func (b *Bridge) SetStatusFunc(fn StatusFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusFn = fn
}

// Start instantiates pluginID from the registry, starts it and begins
// consuming its events. Unknown ids and plugin start failures are
// returned to the caller once; whether to retry is the shell's call.
func (b *Bridge) Start(pluginID string, pluginCfg map[string]any) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	b.mu.Unlock()

	p, err := b.registry.New(pluginID)
	if err != nil {
		return err
	}

	engineOpts := []deck.Option{
		deck.WithLiveFunc(b.onDeckLive),
		deck.WithClearedFunc(b.onNowPlayingCleared),
	}
	if b.clock != nil {
		engineOpts = append(engineOpts, deck.WithClock(b.clock))
	}
	engine := deck.NewEngine(b.cfg.Deck, engineOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx, pluginCfg); err != nil {
		cancel()
		return fmt.Errorf("failed to start plugin %s: %w", pluginID, err)
	}

	b.mu.Lock()
	b.running = true
	b.active = p
	b.caps = p.Capabilities()
	b.pluginID = pluginID
	b.engine = engine
	b.cancel = cancel
	b.runCtx = ctx
	b.done = make(chan struct{})
	b.connected = false
	b.deviceName = ""
	b.current = nil
	b.activeDecks = make(map[string]bool)
	done := b.done
	b.mu.Unlock()

	b.log.Infof("started with plugin %s", pluginID)
	go b.run(ctx, p, done)
	b.pushStatus()
	return nil
}

// Stop stops the active plugin (best-effort, failures logged), cancels
// periodic ticks and resets deck state. Buffered undelivered payloads
// stay in the history buffer for later resumption. Safe to call
// repeatedly and while already stopped.
func (b *Bridge) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	p := b.active
	cancel := b.cancel
	done := b.done
	b.running = false
	b.active = nil
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	if err := p.Stop(); err != nil {
		b.log.Warnf("plugin stop failed: %v", err)
	}
	<-done

	b.mu.Lock()
	b.engine.Reset()
	wasConnected := b.connected
	b.connected = false
	b.deviceName = ""
	b.current = nil
	b.activeDecks = make(map[string]bool)
	b.mu.Unlock()

	if wasConnected {
		b.notifier.Status(context.Background(), delivery.StatusPayload{
			EventCode: delivery.EventCodeStatus,
			Connected: false,
		})
	}
	b.pushStatus()
	b.log.Infof("stopped")
}

// Status assembles the current snapshot.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *Bridge) statusLocked() Status {
	s := Status{
		Running:          b.running,
		PluginID:         b.pluginID,
		Connected:        b.connected,
		DeviceName:       b.deviceName,
		CurrentTrack:     b.current,
		BackendReachable: b.notifier.BackendReachable(),
		Warnings:         b.cfg.Warnings,
	}
	if b.engine != nil {
		s.Decks = b.engine.Snapshots()
	}
	return s
}

func (b *Bridge) pushStatus() {
	b.mu.Lock()
	fn := b.statusFn
	s := b.statusLocked()
	b.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// onDeckLive runs inside the engine, with b.mu held.
func (b *Bridge) onDeckLive(deckID string, track plugin.Track) {
	b.current = &plugin.Track{Title: track.Title, Artist: track.Artist, Album: track.Album}
	b.pendingLive = append(b.pendingLive, delivery.NowPlayingPayload{
		ID:        uuid.NewString(),
		EventCode: delivery.EventCodeNowPlaying,
		Title:     track.Title,
		Artist:    track.Artist,
		Album:     track.Album,
		Deck:      deckID,
	})
}

// onNowPlayingCleared runs inside the engine, with b.mu held.
func (b *Bridge) onNowPlayingCleared(deckID string) {
	b.current = nil
	b.pendingCleared = append(b.pendingCleared, deckID)
}

// flush delivers whatever the engine callbacks queued, without holding
// the mutex across network calls.
func (b *Bridge) flush(ctx context.Context) {
	b.mu.Lock()
	live := b.pendingLive
	cleared := b.pendingCleared
	b.pendingLive = nil
	b.pendingCleared = nil
	b.mu.Unlock()

	for _, p := range live {
		b.notifier.NowPlaying(ctx, p)
	}
	for _, deckID := range cleared {
		b.notifier.NowPlaying(ctx, delivery.NowPlayingPayload{
			ID:        uuid.NewString(),
			EventCode: delivery.EventCodeStopped,
			Deck:      deckID,
		})
	}
	if len(live) > 0 || len(cleared) > 0 {
		b.pushStatus()
	}
}
