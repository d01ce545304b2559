// Package simulator is a scripted equipment source for development and
// demos. It deliberately declares the weakest capability set a
// multi-deck integration can have, so every synthesis path in the
// bridge gets exercised without hardware on the network.
package simulator

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/decklive/decklive-bridge/internal/plugin"
)

const (
	defaultDecks      = 2
	defaultIntervalMs = 30000
)

var playlist = []plugin.Track{
	{Title: "Sandstorm", Artist: "Darude"},
	{Title: "Insomnia", Artist: "Faithless"},
	{Title: "9 PM (Till I Come)", Artist: "ATB"},
	{Title: "Adagio For Strings", Artist: "Tiësto"},
	{Title: "Children", Artist: "Robert Miles"},
}

// Plugin cycles a small playlist across simulated decks.
type Plugin struct {
	events chan plugin.Event

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates an idle simulator.
func New() *Plugin {
	return &Plugin{events: make(chan plugin.Event, 16)}
}

// Info implements plugin.Plugin.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:          "simulator",
		Name:        "Simulator",
		Description: "Scripted playback source for development and demos",
	}
}

// Capabilities implements plugin.Plugin. Only deck separation is
// native; play state, fader, master deck and album all come from bridge
// synthesis.
func (p *Plugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{MultiDeck: true}
}

// ConfigOptions implements plugin.Plugin.
func (p *Plugin) ConfigOptions() []plugin.ConfigOption {
	return []plugin.ConfigOption{
		{
			Key:     "decks",
			Label:   "Deck count",
			Type:    plugin.OptionNumber,
			Default: defaultDecks,
			Min:     floatPtr(1),
			Max:     floatPtr(4),
		},
		{
			Key:         "intervalMs",
			Label:       "Track change interval (ms)",
			Type:        plugin.OptionNumber,
			Default:     defaultIntervalMs,
			Min:         floatPtr(1000),
			Description: "How long each simulated track plays before the next loads",
		},
	}
}

// Events implements plugin.Plugin.
func (p *Plugin) Events() <-chan plugin.Event {
	return p.events
}

// Start implements plugin.Plugin.
func (p *Plugin) Start(ctx context.Context, cfg map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	decks := intOption(cfg, "decks", defaultDecks)
	if decks < 1 {
		decks = 1
	}
	interval := time.Duration(intOption(cfg, "intervalMs", defaultIntervalMs)) * time.Millisecond
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx, decks, interval)
	return nil
}

// Stop implements plugin.Plugin. Safe to call repeatedly and on a
// never-started instance.
func (p *Plugin) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return nil
}

func (p *Plugin) run(ctx context.Context, decks int, interval time.Duration) {
	defer close(p.events)

	p.send(ctx, plugin.ConnectionEvent{Connected: true, DeviceName: "Simulator"})
	p.send(ctx, plugin.ReadyEvent{})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := 0
	for {
		deckID := strconv.Itoa(step%decks + 1)
		track := playlist[(step/decks)%len(playlist)]
		if !p.send(ctx, plugin.TrackEvent{DeckID: deckID, Track: &track}) {
			return
		}
		step++

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// send delivers an event unless the plugin is shutting down.
func (p *Plugin) send(ctx context.Context, ev plugin.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case p.events <- ev:
		return true
	}
}

func intOption(cfg map[string]any, key string, fallback int) int {
	v, ok := cfg[key]
	if !ok {
		return fallback
	}
	switch v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func floatPtr(f float64) *float64 { return &f }
