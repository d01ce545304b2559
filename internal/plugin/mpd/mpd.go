// Package mpd sources playback telemetry from a Music Player Daemon
// instance over the gompd client. MPD has a single playback queue, so
// everything maps onto one deck; play state and album tags are native,
// fader and master signals are not.
package mpd

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	gompd "github.com/fhs/gompd/v2/mpd"

	"github.com/decklive/decklive-bridge/internal/plugin"
)

const (
	defaultHost = "localhost"
	defaultPort = 6600

	// pingInterval paces liveness checks between idle notifications.
	pingInterval = 15 * time.Second
)

// deckID is the only deck MPD can report.
const deckID = "1"

// Plugin adapts one MPD server to the plugin contract.
type Plugin struct {
	events chan plugin.Event

	mu      sync.Mutex
	client  *gompd.Client
	watcher *gompd.Watcher
	cancel  context.CancelFunc

	host     string
	port     int
	password string

	// lastFile and lastPlaying dedupe watcher wakeups that did not
	// change anything observable.
	lastFile    string
	lastPlaying bool
	haveState   bool
}

// New creates a disconnected plugin. No I/O happens until Start.
func New() *Plugin {
	return &Plugin{events: make(chan plugin.Event, 16)}
}

// Info implements plugin.Plugin.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		ID:          "mpd",
		Name:        "Music Player Daemon",
		Description: "Tracks the playback queue of an MPD server",
	}
}

// Capabilities implements plugin.Plugin.
func (p *Plugin) Capabilities() plugin.Capabilities {
	return plugin.Capabilities{
		PlayState:     true,
		AlbumMetadata: true,
	}
}

// ConfigOptions implements plugin.Plugin.
func (p *Plugin) ConfigOptions() []plugin.ConfigOption {
	return []plugin.ConfigOption{
		{
			Key:     "host",
			Label:   "MPD host",
			Type:    plugin.OptionString,
			Default: defaultHost,
		},
		{
			Key:     "port",
			Label:   "MPD port",
			Type:    plugin.OptionNumber,
			Default: defaultPort,
			Min:     floatPtr(1),
			Max:     floatPtr(65535),
		},
		{
			Key:         "password",
			Label:       "MPD password",
			Type:        plugin.OptionString,
			Default:     "",
			Description: "Leave empty when the server has no password set",
		},
	}
}

// Events implements plugin.Plugin.
func (p *Plugin) Events() <-chan plugin.Event {
	return p.events
}

// Start implements plugin.Plugin. It dials the server and subscribes to
// player subsystem changes; a failed dial is returned to the caller
// instead of being retried here.
func (p *Plugin) Start(ctx context.Context, cfg map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.host = stringOption(cfg, "host", defaultHost)
	p.port = intOption(cfg, "port", defaultPort)
	p.password = stringOption(cfg, "password", "")

	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	client, err := gompd.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD at %s: %w", addr, err)
	}
	if p.password != "" {
		if err := client.Command("password %s", p.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}

	watcher, err := gompd.NewWatcher("tcp", addr, p.password, "player")
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to watch MPD: %w", err)
	}

	p.client = client
	p.watcher = watcher
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx, watcher)
	return nil
}

// Stop implements plugin.Plugin. Safe to call repeatedly and on a
// never-started instance.
func (p *Plugin) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}
	p.cancel()
	p.cancel = nil

	if p.watcher != nil {
		p.watcher.Close()
		p.watcher = nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	return nil
}

func (p *Plugin) run(ctx context.Context, watcher *gompd.Watcher) {
	defer close(p.events)

	p.send(ctx, plugin.ConnectionEvent{Connected: true, DeviceName: fmt.Sprintf("MPD (%s)", p.host)})
	p.refresh(ctx)
	p.send(ctx, plugin.ReadyEvent{})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-watcher.Event:
			if !ok {
				p.send(ctx, plugin.ConnectionEvent{Connected: false})
				return
			}
			p.refresh(ctx)

		case err, ok := <-watcher.Error:
			if !ok {
				p.send(ctx, plugin.ConnectionEvent{Connected: false})
				return
			}
			p.send(ctx, plugin.ErrorEvent{Err: err})

		case <-ticker.C:
			if err := p.ping(); err != nil {
				p.send(ctx, plugin.ErrorEvent{Err: fmt.Errorf("MPD connection lost: %w", err), Fatal: true})
				p.send(ctx, plugin.ConnectionEvent{Connected: false})
				return
			}
		}
	}
}

func (p *Plugin) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return fmt.Errorf("not connected")
	}
	return p.client.Ping()
}

// refresh reads the server state and emits whatever changed since the
// last look.
func (p *Plugin) refresh(ctx context.Context) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return
	}

	status, err := client.Status()
	if err != nil {
		p.send(ctx, plugin.ErrorEvent{Err: fmt.Errorf("failed to read MPD status: %w", err)})
		return
	}

	if status["state"] == "stop" {
		p.emitStopped(ctx)
		return
	}

	song, err := client.CurrentSong()
	if err != nil {
		p.send(ctx, plugin.ErrorEvent{Err: fmt.Errorf("failed to read current song: %w", err)})
		return
	}

	track, file := trackFromSong(song)
	playing := status["state"] == "play"

	p.mu.Lock()
	fileChanged := file != p.lastFile
	playChanged := !p.haveState || playing != p.lastPlaying
	p.lastFile = file
	p.lastPlaying = playing
	p.haveState = true
	p.mu.Unlock()

	if fileChanged {
		if track == nil {
			p.send(ctx, plugin.TrackEvent{DeckID: deckID, Track: nil})
		} else {
			p.send(ctx, plugin.TrackEvent{DeckID: deckID, Track: track})
		}
	}
	if playChanged {
		p.send(ctx, plugin.PlayStateEvent{DeckID: deckID, IsPlaying: playing})
	}
}

func (p *Plugin) emitStopped(ctx context.Context) {
	p.mu.Lock()
	hadTrack := p.lastFile != ""
	stateChanged := !p.haveState || p.lastPlaying
	p.lastFile = ""
	p.lastPlaying = false
	p.haveState = true
	p.mu.Unlock()

	if stateChanged {
		p.send(ctx, plugin.PlayStateEvent{DeckID: deckID, IsPlaying: false})
	}
	if hadTrack {
		p.send(ctx, plugin.TrackEvent{DeckID: deckID, Track: nil})
	}
}

// trackFromSong maps MPD song attributes to a track. A song with no
// Title tag falls back to the file's base name, matching what MPD
// clients display for untagged files. Returns the file attribute for
// change detection.
func trackFromSong(song map[string]string) (*plugin.Track, string) {
	file := song["file"]
	if file == "" {
		return nil, ""
	}

	title := song["Title"]
	if title == "" {
		title = strings.TrimSuffix(path.Base(file), path.Ext(file))
	}
	return &plugin.Track{
		Title:  title,
		Artist: song["Artist"],
		Album:  song["Album"],
	}, file
}

func (p *Plugin) send(ctx context.Context, ev plugin.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case p.events <- ev:
		return true
	}
}

func stringOption(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intOption(cfg map[string]any, key string, fallback int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func floatPtr(f float64) *float64 { return &f }
