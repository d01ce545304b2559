package bridge

import (
	"context"
	"time"

	"github.com/decklive/decklive-bridge/internal/infra/delivery"
	"github.com/decklive/decklive-bridge/internal/logging"
	"github.com/decklive/decklive-bridge/internal/plugin"
)

// canonicalDeckID is the single deck everything collapses to for
// plugins that cannot distinguish decks.
const canonicalDeckID = "1"

// run is the bridge's single event goroutine: plugin events and
// periodic ticks are serialized here, so no two goroutines ever mutate
// the same deck's state.
func (b *Bridge) run(ctx context.Context, p plugin.Plugin, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.cfg.TickInterval)
	defer ticker.Stop()

	events := p.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				// The plugin died on its own; the shell decides whether
				// to restart the bridge.
				b.log.Errorf("plugin event stream ended unexpectedly")
				b.mu.Lock()
				b.connected = false
				b.mu.Unlock()
				b.pushStatus()
				return
			}
			b.handleEvent(ctx, ev)
		case <-ticker.C:
			b.mu.Lock()
			b.engine.Tick()
			b.mu.Unlock()
			b.flush(ctx)
		}
	}
}

// handleEvent normalizes one plugin event, applies capability synthesis
// and feeds the engine. Synthesized events travel the same path as
// native ones; the engine cannot tell them apart.
func (b *Bridge) handleEvent(ctx context.Context, ev plugin.Event) {
	switch ev := ev.(type) {
	case plugin.TrackEvent:
		b.mu.Lock()
		b.applyTrackLocked(ev)
		b.mu.Unlock()
		b.flush(ctx)
		b.pushStatus()

	case plugin.PlayStateEvent:
		b.mu.Lock()
		b.engine.OnPlayState(b.deckID(ev.DeckID), ev.IsPlaying)
		b.mu.Unlock()
		b.flush(ctx)
		b.pushStatus()

	case plugin.FaderEvent:
		b.mu.Lock()
		b.engine.OnFader(b.deckID(ev.DeckID), ev.Level)
		b.mu.Unlock()
		b.flush(ctx)

	case plugin.MasterDeckEvent:
		b.mu.Lock()
		b.engine.OnMasterDeck(b.deckID(ev.DeckID))
		b.mu.Unlock()
		b.flush(ctx)

	case plugin.ConnectionEvent:
		b.mu.Lock()
		b.connected = ev.Connected
		b.deviceName = ev.DeviceName
		b.mu.Unlock()
		b.notifier.Status(ctx, delivery.StatusPayload{
			EventCode:  delivery.EventCodeStatus,
			Connected:  ev.Connected,
			DeviceName: ev.DeviceName,
		})
		b.pushStatus()

	case plugin.ReadyEvent:
		b.log.Infof("plugin %s ready", b.pluginID)

	case plugin.LogEvent:
		plog := logging.For("plugin." + b.pluginID)
		switch logging.ParseLevel(ev.Level) {
		case logging.LevelDebug:
			plog.Debugf("%s", ev.Message)
		case logging.LevelWarn:
			plog.Warnf("%s", ev.Message)
		case logging.LevelError:
			plog.Errorf("%s", ev.Message)
		default:
			plog.Infof("%s", ev.Message)
		}

	case plugin.ErrorEvent:
		if ev.Fatal {
			b.log.Errorf("plugin %s failed fatally: %v", b.pluginID, ev.Err)
			b.mu.Lock()
			b.connected = false
			b.mu.Unlock()
			b.pushStatus()
		} else {
			b.log.Warnf("plugin %s: %v", b.pluginID, ev.Err)
		}
	}
}

// deckID collapses deck identifiers to the canonical deck for plugins
// that cannot report multiple decks, and defaults empty ids.
func (b *Bridge) deckID(id string) string {
	if !b.caps.MultiDeck || id == "" {
		return canonicalDeckID
	}
	return id
}

// applyTrackLocked feeds a track event to the engine together with any
// signals the active plugin cannot produce itself. Caller holds b.mu.
func (b *Bridge) applyTrackLocked(ev plugin.TrackEvent) {
	deckID := b.deckID(ev.DeckID)

	if ev.Track == nil {
		if !b.caps.PlayState {
			b.engine.OnPlayState(deckID, false)
		}
		b.engine.OnTrack(deckID, nil)
		delete(b.activeDecks, deckID)
		if b.current != nil {
			// The advertised track ended; the next live decision will
			// set a new one.
			b.current = nil
		}
		b.synthesizeMasterLocked()
		return
	}

	track := *ev.Track
	if !b.caps.AlbumMetadata {
		// Album is never synthesized; nothing downstream depends on it.
		track.Album = ""
	}

	b.engine.OnTrack(deckID, &track)
	b.activeDecks[deckID] = true

	if !b.caps.PlayState {
		// No native play signal: a loaded track is a playing track, an
		// emptied one is paused.
		b.engine.OnPlayState(deckID, true)
	}
	if !b.caps.FaderLevel {
		// No native fader: report the channel fully open so fader
		// detection never blocks this plugin.
		b.engine.OnFader(deckID, 1.0)
	}
	if !b.caps.MasterDeck {
		b.synthesizeMasterLocked()
	}
}

// synthesizeMasterLocked fills in master-deck designation for plugins
// without one: a single active deck is the master; with several active
// decks there is nothing to choose on, so the master gate is bypassed.
// Caller holds b.mu.
func (b *Bridge) synthesizeMasterLocked() {
	if b.caps.MasterDeck {
		return
	}
	switch len(b.activeDecks) {
	case 0:
		b.engine.SetMasterGateBypassed(false)
	case 1:
		b.engine.SetMasterGateBypassed(false)
		for deckID := range b.activeDecks {
			b.engine.OnMasterDeck(deckID)
		}
	default:
		b.engine.SetMasterGateBypassed(true)
	}
}
