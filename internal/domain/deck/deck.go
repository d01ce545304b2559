// Package deck turns raw, bouncy play/pause/fader telemetry into a single
// debounced "this track is now live" decision per deck.
package deck

import (
	"time"

	"github.com/decklive/decklive-bridge/internal/plugin"
)

// State is the lifecycle phase of one deck.
type State string

const (
	StateEmpty   State = "empty"
	StateLoaded  State = "loaded"
	StateCueing  State = "cueing"
	StatePlaying State = "playing"
	StateEnded   State = "ended"
)

// Config tunes live-track detection. It is supplied once at engine
// construction and never changes; adjusting settings means restarting
// the bridge.
type Config struct {
	// LiveThresholdSeconds is how long a track must accumulate play
	// time before it is judged live.
	LiveThresholdSeconds float64 `yaml:"liveThresholdSeconds"`

	// PauseGraceSeconds is the pause length tolerated without resetting
	// accumulated play time (beatmatching, cueing nudges).
	PauseGraceSeconds float64 `yaml:"pauseGraceSeconds"`

	// NowPlayingPauseSeconds is the longer pause after which an
	// already-reported track stops being advertised as now playing.
	NowPlayingPauseSeconds float64 `yaml:"nowPlayingPauseSeconds"`

	// MinPlaySeconds is a second, independent floor on accumulated play
	// time before reporting.
	MinPlaySeconds float64 `yaml:"minPlaySeconds"`

	// UseFaderDetection requires the channel fader to be open (> 0)
	// before a deck can go live.
	UseFaderDetection bool `yaml:"useFaderDetection"`

	// MasterDeckPriority requires the deck to be the equipment's master
	// deck before it can go live.
	MasterDeckPriority bool `yaml:"masterDeckPriority"`
}

// DefaultConfig returns detection settings tuned against club equipment.
func DefaultConfig() Config {
	return Config{
		LiveThresholdSeconds:   15,
		PauseGraceSeconds:      3,
		NowPlayingPauseSeconds: 30,
		MinPlaySeconds:         5,
		UseFaderDetection:      true,
		MasterDeckPriority:     false,
	}
}

// Normalize replaces non-positive threshold values with the defaults so
// a partially filled settings file cannot disable detection entirely.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.LiveThresholdSeconds <= 0 {
		c.LiveThresholdSeconds = def.LiveThresholdSeconds
	}
	if c.PauseGraceSeconds <= 0 {
		c.PauseGraceSeconds = def.PauseGraceSeconds
	}
	if c.NowPlayingPauseSeconds <= 0 {
		c.NowPlayingPauseSeconds = def.NowPlayingPauseSeconds
	}
	if c.MinPlaySeconds < 0 {
		c.MinPlaySeconds = def.MinPlaySeconds
	}
	return c
}

// deckState is the engine-owned state for one playback channel. The
// engine is its sole mutator.
type deckState struct {
	id    string
	state State
	track *plugin.Track

	isPlaying       bool
	playStart       time.Time
	lastAccumulate  time.Time
	accumulated     time.Duration
	lastPause       time.Time
	faderLevel      float64
	isMaster        bool
	hasBeenReported bool

	// clearedNotified marks that the long-pause "no longer now playing"
	// signal already fired for the current reported track.
	clearedNotified bool
}

// Snapshot is the read-only view of one deck exposed for status
// reporting.
type Snapshot struct {
	ID                 string        `json:"id"`
	State              State         `json:"state"`
	Track              *plugin.Track `json:"track,omitempty"`
	IsPlaying          bool          `json:"isPlaying"`
	FaderLevel         float64       `json:"faderLevel"`
	IsMaster           bool          `json:"isMaster"`
	Reported           bool          `json:"reported"`
	AccumulatedSeconds float64       `json:"accumulatedSeconds"`
}
