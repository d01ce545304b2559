// Package plugin defines the contract every equipment integration speaks:
// the event vocabulary, the capability flags that drive synthesis in the
// bridge, and the registry that maps plugin ids to factories.
package plugin

import "context"

// Info identifies a plugin. ID is the stable identity key used by the
// registry and by settings.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Capabilities declares which signals a plugin can natively observe.
// The bridge synthesizes anything a plugin cannot provide, so the deck
// engine always sees a complete signal set.
type Capabilities struct {
	MultiDeck     bool `json:"multiDeck"`
	PlayState     bool `json:"playState"`
	FaderLevel    bool `json:"faderLevel"`
	MasterDeck    bool `json:"masterDeck"`
	AlbumMetadata bool `json:"albumMetadata"`
}

// Config option value types.
const (
	OptionNumber  = "number"
	OptionString  = "string"
	OptionBoolean = "boolean"
)

// ConfigOption describes one user-tunable knob a plugin exposes. It is
// introspection data for the UI; plugins read the actual values from the
// config map passed to Start.
type ConfigOption struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Default     any      `json:"default"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Track is the metadata a deck reports for a loaded track.
// Album is empty when the equipment does not provide it.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// SameTrack reports whether two tracks are the same recording.
// Identity is title plus artist; album tags are too unreliable across
// equipment to participate.
func SameTrack(a, b *Track) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Title == b.Title && a.Artist == b.Artist
}

// Plugin is one equipment integration. Constructing a plugin must not
// open sockets or do any other I/O; connection work belongs in Start.
//
// Events returns the channel the plugin emits on. The channel exists from
// construction and is closed once the plugin has fully stopped after a
// successful Start. Events are delivered in emission order to a single
// consumer (the bridge).
//
// Stop is idempotent and safe to call on an instance that was never
// started.
type Plugin interface {
	Info() Info
	Capabilities() Capabilities
	ConfigOptions() []ConfigOption

	Events() <-chan Event

	Start(ctx context.Context, cfg map[string]any) error
	Stop() error
}
