package plugin

// Event is the tagged union of everything a plugin can emit. The bridge
// is the only consumer; there is no fan-out.
type Event interface {
	isEvent()
}

// TrackEvent reports the track loaded on a deck. A nil Track means the
// deck was emptied.
type TrackEvent struct {
	DeckID string
	Track  *Track
}

// PlayStateEvent reports whether a deck is playing or paused.
type PlayStateEvent struct {
	DeckID    string
	IsPlaying bool
}

// FaderEvent reports a deck's channel fader level, normalized to [0,1].
type FaderEvent struct {
	DeckID string
	Level  float64
}

// MasterDeckEvent reports which deck the equipment designates as the
// program's primary source.
type MasterDeckEvent struct {
	DeckID string
}

// ConnectionEvent reports equipment connectivity.
type ConnectionEvent struct {
	Connected  bool
	DeviceName string
}

// ReadyEvent signals that the plugin finished its connection handshake
// and live telemetry follows.
type ReadyEvent struct{}

// LogEvent carries a diagnostic line from inside the plugin.
type LogEvent struct {
	Level   string
	Message string
}

// ErrorEvent carries a plugin error. Fatal means the plugin stopped
// emitting and must be restarted.
type ErrorEvent struct {
	Err   error
	Fatal bool
}

func (TrackEvent) isEvent()      {}
func (PlayStateEvent) isEvent()  {}
func (FaderEvent) isEvent()      {}
func (MasterDeckEvent) isEvent() {}
func (ConnectionEvent) isEvent() {}
func (ReadyEvent) isEvent()      {}
func (LogEvent) isEvent()        {}
func (ErrorEvent) isEvent()      {}
