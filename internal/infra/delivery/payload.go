// Package delivery sends now-playing telemetry to the remote service,
// absorbing outages with a circuit breaker and a bounded replay buffer.
package delivery

import "context"

// Event codes understood by the remote service.
const (
	EventCodeNowPlaying = "now_playing"
	EventCodeStopped    = "playback_stopped"
	EventCodeStatus     = "status"
)

// NowPlayingPayload is the wire shape for track events. Delayed is set
// only when a payload is replayed from the history buffer after an
// outage.
type NowPlayingPayload struct {
	ID        string `json:"id,omitempty"`
	EventCode string `json:"event_code"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album,omitempty"`
	Deck      string `json:"deck,omitempty"`
	Delayed   bool   `json:"delayed,omitempty"`
}

// StatusPayload is the wire shape for connection status events.
type StatusPayload struct {
	EventCode  string `json:"event_code"`
	Connected  bool   `json:"connected"`
	DeviceName string `json:"device_name,omitempty"`
}

// Sender delivers payloads to the remote now-playing service. The
// concrete client (HTTP transport, authentication) lives outside this
// package.
type Sender interface {
	NowPlaying(ctx context.Context, p NowPlayingPayload) error
	Status(ctx context.Context, p StatusPayload) error
}
