// Package socketio pushes bridge status and diagnostics to local UI
// clients over Socket.io.
package socketio

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/decklive/decklive-bridge/internal/domain/bridge"
	"github.com/decklive/decklive-bridge/internal/logging"
)

// statusDebounce collapses event bursts into one broadcast. Deck events
// arrive in clusters (track change, synthesized play state, fader) and
// clients only need the final snapshot.
const statusDebounce = 100 * time.Millisecond

// maxExternalClients caps concurrent non-localhost UI connections.
const maxExternalClients = 4

// Server handles Socket.io connections and status broadcasts.
type Server struct {
	io        *socket.Server
	status    func() bridge.Status
	debouncer *Debouncer
	limiter   *ConnectionLimiter

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates a Socket.io server that reads snapshots from
// statusFn on demand.
func NewServer(statusFn func() bridge.Status) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, opts),
		status:  statusFn,
		limiter: NewConnectionLimiter(maxExternalClients),
		clients: make(map[string]*socket.Socket),
	}
	s.debouncer = NewDebouncer(statusDebounce, s.broadcastStatus)
	s.setupHandlers()
	return s, nil
}

func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		address := client.Handshake().Address

		log.Info().Str("id", clientID).Str("address", address).Msg("Client connected")

		_, evictedID := s.limiter.TryAdd(clientID, address)
		if evictedID != "" {
			s.mu.Lock()
			evicted := s.clients[evictedID]
			delete(s.clients, evictedID)
			s.mu.Unlock()
			if evicted != nil {
				log.Info().Str("id", evictedID).Msg("Evicting oldest external client")
				evicted.Disconnect(true)
			}
		}

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial snapshot after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			client.Emit("pushStatus", s.status())
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getStatus", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getStatus")
			client.Emit("pushStatus", s.status())
		})
	})
}

// QueueStatus schedules a debounced status broadcast.
func (s *Server) QueueStatus() {
	s.debouncer.Trigger()
}

// broadcastStatus sends the current snapshot to all connected clients.
func (s *Server) broadcastStatus() {
	status := s.status()
	s.io.Emit("pushStatus", status)

	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()
	log.Debug().Int("clients", clientCount).Bool("running", status.Running).Msg("Broadcast status")
}

// PushLog forwards one diagnostics entry to all connected clients.
func (s *Server) PushLog(e logging.Entry) {
	s.io.Emit("pushLog", map[string]any{
		"time":      e.Time.Format(time.RFC3339),
		"level":     e.LevelName(),
		"component": e.Component,
		"message":   e.Message,
	})
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close shuts down the Socket.io server and stops pending broadcasts.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
