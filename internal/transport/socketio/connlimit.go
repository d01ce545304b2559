package socketio

import (
	"net"
	"sync"
)

// ConnectionLimiter caps concurrent external (non-localhost) clients.
// Localhost connections are always allowed without limit. When a new
// external connection exceeds the cap, the oldest external connection
// is evicted to make room.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int

	// externalClients holds external client IDs, oldest first.
	externalClients []string
	// connections maps clientID to remote IP for every tracked client.
	connections map[string]string
}

// NewConnectionLimiter creates a limiter allowing up to maxExternal
// concurrent non-localhost connections.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// TryAdd registers a new connection. It reports whether the connection
// is allowed and the ID of any evicted client (empty when none).
func (cl *ConnectionLimiter) TryAdd(clientID, remoteIP string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return true, ""
	}
	cl.connections[clientID] = remoteIP

	if isLocalIP(remoteIP) {
		return true, ""
	}

	cl.externalClients = append(cl.externalClients, clientID)
	if len(cl.externalClients) > cl.maxExternal {
		evictedID = cl.externalClients[0]
		cl.externalClients = cl.externalClients[1:]
		delete(cl.connections, evictedID)
	}
	return true, evictedID
}

// Remove unregisters a connection when a client disconnects.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	ip, exists := cl.connections[clientID]
	if !exists {
		return
	}
	delete(cl.connections, clientID)

	if isLocalIP(ip) {
		return
	}
	for i, id := range cl.externalClients {
		if id == clientID {
			cl.externalClients = append(cl.externalClients[:i], cl.externalClients[i+1:]...)
			break
		}
	}
}

func isLocalIP(ip string) bool {
	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.IsLoopback()
	}
	return ip == "localhost"
}
