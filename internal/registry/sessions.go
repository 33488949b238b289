// Package registry holds the two pieces of shared mutable state the agent/
// tool bridge depends on: which sessions have a live socket, and which tool
// round-trips are still awaiting a reply. Both are plain maps guarded by a
// sync.RWMutex, in the idiom of the gateway's client registry.
package registry

import (
	"log/slog"
	"sync"

	"github.com/browserpilot/gateway/internal/protocol"
)

// Sink is the outbound side of a session: a channel, possibly sent on by
// several goroutines, that feeds the socket's single writer task.
type Sink chan protocol.WsMessage

// Sessions maps session_id to its outbound sink. At most one sink per
// session_id; lookups dominate over registrations, so it's RWMutex-guarded.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]Sink
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]Sink)}
}

// Register inserts a session's sink. A duplicate session_id is a bug in the
// caller (two upgrades minted the same id) and is logged rather than
// silently overwritten, but the new sink wins so the stale one doesn't leak
// lookups.
func (s *Sessions) Register(sessionID string, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[sessionID]; exists {
		slog.Warn("registry: duplicate session_id registered", "session_id", sessionID)
	}
	s.byID[sessionID] = sink
}

// Unregister removes a session. Idempotent.
func (s *Sessions) Unregister(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
}

// Lookup returns the sink for a session, or ok=false if none is live.
func (s *Sessions) Lookup(sessionID string) (sink Sink, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sink, ok = s.byID[sessionID]
	return sink, ok
}

// Len reports the number of live sessions (test/introspection helper).
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
