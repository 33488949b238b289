package registry

import (
	"log/slog"
	"sync"

	"github.com/browserpilot/gateway/internal/protocol"
)

// ReplySink is the one-shot channel a pending action's caller awaits.
// At most one value is ever sent to it (none if the entry is removed).
type ReplySink chan protocol.ActionResult

// Pending maps request_id to the reply sink awaiting its ActionResult.
// register must happen before the matching action_request is sent on the
// socket, to close the race where a reply arrives before registration.
type Pending struct {
	mu   sync.RWMutex
	byID map[string]ReplySink
}

// NewPending creates an empty pending-action registry.
func NewPending() *Pending {
	return &Pending{byID: make(map[string]ReplySink)}
}

// Register inserts a fresh reply sink for request_id. Callers must create
// the sink themselves so they retain the receive end.
func (p *Pending) Register(requestID string, sink ReplySink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[requestID] = sink
}

// Complete resolves and removes the pending entry for request_id, sending
// result on its sink. Returns false if the id is unknown — a late reply
// after the bridge's timeout already fired, or a reply for an id that was
// never registered. Complete logs that case at debug itself.
func (p *Pending) Complete(requestID string, result protocol.ActionResult) bool {
	p.mu.Lock()
	sink, ok := p.byID[requestID]
	if ok {
		delete(p.byID, requestID)
	}
	p.mu.Unlock()

	if !ok {
		slog.Debug("registry: action_result for unknown or expired request_id", "request_id", requestID)
		return false
	}
	sink <- result
	return true
}

// Remove deletes a pending entry without resolving it. Used by the bridge
// when its own timeout fires, so a reply that arrives after is silently
// dropped rather than sent to a receiver nobody is reading from.
func (p *Pending) Remove(requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, requestID)
}

// Len reports the number of in-flight actions (test/introspection helper).
func (p *Pending) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}
