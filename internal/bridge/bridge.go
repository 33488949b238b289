// Package bridge is the tool bridge (C5): it adapts the six browser tools
// the agent orchestrator wires into the LLM facade to a send-and-await
// round-trip over the session and pending-action registries.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

// ToolTimeout is the hard timeout for a tool round-trip (§5). A var, not a
// const, so tests can shorten it rather than sleep 30 real seconds.
var ToolTimeout = 30 * time.Second

// Bridge is the whole cleverness of the system: it turns one ActionCommand
// bound for a session into a blocking call that resolves when the
// extension's ActionResult arrives, times out, or fails outright.
type Bridge struct {
	sessions *registry.Sessions
	pending  *registry.Pending
}

// New creates a tool bridge bound to the given registries.
func New(sessions *registry.Sessions, pending *registry.Pending) *Bridge {
	return &Bridge{sessions: sessions, pending: pending}
}

// Errors surfaced to the LLM loop, per §7's taxonomy. Only InputRejected and
// NoSession are ever returned without a request_id having been minted.
var (
	ErrNoSession = errors.New("no active connection for session")
	ErrTimeout   = errors.New("tool execution timed out")
)

// Call sends cmd to sessionID's extension and blocks for its reply, or until
// ToolTimeout elapses. It never blocks the caller past the timeout, even if
// the extension never responds or disconnects mid-flight.
func (b *Bridge) Call(ctx context.Context, sessionID string, cmd protocol.ActionCommand) (string, error) {
	sink, ok := b.sessions.Lookup(sessionID)
	if !ok {
		return "", ErrNoSession
	}

	requestID := uuid.NewString()
	reply := make(registry.ReplySink, 1)

	// register before send: closes the race where the reply arrives before
	// the pending entry exists (§4.3).
	b.pending.Register(requestID, reply)

	select {
	case sink <- protocol.NewActionRequest(requestID, cmd):
	default:
		// Outbound channel is full (writer stuck or session torn down
		// between lookup and send). Fail now rather than block the LLM
		// loop on a socket that isn't draining.
		b.pending.Remove(requestID)
		return "", fmt.Errorf("bridge: send action_request: %w", ErrNoSession)
	}

	timer := time.NewTimer(ToolTimeout)
	defer timer.Stop()

	select {
	case result := <-reply:
		if result.Success {
			return formatSuccess(cmd, result), nil
		}
		return "", fmt.Errorf("%s", result.Error)
	case <-timer.C:
		b.pending.Remove(requestID)
		return "", ErrTimeout
	case <-ctx.Done():
		b.pending.Remove(requestID)
		return "", ctx.Err()
	}
}

// formatSuccess renders a reply's opaque data payload into the
// human-readable string the LLM sees, per §4.5 step 8.
func formatSuccess(cmd protocol.ActionCommand, result protocol.ActionResult) string {
	if len(result.Data) == 0 || string(result.Data) == "null" {
		return fmt.Sprintf("%s completed successfully", cmd.Type)
	}
	return fmt.Sprintf("%s completed successfully: %s", cmd.Type, string(result.Data))
}
