package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

const (
	outboundBufferSize = 64
	writeWait          = 10 * time.Second
)

// Client owns one session's WebSocket connection for its lifetime: one
// reader task dispatching inbound frames, one writer task draining an
// outbound channel onto the socket. Per §3's session-registry invariant,
// the socket itself is never touched by any other goroutine.
type Client struct {
	id       string
	conn     *websocket.Conn
	sessions *registry.Sessions
	pending  *registry.Pending

	outbound registry.Sink
	closeCh  chan struct{}
}

// NewClient mints a session_id and wires a fresh outbound channel for it.
func NewClient(conn *websocket.Conn, sessions *registry.Sessions, pending *registry.Pending) *Client {
	return &Client{
		id:       uuid.NewString(),
		conn:     conn,
		sessions: sessions,
		pending:  pending,
		outbound: make(registry.Sink, outboundBufferSize),
		closeCh:  make(chan struct{}),
	}
}

// ID returns this client's session_id.
func (c *Client) ID() string { return c.id }

// Close tears down the underlying socket. Safe to call more than once.
func (c *Client) Close() {
	select {
	case <-c.closeCh:
		return
	default:
		close(c.closeCh)
	}
	c.conn.Close()
}

// Run registers the session, starts the writer task, pushes session_init,
// and then runs the reader loop until the socket closes or ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.sessions.Register(c.id, c.outbound)
	defer c.sessions.Unregister(c.id)

	go c.writeLoop()

	c.outbound <- protocol.NewSessionInit(c.id)

	c.readLoop(ctx)
}

// writeLoop drains the outbound channel and serializes each message as a
// text frame. It exits when the client is closed or a write fails; it never
// closes c.outbound itself, since the tool bridge may still hold a
// reference to send on (a send after close panics, a send after exit just
// sits unread until garbage collection).
func (c *Client) writeLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case msg := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(msg)
			if err != nil {
				slog.Error("gateway: encode outbound message", "session_id", c.id, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("gateway: write failed, closing", "session_id", c.id, "error", err)
				return
			}
		}
	}
}

// readLoop dispatches each inbound frame by tag. No two handlers run
// concurrently on the same socket: dispatch happens serially in this one
// goroutine, matching §5's single-threaded-per-connection guarantee.
func (c *Client) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			slog.Debug("gateway: read ended", "session_id", c.id, "error", err)
			return
		}

		var msg protocol.WsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("gateway: decode inbound frame failed", "session_id", c.id, "error", err)
			continue
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg protocol.WsMessage) {
	switch msg.Type {
	case protocol.TagPing:
		c.enqueue(protocol.NewPong())
	case protocol.TagSessionUpdate:
		d, _ := msg.Data.(protocol.SessionUpdateData)
		slog.Info("gateway: session_update", "session_id", c.id, "url", d.URL, "title", d.Title)
	case protocol.TagActionResult:
		d, ok := msg.Data.(protocol.ActionResultData)
		if !ok {
			return
		}
		c.pending.Complete(d.RequestID, protocol.FromActionResultData(d))
	case protocol.TagActionRequest:
		// action_request only ever originates from the backend; one arriving
		// from the client is logged and dropped rather than echoed back.
		slog.Warn("gateway: unexpected action_request from client", "session_id", c.id)
	default:
		slog.Debug("gateway: unknown or unhandled tag", "session_id", c.id, "type", msg.Type)
	}
}

// enqueue pushes a message onto the outbound channel without blocking the
// reader loop if the writer is slow; the channel is sized generously and a
// full channel here indicates a stuck writer, in which case dropping the
// keepalive reply is preferable to deadlocking dispatch.
func (c *Client) enqueue(msg protocol.WsMessage) {
	select {
	case c.outbound <- msg:
	default:
		slog.Warn("gateway: outbound channel full, dropping message", "session_id", c.id, "type", msg.Type)
	}
}
