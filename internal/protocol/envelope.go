// Package protocol defines the wire shapes exchanged between the gateway
// and the browser extension, and the HTTP request/response shapes the agent
// entry point accepts. Casing on the wire is intentionally mixed across
// message types and must be reproduced bit-for-bit; do not "fix" it.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is reported by the health endpoint.
const ProtocolVersion = 1

// Message tags, exactly as they appear in the "type" field on the wire.
const (
	TagPing           = "Ping"
	TagPong           = "Pong"
	TagSessionInit    = "session_init"
	TagSessionUpdate  = "SessionUpdate"
	TagActionRequest  = "action_request"
	TagActionResult   = "ActionResult"
	TagUnknown        = "unknown"
)

// WsMessage is the tagged envelope exchanged over the session WebSocket.
// Encoding/decoding is hand-rolled rather than struct-tag driven because the
// wire casing differs per tag and several tags carry no "data" at all.
type WsMessage struct {
	Type string
	Data interface{}
}

// SessionInitData is the payload of a session_init envelope (server→client).
type SessionInitData struct {
	SessionID string `json:"session_id"`
}

// SessionUpdateData is the payload of a SessionUpdate envelope (client→server).
type SessionUpdateData struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ActionRequestData is the payload of an action_request envelope (server→client).
type ActionRequestData struct {
	RequestID string        `json:"request_id"`
	Command   ActionCommand `json:"command"`
}

// ActionResultData is the payload of an ActionResult envelope (client→server).
type ActionResultData struct {
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Error     *string         `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// NewPing builds a ping envelope.
func NewPing() WsMessage { return WsMessage{Type: TagPing} }

// NewPong builds a pong envelope.
func NewPong() WsMessage { return WsMessage{Type: TagPong} }

// NewSessionInit builds a session_init envelope.
func NewSessionInit(sessionID string) WsMessage {
	return WsMessage{Type: TagSessionInit, Data: SessionInitData{SessionID: sessionID}}
}

// NewActionRequest builds an action_request envelope.
func NewActionRequest(requestID string, cmd ActionCommand) WsMessage {
	return WsMessage{Type: TagActionRequest, Data: ActionRequestData{RequestID: requestID, Command: cmd}}
}

// MarshalJSON encodes the envelope as {"type": ..., "data": ...}, omitting
// "data" entirely for tags that carry none (Ping/Pong).
func (m WsMessage) MarshalJSON() ([]byte, error) {
	if m.Data == nil {
		return json.Marshal(struct {
			Type string `json:"type"`
		}{Type: m.Type})
	}
	return json.Marshal(struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}{Type: m.Type, Data: m.Data})
}

// UnmarshalJSON decodes the envelope, peeking the "type" tag first and then
// decoding "data" into the shape that tag implies. Unknown tags decode to
// TagUnknown with Data left nil, per §4.1's forward-compatibility rule.
func (m *WsMessage) UnmarshalJSON(raw []byte) error {
	var head struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("protocol: decode envelope: %w", err)
	}

	m.Type = head.Type
	if len(head.Data) == 0 || string(head.Data) == "null" {
		m.Data = nil
	}

	switch head.Type {
	case TagPing, TagPong:
		// no data payload
	case TagSessionInit:
		var d SessionInitData
		if len(head.Data) > 0 {
			if err := json.Unmarshal(head.Data, &d); err != nil {
				return fmt.Errorf("protocol: decode session_init data: %w", err)
			}
		}
		m.Data = d
	case TagSessionUpdate:
		var d SessionUpdateData
		if len(head.Data) > 0 {
			if err := json.Unmarshal(head.Data, &d); err != nil {
				return fmt.Errorf("protocol: decode SessionUpdate data: %w", err)
			}
		}
		m.Data = d
	case TagActionRequest:
		var d ActionRequestData
		if len(head.Data) > 0 {
			if err := json.Unmarshal(head.Data, &d); err != nil {
				return fmt.Errorf("protocol: decode action_request data: %w", err)
			}
		}
		m.Data = d
	case TagActionResult:
		var d ActionResultData
		if len(head.Data) > 0 {
			if err := json.Unmarshal(head.Data, &d); err != nil {
				return fmt.Errorf("protocol: decode ActionResult data: %w", err)
			}
		}
		m.Data = d
	default:
		m.Type = TagUnknown
		m.Data = nil
	}
	return nil
}
