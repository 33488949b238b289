package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/browserpilot/gateway/internal/config"
	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

func startTestGateway(t *testing.T) (addr string, sessions *registry.Sessions, pending *registry.Pending) {
	t.Helper()
	cfg := config.Default()
	sessions = registry.NewSessions()
	pending = registry.NewPending()
	srv := NewServer(cfg, sessions, pending)

	ctx, cancel := context.WithCancel(context.Background())
	addr, start := StartTestServer(srv, ctx)
	go start()
	t.Cleanup(cancel)

	waitForListener(t, addr)
	return addr, sessions, pending
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("gateway never came up")
}

func TestHandleHealthReportsProtocolVersion(t *testing.T) {
	addr, _, _ := startTestGateway(t)

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status   string `json:"status"`
		Protocol int    `json:"protocol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Protocol != protocol.ProtocolVersion {
		t.Fatalf("body = %+v", body)
	}
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws", addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.WsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg protocol.WsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return msg
}

func writeMessage(t *testing.T, conn *websocket.Conn, msg protocol.WsMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestUpgradeSendsSessionInitAndRegistersSession(t *testing.T) {
	addr, sessions, _ := startTestGateway(t)
	conn := dialWS(t, addr)

	msg := readMessage(t, conn)
	if msg.Type != protocol.TagSessionInit {
		t.Fatalf("first frame type = %q, want session_init", msg.Type)
	}
	d, ok := msg.Data.(protocol.SessionInitData)
	if !ok || d.SessionID == "" {
		t.Fatalf("session_init data = %#v", msg.Data)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := sessions.Lookup(d.SessionID); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never registered", d.SessionID)
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	addr, _, _ := startTestGateway(t)
	conn := dialWS(t, addr)
	readMessage(t, conn) // session_init

	writeMessage(t, conn, protocol.NewPing())

	msg := readMessage(t, conn)
	if msg.Type != protocol.TagPong {
		t.Fatalf("reply type = %q, want Pong", msg.Type)
	}
}

func TestActionResultCompletesPendingEntry(t *testing.T) {
	addr, sessions, pending := startTestGateway(t)
	conn := dialWS(t, addr)
	initMsg := readMessage(t, conn)
	sessionID := initMsg.Data.(protocol.SessionInitData).SessionID

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := sessions.Lookup(sessionID); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	reply := make(registry.ReplySink, 1)
	pending.Register("req-1", reply)

	success := true
	writeMessage(t, conn, protocol.WsMessage{
		Type: protocol.TagActionResult,
		Data: protocol.ActionResultData{RequestID: "req-1", Success: success, Data: json.RawMessage(`"done"`)},
	})

	select {
	case result := <-reply:
		if !result.Success {
			t.Fatalf("result.Success = false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("pending entry was never completed")
	}
}

func TestUnregisteredActionRequestFromClientIsIgnored(t *testing.T) {
	addr, _, _ := startTestGateway(t)
	conn := dialWS(t, addr)
	readMessage(t, conn) // session_init

	writeMessage(t, conn, protocol.NewActionRequest("bogus", protocol.NewNavigateTo("https://example.com")))

	// The server logs and drops this rather than replying; prove the
	// connection stays alive by still getting a pong for a follow-up ping.
	writeMessage(t, conn, protocol.NewPing())
	msg := readMessage(t, conn)
	if msg.Type != protocol.TagPong {
		t.Fatalf("reply type = %q, want Pong after ignored action_request", msg.Type)
	}
}
