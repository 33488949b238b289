package protocol

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeRoundTripBitExact(t *testing.T) {
	cases := []struct {
		name string
		msg  WsMessage
		want string
	}{
		{"ping", NewPing(), `{"type":"Ping"}`},
		{"pong", NewPong(), `{"type":"Pong"}`},
		{"session_init", NewSessionInit("abc-123"), `{"type":"session_init","data":{"session_id":"abc-123"}}`},
		{
			"navigate_to",
			NewActionRequest("r1", NewNavigateTo("https://x")),
			`{"type":"action_request","data":{"request_id":"r1","command":{"type":"navigate_to","url":"https://x"}}}`,
		},
		{
			"click_element",
			NewActionRequest("r2", NewClickElement(42)),
			`{"type":"action_request","data":{"request_id":"r2","command":{"type":"click_element","ref":42}}}`,
		},
		{
			"type_text",
			NewActionRequest("r3", NewTypeText(42, "hi")),
			`{"type":"action_request","data":{"request_id":"r3","command":{"type":"type_text","ref":42,"text":"hi"}}}`,
		},
		{
			"scroll_to",
			NewActionRequest("r4", NewScrollTo(0, 500)),
			`{"type":"action_request","data":{"request_id":"r4","command":{"type":"scroll_to","x":0,"y":500}}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("marshal mismatch:\n got:  %s\n want: %s", got, tc.want)
			}

			var decoded WsMessage
			if err := json.Unmarshal(got, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			reencoded, err := json.Marshal(decoded)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if string(reencoded) != tc.want {
				t.Fatalf("round-trip mismatch:\n got:  %s\n want: %s", reencoded, tc.want)
			}
		})
	}
}

func TestActionResultRoundTrip(t *testing.T) {
	wire := `{"type":"ActionResult","data":{"request_id":"r5","success":true,"error":null,"data":null}}`
	var msg WsMessage
	if err := json.Unmarshal([]byte(wire), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TagActionResult {
		t.Fatalf("type = %q, want %q", msg.Type, TagActionResult)
	}
	data, ok := msg.Data.(ActionResultData)
	if !ok {
		t.Fatalf("data type = %T, want ActionResultData", msg.Data)
	}
	if data.RequestID != "r5" || !data.Success || data.Error != nil {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestUnknownTagDecodesToUnknown(t *testing.T) {
	var msg WsMessage
	if err := json.Unmarshal([]byte(`{"type":"something_new","data":{"x":1}}`), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TagUnknown {
		t.Fatalf("type = %q, want %q", msg.Type, TagUnknown)
	}
}

func TestSessionUpdateDecode(t *testing.T) {
	wire := `{"type":"SessionUpdate","data":{"url":"https://example.com","title":"Example"}}`
	var msg WsMessage
	if err := json.Unmarshal([]byte(wire), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	d, ok := msg.Data.(SessionUpdateData)
	if !ok {
		t.Fatalf("data type = %T, want SessionUpdateData", msg.Data)
	}
	if d.URL != "https://example.com" || d.Title != "Example" {
		t.Fatalf("unexpected data: %+v", d)
	}
}
