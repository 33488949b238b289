package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/browserpilot/gateway/internal/bridge"
	"github.com/browserpilot/gateway/internal/llm"
	"github.com/browserpilot/gateway/internal/memory"
	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

// scriptedProvider is a scripted llm.Provider standing in for a real model,
// per the facade's mock-suffices allowance.
type scriptedProvider struct {
	responses []llm.ChatResponse
	calls     int
}

func (p *scriptedProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.calls >= len(p.responses) {
		return nil, errors.New("scriptedProvider: out of scripted responses")
	}
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req llm.ChatRequest, onChunk func(llm.StreamChunk)) (*llm.ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if onChunk != nil {
		onChunk(llm.StreamChunk{Content: resp.Content})
		onChunk(llm.StreamChunk{Done: true})
	}
	return resp, nil
}

func (p *scriptedProvider) DefaultModel() string { return "mock-model" }
func (p *scriptedProvider) Name() string         { return "mock" }

// connectFakeSession registers a session with a sink a test can read from
// and script ActionResult replies onto.
func connectFakeSession(t *testing.T, sessions *registry.Sessions, pending *registry.Pending, sessionID string) registry.Sink {
	t.Helper()
	sink := make(registry.Sink, 16)
	sessions.Register(sessionID, sink)
	return sink
}

// autoReplySuccess drains one outbound action_request off sink and replies
// with a successful ActionResult, standing in for the browser extension.
func autoReplySuccess(pending *registry.Pending, sink registry.Sink) {
	msg := <-sink
	data := msg.Data.(protocol.ActionRequestData)
	pending.Complete(data.RequestID, protocol.ActionResult{RequestID: data.RequestID, Success: true})
}

func TestRunHappyClickGoesThroughToolLoop(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)
	sink := connectFakeSession(t, sessions, pending, "s1")

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{
			{FinishReason: "tool_calls", ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "click_element", Arguments: map[string]interface{}{"ref": float64(7)}},
			}},
			{FinishReason: "stop", Content: "Done, I clicked the button."},
		},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	go autoReplySuccess(pending, sink)

	resp, err := o.Run(context.Background(), protocol.AgentRequest{
		Query:     "click the submit button",
		SessionID: "s1",
		InteractiveElements: []protocol.InteractiveElement{
			{ID: 7, Name: "Submit", Role: "button"},
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response != "Done, I clicked the button." {
		t.Fatalf("resp.Response = %q", resp.Response)
	}
}

func TestRunTimeoutStillCompletesResponse(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)
	connectFakeSession(t, sessions, pending, "s1")

	orig := bridge.ToolTimeout
	defer func() { bridge.ToolTimeout = orig }()
	bridge.ToolTimeout = 20_000_000 // 20ms, expressed in ns to avoid importing time here

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{
			{FinishReason: "tool_calls", ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "scroll_to", Arguments: map[string]interface{}{"x": float64(0), "y": float64(0)}},
			}},
			{FinishReason: "stop", Content: "The page did not respond to the scroll request."},
		},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	// No reply is ever sent; the tool call times out, the timeout is fed
	// back to the model as the tool result, and the model's second turn is
	// the final answer — the request still completes without an error.
	resp, err := o.Run(context.Background(), protocol.AgentRequest{Query: "scroll down", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response != "The page did not respond to the scroll request." {
		t.Fatalf("resp.Response = %q", resp.Response)
	}
	if pending.Len() != 0 {
		t.Fatalf("pending.Len() = %d, want 0 after the timeout", pending.Len())
	}
}

func TestRunNoSessionFallsBackToPlainCompletion(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{{FinishReason: "stop", Content: "I can't control a browser right now."}},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	resp, err := o.Run(context.Background(), protocol.AgentRequest{Query: "what's 2+2?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response == "" {
		t.Fatal("expected a non-empty plain-completion response")
	}
	if provider.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no tool loop without a session)", provider.calls)
	}
}

func TestRunUnknownSessionIDFallsBackToPlainCompletion(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{{FinishReason: "stop", Content: "no browser attached"}},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	resp, err := o.Run(context.Background(), protocol.AgentRequest{Query: "navigate somewhere", SessionID: "ghost"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response != "no browser attached" {
		t.Fatalf("resp.Response = %q", resp.Response)
	}
}

func TestRunReversedRepliesStillCorrelate(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)
	sink := connectFakeSession(t, sessions, pending, "s1")

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{
			{FinishReason: "tool_calls", ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "get_interactive_elements", Arguments: map[string]interface{}{}},
			}},
			{FinishReason: "stop", Content: "Found the elements."},
		},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	// An older request "A" is already pending when the tool call's request
	// goes out; the newer request's reply arrives first, then A's.
	sinkA := make(registry.ReplySink, 1)
	pending.Register("A", sinkA)

	go func() {
		msg := <-sink
		data := msg.Data.(protocol.ActionRequestData)
		pending.Complete(data.RequestID, protocol.ActionResult{RequestID: data.RequestID, Success: true, Data: []byte(`"elements"`)})
		pending.Complete("A", protocol.ActionResult{RequestID: "A", Success: true, Data: []byte(`"other"`)})
	}()

	resp, err := o.Run(context.Background(), protocol.AgentRequest{Query: "list elements", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response != "Found the elements." {
		t.Fatalf("resp.Response = %q", resp.Response)
	}
	if ra := <-sinkA; string(ra.Data) != `"other"` {
		t.Fatalf("request A got %s, want its own reply", ra.Data)
	}
}

func TestRunStreamYieldsChunksThenCloses(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{{FinishReason: "stop", Content: "streamed answer"}},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	chunks, errc := o.RunStream(context.Background(), protocol.AgentRequest{Query: "stream this", Stream: true})

	var got string
	for c := range chunks {
		got += c
	}
	if err := <-errc; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if got != "streamed answer" {
		t.Fatalf("got = %q", got)
	}
}

func TestRunForbiddenURLRejectedBeforeSocketSend(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)
	sink := connectFakeSession(t, sessions, pending, "s1")

	provider := &scriptedProvider{
		responses: []llm.ChatResponse{
			{FinishReason: "tool_calls", ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "navigate_to", Arguments: map[string]interface{}{"url": "chrome://settings"}},
			}},
			{FinishReason: "stop", Content: "I can't navigate to a browser-internal page."},
		},
	}
	o := New(llm.NewFacade(provider), b, sessions, nil)

	resp, err := o.Run(context.Background(), protocol.AgentRequest{Query: "open settings", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response == "" {
		t.Fatal("expected a non-empty response even after the rejected tool call")
	}

	select {
	case <-sink:
		t.Fatal("no action_request should have been sent for a forbidden URL")
	default:
	}
}

func TestSaveMemoryToolIsOfferedWhenStoreConfigured(t *testing.T) {
	sessions := registry.NewSessions()
	pending := registry.NewPending()
	b := bridge.New(sessions, pending)
	connectFakeSession(t, sessions, pending, "s1")

	store, err := memory.Open(":memory:")
	if err != nil {
		t.Fatalf("memory.Open: %v", err)
	}
	defer store.Close()

	o := New(llm.NewFacade(&scriptedProvider{}), b, sessions, store)
	tools := o.toolsFor("s1")

	found := false
	for _, tool := range tools {
		if tool.Definition.Function.Name == "save_memory" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected save_memory tool to be present when a memory store is configured")
	}

	if _, err := tools[len(tools)-1].Call(context.Background(), map[string]interface{}{"text": "remember this"}); err != nil {
		t.Fatalf("save_memory Call: %v", err)
	}
	entries, err := store.ListRecent(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "remember this" {
		t.Fatalf("entries = %+v", entries)
	}
}
