// Package agent is the agent orchestrator (C6): it builds the LLM preamble
// from request context, wires the six browser tools plus the optional
// memory tool, runs the tool loop, and returns text or an SSE stream.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/browserpilot/gateway/internal/bridge"
	"github.com/browserpilot/gateway/internal/llm"
	"github.com/browserpilot/gateway/internal/memory"
	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

const maxPageContentChars = 8000

// preamblePrelude is the fixed instructional prelude describing the browser
// tools and the visual-analysis capability (§4.6 step 1). Locale is
// English; any locale is acceptable provided the tool-invocation grammar
// stays intact (§9).
const preamblePrelude = `You are a browser automation assistant. You can control the user's browser through the following tools:

- navigate_to(url): navigate the browser to a URL.
- click_element(ref): click an interactive element, identified by its ref.
- type_text(ref, text): type text into an interactive element, identified by its ref.
- scroll_to(x, y): scroll the page to the given offset.
- get_page_content(max_length?): read the page's visible text content.
- get_interactive_elements(limit?): list the interactive elements on the page.

If the user's message includes a screenshot, analyze it visually to decide what to do; element refs are opaque handles assigned by the browser extension and mean nothing outside a tool call.`

const noElementsNote = "No interactive elements are currently available for this page."

// Orchestrator runs the agent entry point, binding one LLM facade and one
// tool bridge.
type Orchestrator struct {
	facade  *llm.Facade
	bridge  *bridge.Bridge
	sess    *registry.Sessions
	memory  *memory.Store
}

// New builds an orchestrator. memoryStore may be nil, in which case the
// save_memory tool is not offered.
func New(facade *llm.Facade, toolBridge *bridge.Bridge, sessions *registry.Sessions, memoryStore *memory.Store) *Orchestrator {
	return &Orchestrator{facade: facade, bridge: toolBridge, sess: sessions, memory: memoryStore}
}

// Run executes one AgentRequest and returns the response shape for the
// non-streaming path. Callers that asked for stream=true without a
// session_id should use RunStream instead (§4.6: "if stream is true and the
// tool path is not taken").
func (o *Orchestrator) Run(ctx context.Context, req protocol.AgentRequest) (protocol.ChatResponse, error) {
	image := NormalizeScreenshot(ParseImageDataURL(req.Image))

	toolSessionLive := req.SessionID != ""
	if toolSessionLive {
		if _, ok := o.sess.Lookup(req.SessionID); !ok {
			toolSessionLive = false
		}
	}

	if !toolSessionLive {
		text, usage, err := o.facade.Complete(ctx, req.Query, req.CustomInstruction, image)
		if err != nil {
			if fallback, recovered := friendlyFallback(err); recovered {
				return protocol.ChatResponse{Response: fallback}, nil
			}
			return protocol.ChatResponse{}, err
		}
		return toChatResponse(text, usage), nil
	}

	preamble := o.buildPreamble(req)
	tools := o.toolsFor(req.SessionID)
	message := o.buildUserMessage(req)

	text, usage, err := o.facade.Agent(preamble, tools).Prompt(ctx, message, image)
	if err != nil {
		if fallback, recovered := friendlyFallback(err); recovered {
			return protocol.ChatResponse{Response: fallback}, nil
		}
		return protocol.ChatResponse{}, err
	}
	return toChatResponse(text, usage), nil
}

// toChatResponse projects the facade's text+usage pair into the wire shape,
// leaving the token fields nil when the provider didn't report usage.
func toChatResponse(text string, usage *llm.Usage) protocol.ChatResponse {
	resp := protocol.ChatResponse{Response: text}
	if usage != nil {
		prompt, completion, total := usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens
		resp.PromptTokens = &prompt
		resp.ResponseTokens = &completion
		resp.TotalTokens = &total
	}
	return resp
}

// ToolSessionLive reports whether sessionID names a currently connected
// browser session — the condition under which Run takes the tool-enabled
// path instead of a plain completion.
func (o *Orchestrator) ToolSessionLive(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	_, ok := o.sess.Lookup(sessionID)
	return ok
}

// RunStream executes the plain-completion path as a stream of text chunks
// (§4.6, scenario 5). chunks is closed when the stream ends; the "[DONE]"
// sentinel is written by the HTTP layer, not sent on chunks. It is only
// valid when no tool-enabled session is live; callers otherwise fall back to
// Run.
func (o *Orchestrator) RunStream(ctx context.Context, req protocol.AgentRequest) (chunks <-chan string, errCh <-chan error) {
	image := NormalizeScreenshot(ParseImageDataURL(req.Image))
	return o.facade.Stream(ctx, req.Query, req.CustomInstruction, image)
}

// friendlyFallbackMessage is returned in place of the raw LLM error for the
// recovered error classes (§4.6/§7's LLMFailure handling).
const friendlyFallbackMessage = "Sorry, I wasn't able to come up with a response. Could you try rephrasing that?"

// friendlyFallback recognizes the "empty response"/"no message" class of LLM
// error and reports the user-facing fallback text to show instead. Any
// other error is left for the caller to propagate as an HTTP 500.
func friendlyFallback(err error) (message string, recovered bool) {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "empty") || strings.Contains(msg, "no message") {
		return friendlyFallbackMessage, true
	}
	return "", false
}

// buildPreamble assembles the deterministic preamble per §4.6 steps 1-4.
func (o *Orchestrator) buildPreamble(req protocol.AgentRequest) string {
	var b strings.Builder
	b.WriteString(preamblePrelude)
	b.WriteString("\n\n")

	if len(req.InteractiveElements) > 0 {
		b.WriteString("Interactive elements on the current page:\n")
		for _, el := range req.InteractiveElements {
			fmt.Fprintf(&b, "- Ref %d: %s (%s)\n", el.ID, el.Name, el.Role)
		}
	} else {
		b.WriteString(noElementsNote)
		b.WriteString("\n")
	}

	if req.PageContent != "" {
		b.WriteString("\nCurrent page content:\n")
		content := req.PageContent
		if runes := []rune(content); len(runes) > maxPageContentChars {
			content = string(runes[:maxPageContentChars]) + "…[Content truncated]"
		}
		b.WriteString(content)
	}

	return b.String()
}

// buildUserMessage composes the user turn's text: the query, unchanged. An
// attached image travels via the facade's image parameter, not inline text.
func (o *Orchestrator) buildUserMessage(req protocol.AgentRequest) string {
	return req.Query
}

// toolsFor wires the six browser tools plus the optional save_memory tool
// for one session.
func (o *Orchestrator) toolsFor(sessionID string) []llm.Tool {
	tools := o.bridge.Tools(sessionID)
	if o.memory != nil {
		tools = append(tools, o.saveMemoryTool(sessionID))
	}
	return tools
}

// saveMemoryTool exposes the legacy memory store as a seventh, optional
// tool. Per §9 it has no interaction with the session or pending-action
// registries — it never touches the WebSocket.
func (o *Orchestrator) saveMemoryTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "save_memory",
				Description: "Save a short note to long-term memory for this session.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"text": map[string]interface{}{"type": "string"}},
					"required":   []string{"text"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			text, _ := args["text"].(string)
			if text == "" {
				return "", fmt.Errorf("save_memory: text is required")
			}
			id, err := o.memory.Add(ctx, sessionID, text)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("saved memory #%d", id), nil
		},
	}
}
