package llm

import (
	"context"
	"fmt"
)

// MaxToolIterations bounds the agentic tool loop a legacy variant capped at
// five; the facade is the right home for this cap since the bridge itself
// is stateless across iterations (§9).
const MaxToolIterations = 5

// Facade is the narrow surface the agent orchestrator depends on: a
// blocking completion, a streaming completion, and a tool-enabled agent
// loop, all hidden behind one Provider.
type Facade struct {
	provider Provider
}

// NewFacade wraps a Provider in the orchestrator-facing surface.
func NewFacade(provider Provider) *Facade {
	return &Facade{provider: provider}
}

// Complete runs a single blocking completion with no tool loop.
func (f *Facade) Complete(ctx context.Context, query, customInstruction string, image *ImageContent) (string, *Usage, error) {
	messages := buildMessages(customInstruction, query, image)
	resp, err := f.provider.Chat(ctx, ChatRequest{Messages: messages})
	if err != nil {
		return "", nil, err
	}
	if resp.Content == "" {
		return "", nil, fmt.Errorf("%s: empty response", f.provider.Name())
	}
	return resp.Content, resp.Usage, nil
}

// Stream runs a single streaming completion with no tool loop. chunks is
// closed when the stream ends; errCh receives at most one error.
func (f *Facade) Stream(ctx context.Context, query, customInstruction string, image *ImageContent) (chunks <-chan string, errCh <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	messages := buildMessages(customInstruction, query, image)
	go func() {
		defer close(out)
		_, err := f.provider.ChatStream(ctx, ChatRequest{Messages: messages}, func(c StreamChunk) {
			if c.Content != "" {
				out <- c.Content
			}
		})
		if err != nil {
			errc <- err
		}
		close(errc)
	}()

	return out, errc
}

// Agent binds a preamble and a tool set for one Prompt call.
type Agent struct {
	facade   *Facade
	preamble string
	tools    []Tool
}

// Agent constructs a tool-enabled agent bound to preamble and tools.
func (f *Facade) Agent(preamble string, tools []Tool) *Agent {
	return &Agent{facade: f, preamble: preamble, tools: tools}
}

// Prompt runs the bounded agentic tool loop: ask the model, execute any
// tool calls it requests, feed the results back, and repeat until the model
// stops calling tools or MaxToolIterations is reached. image, if non-nil, is
// attached to the initial user turn only.
func (a *Agent) Prompt(ctx context.Context, message string, image *ImageContent) (string, *Usage, error) {
	defs := make([]ToolDefinition, len(a.tools))
	byName := make(map[string]Tool, len(a.tools))
	for i, t := range a.tools {
		defs[i] = t.Definition
		byName[t.Definition.Function.Name] = t
	}

	userTurn := Message{Role: "user", Content: message}
	if image != nil {
		userTurn.Images = []ImageContent{*image}
	}
	messages := []Message{
		{Role: "system", Content: a.preamble},
		userTurn,
	}

	var lastUsage *Usage
	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		resp, err := a.facade.provider.Chat(ctx, ChatRequest{Messages: messages, Tools: defs})
		if err != nil {
			return "", nil, err
		}
		lastUsage = resp.Usage

		if resp.FinishReason != "tool_calls" || len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				return "", nil, fmt.Errorf("%s: empty response", a.facade.provider.Name())
			}
			return resp.Content, lastUsage, nil
		}

		messages = append(messages, Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		for _, call := range resp.ToolCalls {
			tool, ok := byName[call.Name]
			var result string
			if !ok {
				result = fmt.Sprintf("unknown tool %q", call.Name)
			} else {
				out, callErr := tool.Call(ctx, call.Arguments)
				if callErr != nil {
					result = callErr.Error()
				} else {
					result = out
				}
			}
			messages = append(messages, Message{Role: "tool", Content: result, ToolCallID: call.ID})
		}
	}

	return "", nil, fmt.Errorf("%s: exceeded %d tool iterations without a final answer", a.facade.provider.Name(), MaxToolIterations)
}

func buildMessages(customInstruction, query string, image *ImageContent) []Message {
	var messages []Message
	if customInstruction != "" {
		messages = append(messages, Message{Role: "system", Content: customInstruction})
	}
	user := Message{Role: "user", Content: query}
	if image != nil {
		user.Images = []ImageContent{*image}
	}
	messages = append(messages, user)
	return messages
}
