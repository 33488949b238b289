package bridge

import (
	"context"
	"fmt"

	"github.com/browserpilot/gateway/internal/llm"
	"github.com/browserpilot/gateway/internal/protocol"
)

// Tools builds the six browser-tool adapters bound to one session. Each
// adapter validates its own arguments, then delegates to Bridge.Call.
func (b *Bridge) Tools(sessionID string) []llm.Tool {
	return []llm.Tool{
		b.navigateToTool(sessionID),
		b.clickElementTool(sessionID),
		b.typeTextTool(sessionID),
		b.scrollToTool(sessionID),
		b.getPageContentTool(sessionID),
		b.getInteractiveElementsTool(sessionID),
	}
}

func (b *Bridge) navigateToTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "navigate_to",
				Description: "Navigate the browser to a URL.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"url": map[string]interface{}{"type": "string"}},
					"required":   []string{"url"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			url, _ := args["url"].(string)
			if err := ValidateNavigateURL(url); err != nil {
				return "", err
			}
			return b.Call(ctx, sessionID, protocol.NewNavigateTo(url))
		},
	}
}

func (b *Bridge) clickElementTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "click_element",
				Description: "Click an interactive element on the page, identified by its ref.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"ref": map[string]interface{}{"type": "integer"}},
					"required":   []string{"ref"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			ref, err := intArg(args, "ref")
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInputRejected, err)
			}
			return b.Call(ctx, sessionID, protocol.NewClickElement(ref))
		},
	}
}

func (b *Bridge) typeTextTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "type_text",
				Description: "Type text into an interactive element, identified by its ref.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"ref":  map[string]interface{}{"type": "integer"},
						"text": map[string]interface{}{"type": "string"},
					},
					"required": []string{"ref", "text"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			ref, err := intArg(args, "ref")
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInputRejected, err)
			}
			text, _ := args["text"].(string)
			return b.Call(ctx, sessionID, protocol.NewTypeText(ref, text))
		},
	}
}

func (b *Bridge) scrollToTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "scroll_to",
				Description: "Scroll the page to the given x/y offset.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"x": map[string]interface{}{"type": "integer"},
						"y": map[string]interface{}{"type": "integer"},
					},
					"required": []string{"x", "y"},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			x, _ := intArg(args, "x")
			y, _ := intArg(args, "y")
			return b.Call(ctx, sessionID, protocol.NewScrollTo(x, y))
		},
	}
}

func (b *Bridge) getPageContentTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "get_page_content",
				Description: "Read the current page's visible text content.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"max_length": map[string]interface{}{"type": "integer"}},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			maxLen, _ := intArg(args, "max_length")
			return b.Call(ctx, sessionID, protocol.NewGetPageContent(maxLen))
		},
	}
}

func (b *Bridge) getInteractiveElementsTool(sessionID string) llm.Tool {
	return llm.Tool{
		Definition: llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        "get_interactive_elements",
				Description: "List the interactive elements currently on the page.",
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"limit": map[string]interface{}{"type": "integer"}},
				},
			},
		},
		Call: func(ctx context.Context, args map[string]interface{}) (string, error) {
			limit, _ := intArg(args, "limit")
			return b.Call(ctx, sessionID, protocol.NewGetInteractiveElements(limit))
		},
	}
}

// intArg pulls an integer argument out of a decoded tool-call args map,
// tolerating the float64 JSON numbers produce.
func intArg(args map[string]interface{}, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q has unexpected type %T", name, v)
	}
}
