package protocol

import (
	"encoding/json"
	"fmt"
)

// Command tags, exactly as they appear nested inside an action_request's
// "command" object.
const (
	CmdNavigateTo             = "navigate_to"
	CmdClickElement           = "click_element"
	CmdTypeText               = "type_text"
	CmdScrollTo               = "scroll_to"
	CmdGetPageContent         = "get_page_content"
	CmdGetInteractiveElements = "get_interactive_elements"
)

// ActionCommand is the tagged union of browser actions the bridge can send.
// Unlike the outer envelope, a command's own "type" tag sits alongside its
// fields rather than behind a nested "data" — see §6's wire examples.
type ActionCommand struct {
	Type string

	// navigate_to
	URL string

	// click_element / type_text — wire field is "ref", internal name is RefID.
	RefID int

	// type_text
	Text string

	// scroll_to
	X int
	Y int

	// get_page_content
	MaxLength int
	HasMaxLength bool

	// get_interactive_elements
	Limit    int
	HasLimit bool
}

// NewNavigateTo builds a navigate_to command.
func NewNavigateTo(url string) ActionCommand {
	return ActionCommand{Type: CmdNavigateTo, URL: url}
}

// NewClickElement builds a click_element command.
func NewClickElement(refID int) ActionCommand {
	return ActionCommand{Type: CmdClickElement, RefID: refID}
}

// NewTypeText builds a type_text command.
func NewTypeText(refID int, text string) ActionCommand {
	return ActionCommand{Type: CmdTypeText, RefID: refID, Text: text}
}

// NewScrollTo builds a scroll_to command.
func NewScrollTo(x, y int) ActionCommand {
	return ActionCommand{Type: CmdScrollTo, X: x, Y: y}
}

// NewGetPageContent builds a get_page_content command.
func NewGetPageContent(maxLength int) ActionCommand {
	if maxLength <= 0 {
		return ActionCommand{Type: CmdGetPageContent}
	}
	return ActionCommand{Type: CmdGetPageContent, MaxLength: maxLength, HasMaxLength: true}
}

// NewGetInteractiveElements builds a get_interactive_elements command.
func NewGetInteractiveElements(limit int) ActionCommand {
	if limit <= 0 {
		return ActionCommand{Type: CmdGetInteractiveElements}
	}
	return ActionCommand{Type: CmdGetInteractiveElements, Limit: limit, HasLimit: true}
}

// MarshalJSON flattens the command's type tag alongside its own fields.
func (c ActionCommand) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case CmdNavigateTo:
		return json.Marshal(struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		}{c.Type, c.URL})
	case CmdClickElement:
		return json.Marshal(struct {
			Type string `json:"type"`
			Ref  int    `json:"ref"`
		}{c.Type, c.RefID})
	case CmdTypeText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Ref  int    `json:"ref"`
			Text string `json:"text"`
		}{c.Type, c.RefID, c.Text})
	case CmdScrollTo:
		return json.Marshal(struct {
			Type string `json:"type"`
			X    int    `json:"x"`
			Y    int    `json:"y"`
		}{c.Type, c.X, c.Y})
	case CmdGetPageContent:
		out := struct {
			Type      string `json:"type"`
			MaxLength *int   `json:"max_length,omitempty"`
		}{Type: c.Type}
		if c.HasMaxLength {
			out.MaxLength = &c.MaxLength
		}
		return json.Marshal(out)
	case CmdGetInteractiveElements:
		out := struct {
			Type  string `json:"type"`
			Limit *int   `json:"limit,omitempty"`
		}{Type: c.Type}
		if c.HasLimit {
			out.Limit = &c.Limit
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("protocol: unknown command type %q", c.Type)
	}
}

// UnmarshalJSON decodes a command by peeking its "type" tag, then pulling
// only the fields that tag defines.
func (c *ActionCommand) UnmarshalJSON(raw []byte) error {
	var head struct {
		Type      string `json:"type"`
		URL       string `json:"url"`
		Ref       int    `json:"ref"`
		Text      string `json:"text"`
		X         int    `json:"x"`
		Y         int    `json:"y"`
		MaxLength *int   `json:"max_length"`
		Limit     *int   `json:"limit"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return fmt.Errorf("protocol: decode command: %w", err)
	}

	*c = ActionCommand{Type: head.Type}
	switch head.Type {
	case CmdNavigateTo:
		c.URL = head.URL
	case CmdClickElement:
		c.RefID = head.Ref
	case CmdTypeText:
		c.RefID = head.Ref
		c.Text = head.Text
	case CmdScrollTo:
		c.X = head.X
		c.Y = head.Y
	case CmdGetPageContent:
		if head.MaxLength != nil {
			c.MaxLength = *head.MaxLength
			c.HasMaxLength = true
		}
	case CmdGetInteractiveElements:
		if head.Limit != nil {
			c.Limit = *head.Limit
			c.HasLimit = true
		}
	default:
		return fmt.Errorf("protocol: unknown command type %q", head.Type)
	}
	return nil
}
