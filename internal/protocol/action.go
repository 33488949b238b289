package protocol

// InteractiveElement describes one element the extension found on the page.
// ID is an opaque ref handle assigned by the extension; the backend only
// ever forwards it back inside a click_element/type_text command.
type InteractiveElement struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ActionResult is the decoded, internal-facing form of an ActionResult
// envelope's data — success/error/payload for one round-trip.
type ActionResult struct {
	RequestID string
	Success   bool
	Error     string
	Data      []byte
}

// FromActionResultData converts the wire shape into the internal shape used
// by the pending-action registry and the tool bridge.
func FromActionResultData(d ActionResultData) ActionResult {
	r := ActionResult{
		RequestID: d.RequestID,
		Success:   d.Success,
		Data:      []byte(d.Data),
	}
	if d.Error != nil {
		r.Error = *d.Error
	}
	return r
}
