package bridge

import (
	"fmt"
	"strings"
)

// forbiddenURLPrefixes are schemes navigate_to must never be allowed to
// reach, regardless of case (§4.5 step 1 / P8).
var forbiddenURLPrefixes = []string{"chrome://", "about:", "file://"}

// ValidateNavigateURL rejects internal/local browser schemes before any
// WebSocket frame is sent, so a forbidden URL never touches the socket.
func ValidateNavigateURL(url string) error {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, prefix := range forbiddenURLPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return fmt.Errorf("%w: navigate_to forbids %q URLs", ErrInputRejected, prefix)
		}
	}
	return nil
}

// ErrInputRejected marks a tool call failure that the LLM can self-correct
// from (malformed args, forbidden scheme) rather than an infra problem.
var ErrInputRejected = fmt.Errorf("input rejected")
