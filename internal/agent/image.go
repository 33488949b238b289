package agent

import (
	"strings"

	"github.com/browserpilot/gateway/internal/llm"
)

// recognizedImagePrefixes maps a data-URL prefix to its MIME type, checked
// in order (§6's three recognized prefixes).
var recognizedImagePrefixes = []struct {
	prefix   string
	mimeType string
}{
	{"data:image/png;base64,", "image/png"},
	{"data:image/jpeg;base64,", "image/jpeg"},
	{"data:image/webp;base64,", "image/webp"},
}

// ParseImageDataURL decodes an optional image field into the ImageContent
// the LLM facade expects, per §6's parsing rules (P9):
//   - a recognized "data:image/...;base64," prefix yields its media type and
//     the stripped payload;
//   - otherwise, if a comma exists, the portion after the first comma is
//     treated as raw base64 JPEG;
//   - otherwise the whole string is treated as raw base64 JPEG.
func ParseImageDataURL(raw string) *llm.ImageContent {
	if raw == "" {
		return nil
	}
	for _, p := range recognizedImagePrefixes {
		if strings.HasPrefix(raw, p.prefix) {
			return &llm.ImageContent{MimeType: p.mimeType, Data: strings.TrimPrefix(raw, p.prefix)}
		}
	}
	if idx := strings.IndexByte(raw, ','); idx >= 0 {
		return &llm.ImageContent{MimeType: "image/jpeg", Data: raw[idx+1:]}
	}
	return &llm.ImageContent{MimeType: "image/jpeg", Data: raw}
}
