package agent

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"github.com/browserpilot/gateway/internal/llm"
)

// maxScreenshotDimension bounds the width/height a decoded screenshot is
// allowed to keep; oversized captures are downscaled before being handed to
// the LLM, both to keep the request body reasonable and because a
// vision model gains nothing from resolution beyond this.
const maxScreenshotDimension = 1568

// NormalizeScreenshot decodes img and, if either dimension exceeds
// maxScreenshotDimension, downscales it and re-encodes it as JPEG; an image
// within bounds is returned unchanged, in its original format. A malformed or
// unsupported image is passed through unchanged — image decoding is a
// best-effort optimization, not a correctness requirement, so a decode
// failure here must never block the agent run.
func NormalizeScreenshot(img *llm.ImageContent) *llm.ImageContent {
	if img == nil {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return img
	}

	decoded, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}

	bounds := decoded.Bounds()
	if bounds.Dx() <= maxScreenshotDimension && bounds.Dy() <= maxScreenshotDimension {
		return img
	}

	resized := imaging.Fit(decoded, maxScreenshotDimension, maxScreenshotDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return img
	}

	return &llm.ImageContent{
		MimeType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
}

