package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/browserpilot/gateway/internal/protocol"
)

// streamRun serves the SSE path (§4.6 scenario 5). A tool-enabled session
// cannot stream through this transport — tool-call turns have no partial
// text to emit — so it falls back to running the request to completion and
// sending the whole answer as one chunk before [DONE].
func (h *Handlers) streamRun(w http.ResponseWriter, r *http.Request, req protocol.AgentRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if h.orchestrator.ToolSessionLive(req.SessionID) {
		resp, err := h.orchestrator.Run(r.Context(), req)
		if err != nil {
			writeSSEError(w, flusher, err)
			return
		}
		writeSSEChunk(w, flusher, resp.Response)
		writeSSEDone(w, flusher)
		return
	}

	chunks, errc := h.orchestrator.RunStream(r.Context(), req)
	for chunk := range chunks {
		writeSSEChunk(w, flusher, chunk)
	}
	if err := <-errc; err != nil {
		slog.Error("httpapi: stream failed", "error", err, "session_id", req.SessionID)
		writeSSEError(w, flusher, err)
		return
	}
	writeSSEDone(w, flusher)
}

// writeSSEChunk emits content as a raw SSE data event: one "data: " line per
// line of content, exactly as Server-Sent Events framing requires for
// multi-line payloads, followed by the blank line that terminates the event.
func writeSSEChunk(w http.ResponseWriter, f http.Flusher, content string) {
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
	f.Flush()
}

func writeSSEError(w http.ResponseWriter, f http.Flusher, err error) {
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
	f.Flush()
}

func writeSSEDone(w http.ResponseWriter, f http.Flusher) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	f.Flush()
}
