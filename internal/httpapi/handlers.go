// Package httpapi is the plain HTTP surface (A3): the non-streaming and
// streaming agent-run endpoints the gateway mux delegates to, in the same
// bare net/http idiom the gateway uses for its own routes.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/browserpilot/gateway/internal/agent"
	"github.com/browserpilot/gateway/internal/protocol"
)

// Handlers binds the agent orchestrator to the HTTP surface.
type Handlers struct {
	orchestrator *agent.Orchestrator
}

// New creates the HTTP handlers bound to an orchestrator.
func New(orchestrator *agent.Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

// Register wires /api/chat, /agent/run (both the same handler) onto mux.
// Matches the gateway's own SetAgentRoutes hook shape.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", withCORS(h.handleRun))
	mux.HandleFunc("/agent/run", withCORS(h.handleRun))
}

// withCORS mirrors the gateway's permissive-by-default CORS handling for
// this package's own routes.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (h *Handlers) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req protocol.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Stream {
		h.streamRun(w, r, req)
		return
	}

	resp, err := h.orchestrator.Run(r.Context(), req)
	if err != nil {
		slog.Error("httpapi: agent run failed", "error", err, "session_id", req.SessionID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("httpapi: encode response", "error", err)
	}
}
