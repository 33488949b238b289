// Package gateway is the WebSocket session loop (C4): it upgrades incoming
// connections, mints a session_id per connection, and hands each connection
// off to a Client that owns the socket for its lifetime.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/browserpilot/gateway/internal/config"
	"github.com/browserpilot/gateway/internal/protocol"
	"github.com/browserpilot/gateway/internal/registry"
)

// Server owns the HTTP mux, the WebSocket upgrader, and the CORS policy for
// the gateway's inbound surface.
type Server struct {
	cfg      *config.Config
	sessions *registry.Sessions
	pending  *registry.Pending

	upgrader websocket.Upgrader
	clients  map[string]*Client
	mu       sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux

	// agentRoutes, when set, registers the HTTP agent-run surface (A3) onto
	// the same mux the WebSocket endpoint lives on.
	agentRoutes func(*http.ServeMux)
}

// NewServer creates a gateway server bound to the given session and
// pending-action registries.
func NewServer(cfg *config.Config, sessions *registry.Sessions, pending *registry.Pending) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		pending:  pending,
		clients:  make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetAgentRoutes wires the HTTP agent-run surface onto this server's mux.
// Called once before BuildMux/Start.
func (s *Server) SetAgentRoutes(register func(*http.ServeMux)) {
	s.agentRoutes = register
}

// checkOrigin implements permissive-by-default CORS for the WebSocket
// upgrade: with no configured allow-list every origin is accepted, matching
// §6's "permissive on all origins" requirement.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.GatewaySnapshot().AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("gateway: cors rejected", "origin", origin)
	return false
}

// withCORS wraps a handler with the permissive CORS headers §6 requires for
// the plain-HTTP surface.
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

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", withCORS(s.handleHealth))
	if s.agentRoutes != nil {
		s.agentRoutes(mux)
	}
	s.mux = mux
	return mux
}

// Start begins listening for WebSocket and HTTP connections and blocks until
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()
	gw := s.cfg.GatewaySnapshot()
	addr := fmt.Sprintf("%s:%d", gw.Host, gw.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("gateway starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

// handleWebSocket upgrades the connection, mints a session, and runs the
// per-connection client loop until the socket closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway: websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, s.sessions, s.pending)
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

// handleHealth reports liveness and the wire protocol version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID()] = c
	slog.Info("gateway: client connected", "session_id", c.ID())
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.ID())
	slog.Info("gateway: client disconnected", "session_id", c.ID())
}

// ClientCount reports the number of live connections (test/introspection
// helper).
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// StartTestServer creates a listener on :0 (random port) and returns the
// actual address and a start function, for integration tests that need a
// real socket.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		s.httpServer.Serve(ln)
	}
	return addr, start
}
