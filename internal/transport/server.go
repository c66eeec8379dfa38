// ABOUTME: HTTP server exposing the three MCP transport bindings.
// ABOUTME: Funnels every binding into the shared dispatcher and session manager.

package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/loreweave/lore-gateway/internal/auth"
	"github.com/loreweave/lore-gateway/internal/dispatch"
	"github.com/loreweave/lore-gateway/internal/session"
	"github.com/loreweave/lore-gateway/internal/store"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Config holds configuration for the transport server.
type Config struct {
	Sessions   *session.Manager
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
	Version    string
	Authority  auth.Authority // optional, nil issues opaque stub tokens
	Ledger     store.Ledger   // optional, nil disables /api/usage detail
}

// Server binds the direct, SSE stream, and legacy two-endpoint transports
// over one ServeMux. All three share the same session manager and
// dispatcher so a session created on one binding is visible to the others.
type Server struct {
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	version    string
	authority  auth.Authority
	ledger     store.Ledger
}

// NewServer creates a transport server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		logger:     logger.With("component", "transport"),
		version:    cfg.Version,
		authority:  cfg.Authority,
		ledger:     cfg.Ledger,
	}, nil
}

// RegisterRoutes registers all transport endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/messages", s.handleLegacyMessages)
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleOAuthMetadata)
	mux.HandleFunc("/api/usage", s.handleUsage)
}

// setProtocolHeaders stamps the session and protocol version headers every
// response carries, streaming or not.
func setProtocolHeaders(w http.ResponseWriter, sessionID string) {
	w.Header().Set("Mcp-Session-Id", sessionID)
	w.Header().Set("MCP-Protocol-Version", dispatch.ProtocolVersion)
}

// verifyBearer checks any bearer token on the request and logs the outcome.
// The OAuth surface is a compatibility stub, so a bad token is logged rather
// than rejected; clients that never fetched a token still get service.
func (s *Server) verifyBearer(r *http.Request) {
	if s.authority == nil {
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return
	}
	clientID, err := s.authority.Verify(token)
	if err != nil {
		s.logger.Debug("bearer token rejected", "error", err)
		return
	}
	s.logger.Debug("bearer token verified", "client_id", clientID)
}

// readBody reads a request body under the size cap.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > MaxRequestBodySize {
		return nil, errors.New("request body too large")
	}
	return body, nil
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

// writeResponse maps a dispatcher response to the HTTP wire. Parse errors
// are the one JSON-RPC failure reported as HTTP 400; everything else rides
// on okStatus with the error carried in the body.
func (s *Server) writeResponse(w http.ResponseWriter, resp *dispatch.Response, okStatus int) {
	status := okStatus
	if resp.Error != nil && resp.Error.Code == dispatch.CodeParseError {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, resp)
}
