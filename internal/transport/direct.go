// ABOUTME: Direct transport binding: single request/response JSON-RPC over POST.
// ABOUTME: Serves /message plus POST fallbacks on / and /sse, and root metadata.

package transport

import (
	"net/http"
	"strings"

	"github.com/loreweave/lore-gateway/internal/dispatch"
)

// handleMessage is the unified JSON-RPC endpoint.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	s.serveDirect(w, r)
}

// handleRoot negotiates between the metadata document, an SSE stream, and
// a direct JSON-RPC POST depending on method and Accept header.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.serveDirect(w, r)
	case http.MethodGet:
		if acceptsEventStream(r) {
			s.serveStream(w, r)
			return
		}
		s.serveMetadata(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleSSE opens a stream on GET and falls back to the direct binding on
// POST for clients that treat /sse as a unified endpoint.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.serveStream(w, r)
	case http.MethodPost:
		s.serveDirect(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// serveDirect runs one JSON-RPC request/response cycle. The session rides
// in on the Mcp-Session-Id header and is created when absent or unknown.
func (s *Server) serveDirect(w http.ResponseWriter, r *http.Request) {
	s.verifyBearer(r)

	sess, created := s.sessions.GetOrCreate(sessionIDFrom(r))
	setProtocolHeaders(w, sess.ID)
	if created {
		s.logger.Debug("session attached", "session_id", sess.ID, "path", r.URL.Path)
	}

	body, err := readBody(r)
	if err != nil {
		resp := dispatch.NewError(nil, dispatch.CodeInvalidRequest, err.Error(), nil)
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), body, dispatch.Caller{
		SessionID: sess.ID,
		Transport: "direct",
	})
	if resp == nil {
		// Notification: nothing to return
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.writeResponse(w, resp, http.StatusOK)
}

// serveMetadata returns the root discovery document.
func (s *Server) serveMetadata(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.GetOrCreate(sessionIDFrom(r))
	setProtocolHeaders(w, sess.ID)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":     "lore-gateway",
		"protocol": "mcp",
		"version":  s.version,
		"endpoints": []string{
			"/message",
			"/messages",
			"/sse",
			"/health",
		},
	})
}

// sessionIDFrom pulls the candidate session id from header or query param.
func sessionIDFrom(r *http.Request) string {
	if id := r.Header.Get("Mcp-Session-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("session_id")
}

// acceptsEventStream reports whether the client asked for an SSE stream.
func acceptsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
