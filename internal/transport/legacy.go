// ABOUTME: Legacy two-endpoint transport binding: POST /messages?session_id=...
// ABOUTME: Strict session lookup with 404 on miss and 202 on success.

package transport

import (
	"encoding/json"
	"net/http"

	"github.com/loreweave/lore-gateway/internal/dispatch"
)

// handleLegacyMessages serves the companion POST endpoint of the legacy SSE
// handshake. The session must already exist; a miss is surfaced as 404 so
// the client restarts its handshake instead of silently getting a fresh
// session with an empty stream.
func (s *Server) handleLegacyMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	s.verifyBearer(r)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = r.Header.Get("Mcp-Session-Id")
	}

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		s.logger.Warn("legacy POST for unknown session", "session_id", sessionID)
		resp := dispatch.NewError(nil, dispatch.CodeInvalidRequest,
			"Session not found; open the SSE endpoint to obtain a new session", nil)
		s.writeJSON(w, http.StatusNotFound, resp)
		return
	}
	setProtocolHeaders(w, sess.ID)

	body, err := readBody(r)
	if err != nil {
		resp := dispatch.NewError(nil, dispatch.CodeInvalidRequest, err.Error(), nil)
		s.writeJSON(w, http.StatusAccepted, resp)
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), body, dispatch.Caller{
		SessionID: sess.ID,
		Transport: "legacy",
	})
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Mirror the response onto the session's stream so clients that only
	// read from the SSE side still see it.
	if frame, err := json.Marshal(resp); err == nil {
		if err := s.sessions.Enqueue(sess.ID, string(frame)); err != nil {
			s.logger.Warn("failed to enqueue response frame", "session_id", sess.ID, "error", err)
		}
	}

	s.writeResponse(w, resp, http.StatusAccepted)
}
