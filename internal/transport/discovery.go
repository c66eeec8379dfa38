// ABOUTME: Health, root discovery, and OAuth compatibility stub endpoints.
// ABOUTME: Exists so discovery-driven MCP clients can bootstrap a connection.

package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/loreweave/lore-gateway/internal/store"
)

// handleHealth reports liveness. Carries the protocol headers like every
// other endpoint so probes can double as header checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, _ := s.sessions.GetOrCreate(sessionIDFrom(r))
	setProtocolHeaders(w, sess.ID)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRegister is the OAuth dynamic client registration stub. Clients
// get a client_id back; the gateway doesn't gate access on it.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	clientID := uuid.New().String()
	s.logger.Debug("registered client", "client_id", clientID)

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"client_id": clientID,
	})
}

// handleToken is the OAuth token endpoint stub. With a configured JWT
// authority it mints a real signed token; otherwise an opaque one.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.FormValue("client_id")

	var token string
	var expiresIn time.Duration
	if s.authority != nil {
		var err error
		token, expiresIn, err = s.authority.Issue(clientID)
		if err != nil {
			s.logger.Error("failed to issue token", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	} else {
		token = uuid.New().String()
		expiresIn = 24 * time.Hour
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(expiresIn.Seconds()),
	})
}

// handleOAuthMetadata serves the authorization server discovery document.
func (s *Server) handleOAuthMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	issuer := "http://" + r.Host
	if r.TLS != nil {
		issuer = "https://" + r.Host
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                issuer,
		"token_endpoint":        issuer + "/token",
		"registration_endpoint": issuer + "/register",
	})
}

// handleUsage exposes the invocation ledger.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.ledger == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"enabled": false,
		})
		return
	}

	filter := store.Filter{}
	if tool := r.URL.Query().Get("tool"); tool != "" {
		filter.Tool = &tool
	}
	if sinceRaw := r.URL.Query().Get("since"); sinceRaw != "" {
		since, err := time.Parse(time.RFC3339, sinceRaw)
		if err != nil {
			http.Error(w, "invalid since parameter, want RFC 3339", http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}
	if untilRaw := r.URL.Query().Get("until"); untilRaw != "" {
		until, err := time.Parse(time.RFC3339, untilRaw)
		if err != nil {
			http.Error(w, "invalid until parameter, want RFC 3339", http.StatusBadRequest)
			return
		}
		filter.Until = &until
	}

	stats, err := s.ledger.Stats(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to query usage stats", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	recent, err := s.ledger.ListRecentInvocations(r.Context(), 20)
	if err != nil {
		s.logger.Error("failed to list invocations", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	type recentEntry struct {
		ID         string `json:"id"`
		SessionID  string `json:"session_id"`
		Tool       string `json:"tool"`
		DurationMs int64  `json:"duration_ms"`
		IsError    bool   `json:"is_error"`
		CreatedAt  string `json:"created_at"`
	}
	entries := make([]recentEntry, len(recent))
	for i, inv := range recent {
		entries[i] = recentEntry{
			ID:         inv.ID,
			SessionID:  inv.SessionID,
			Tool:       inv.Tool,
			DurationMs: inv.Duration.Milliseconds(),
			IsError:    inv.IsError,
			CreatedAt:  inv.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	resp := struct {
		Enabled bool              `json:"enabled"`
		Stats   *store.UsageStats `json:"stats"`
		Recent  []recentEntry     `json:"recent"`
	}{
		Enabled: true,
		Stats:   stats,
		Recent:  entries,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode usage response", "error", err)
	}
}
