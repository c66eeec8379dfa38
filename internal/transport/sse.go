// ABOUTME: SSE stream transport binding for /sse and content-negotiated GET /.
// ABOUTME: Emits the endpoint handshake frame, then relays queued dispatcher events.

package transport

import (
	"fmt"
	"net/http"
	"time"
)

// keepAliveInterval is how often an idle stream emits a comment frame so
// intermediaries don't drop the connection.
const keepAliveInterval = 30 * time.Second

// serveStream holds an SSE connection open for one session. The first
// frame is the endpoint event pointing at the companion legacy POST URL;
// after that the stream relays whatever the dispatcher enqueues.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s.verifyBearer(r)

	sess, created := s.sessions.GetOrCreate(sessionIDFrom(r))

	if err := s.sessions.AcquireStream(sess.ID); err != nil {
		setProtocolHeaders(w, sess.ID)
		http.Error(w, "session already has an active stream", http.StatusConflict)
		return
	}
	defer s.sessions.ReleaseStream(sess.ID)

	events, err := s.sessions.Events(sess.ID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	setProtocolHeaders(w, sess.ID)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Handshake: tell the client where to POST its requests.
	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", sess.ID)
	flusher.Flush()

	s.logger.Info("SSE stream opened",
		"session_id", sess.ID,
		"new_session", created,
		"remote", r.RemoteAddr,
	)

	// Flush anything that queued up before the stream attached.
	for _, frame := range s.sessions.Drain(sess.ID) {
		writeEventFrame(w, frame)
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE stream closed", "session_id", sess.ID)
			return
		case frame := <-events:
			writeEventFrame(w, frame)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// writeEventFrame writes one message event in SSE wire format.
func writeEventFrame(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}
