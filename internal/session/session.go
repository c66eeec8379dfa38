// ABOUTME: Session manager tracking MCP client identity across HTTP requests.
// ABOUTME: Owns per-session pending event queues used by the streaming transports.

package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session errors
var (
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStreamActive indicates the session already has a live SSE stream.
	ErrStreamActive = errors.New("session stream already active")
)

// DefaultIdleTTL is how long an idle session survives before it is swept.
const DefaultIdleTTL = 30 * time.Minute

// defaultQueueSize is the pending-event channel buffer per session.
// Matches the broadcaster's subscriber buffer order of magnitude.
const defaultQueueSize = 128

// Session is a server-side identity correlating a client's requests.
// ID and CreatedAt are immutable; the rest is guarded by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	// pending holds serialized SSE frames awaiting delivery to a stream.
	pending chan string

	mu         sync.Mutex
	lastActive time.Time
	streaming  bool
}

// LastActive returns the time of the session's most recent request.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// touch bumps lastActive, never moving it backwards.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
}

// Config holds configuration for the session Manager.
type Config struct {
	Logger    *slog.Logger
	IdleTTL   time.Duration // defaults to DefaultIdleTTL
	QueueSize int           // defaults to defaultQueueSize
}

// Manager issues, stores, and expires sessions. All operations are safe for
// concurrent use; operations on different sessions do not contend beyond the
// map lookup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger    *slog.Logger
	idleTTL   time.Duration
	queueSize int

	done   chan struct{}
	closed bool
}

// NewManager creates a session manager and starts its background sweeper.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	m := &Manager{
		sessions:  make(map[string]*Session),
		logger:    logger.With("component", "session-manager"),
		idleTTL:   ttl,
		queueSize: queueSize,
		done:      make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Create generates a fresh session and stores it.
func (m *Manager) Create() *Session {
	now := time.Now()
	sess := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastActive: now,
		pending:    make(chan string, m.queueSize),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Debug("session created", "session_id", sess.ID)
	return sess
}

// GetOrCreate returns the session for candidateID if known, bumping its
// activity time; otherwise it creates a new session. The boolean reports
// whether a new session was created.
func (m *Manager) GetOrCreate(candidateID string) (*Session, bool) {
	if candidateID != "" {
		if sess, ok := m.Get(candidateID); ok {
			return sess, false
		}
	}
	return m.Create(), true
}

// Get performs a strict lookup and bumps last activity on hit. The legacy
// /messages endpoint depends on a miss being surfaced, not papered over.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch(time.Now())
	return sess, true
}

// Enqueue appends a serialized SSE frame to the session's pending queue.
// Returns ErrSessionNotFound for unknown sessions. If the queue is full the
// frame is dropped, matching the broadcaster's slow-subscriber policy.
func (m *Manager) Enqueue(id, frame string) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	select {
	case sess.pending <- frame:
	default:
		m.logger.Warn("pending queue full, dropping frame", "session_id", id)
	}
	return nil
}

// Drain removes and returns all frames currently queued for the session.
// Returns nil for unknown sessions.
func (m *Manager) Drain(id string) []string {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	var frames []string
	for {
		select {
		case frame := <-sess.pending:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

// Events returns the session's pending-frame channel so a streaming
// transport can block on delivery instead of polling.
func (m *Manager) Events(id string) (<-chan string, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.pending, nil
}

// AcquireStream claims the session's single streaming slot.
// Returns ErrStreamActive if another stream already holds it.
func (m *Manager) AcquireStream(id string) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.streaming {
		return ErrStreamActive
	}
	sess.streaming = true
	return nil
}

// ReleaseStream releases the streaming slot. The session itself is kept
// until the idle TTL expires so a trailing legacy POST can still find it;
// the activity clock restarts at the disconnect, not the last request.
func (m *Manager) ReleaseStream(id string) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	now := time.Now()
	sess.mu.Lock()
	sess.streaming = false
	if now.After(sess.lastActive) {
		sess.lastActive = now
	}
	sess.mu.Unlock()
}

// ExpireIdle removes sessions idle longer than ttl and reports how many.
// Sessions holding their streaming slot are never expired: a quiet stream
// only sees keep-alive comments, which don't count as client activity, and
// its advertised /messages URL must stay valid until the client disconnects.
func (m *Manager) ExpireIdle(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		sess.mu.Lock()
		expired := !sess.streaming && now.Sub(sess.lastActive) > ttl
		sess.mu.Unlock()
		if expired {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired idle sessions", "count", removed, "remaining", len(m.sessions))
	}
	return removed
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// sweep runs in a background goroutine, periodically expiring idle sessions.
func (m *Manager) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ExpireIdle(time.Now(), m.idleTTL)
		case <-m.done:
			return
		}
	}
}

// Close stops the background sweeper. Safe to call multiple times.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.done)
		m.closed = true
	}
}
