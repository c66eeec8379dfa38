// Package session tracks MCP client identity across HTTP requests.
//
// A Session correlates requests arriving on any of the gateway's transports,
// keyed by a UUID carried in the Mcp-Session-Id header or the legacy
// session_id query parameter. Sessions are never persisted; they live in an
// in-memory map guarded by a RWMutex and are swept by a background goroutine
// once idle past the configured TTL.
//
// Each session owns a pending-event queue (a buffered channel of serialized
// SSE frames). The legacy POST endpoint enqueues dispatcher responses here;
// the SSE stream adapter blocks on the channel and flushes frames to the
// wire in FIFO order. At most one stream may hold a session's streaming slot
// at a time; disconnecting releases the slot but keeps the session alive for
// the idle TTL so a trailing POST still resolves.
package session
