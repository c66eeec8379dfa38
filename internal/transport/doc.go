// ABOUTME: Package documentation for transport.
// ABOUTME: Describes the three HTTP bindings and their shared plumbing.

// Package transport exposes the gateway's HTTP surface.
//
// Three bindings coexist, accumulated by the client ecosystem rather than
// designed together, and all funnel into the same dispatcher and session
// manager:
//
//   - Direct: POST /message (plus POST / and POST /sse) runs one JSON-RPC
//     request/response cycle and returns 200 with the response body. The
//     session id travels in the Mcp-Session-Id header both ways.
//
//   - SSE stream: GET /sse (or GET / with Accept: text/event-stream)
//     opens a long-lived stream. The first frame is an endpoint event
//     carrying the session-scoped legacy POST URL; after that, dispatcher
//     responses enqueued for the session are relayed as message events.
//
//   - Legacy two-endpoint: POST /messages?session_id=<id> with a strict
//     session lookup. A miss is 404 with a JSON-RPC error body so the
//     client restarts its handshake; a hit is 202 with the response
//     inline and mirrored onto the session's stream.
//
// Discovery endpoints (/health, root metadata, the OAuth stubs, and
// /api/usage) round out the surface so common clients can bootstrap.
package transport
