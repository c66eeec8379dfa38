// Package archive is the HTTP client for the upstream wiki/archive card API.
//
// The gateway's tools ultimately resolve to calls on this client. It holds a
// single pooled http.Client shared by every tool handler, authenticates with
// a bearer token obtained from a TokenSource (static today, refresh-capable
// by contract), and maps upstream HTTP failures to typed errors so tool
// handlers can translate them to stable domain errors without leaking
// upstream internals.
package archive
