// ABOUTME: Package documentation for dispatch.
// ABOUTME: Explains the JSON-RPC routing layer shared by all transports.

// Package dispatch implements JSON-RPC 2.0 parsing and method routing.
//
// Every HTTP transport hands raw request bodies to a single Dispatcher,
// which parses them, routes initialize, tools/list, and tools/call, and
// always produces a well-formed response object (or nil for
// notifications). Protocol-reserved error codes are used only for
// protocol failures; tool-level failures surface as application codes
// from the tools package so agents can tell a broken request apart from
// a tool that ran and failed.
package dispatch
