// Package tools holds the gateway's static tool registry.
//
// A Descriptor pairs a stable tool name and JSON input schema with an
// in-process handler. The registry is populated once during start-up and is
// read-only afterwards; tools/list reports descriptors in registration
// order. Handlers return a Result classified by Shape (single entity, hit
// list, or status) so the envelope builder can pick the right embedded JSON
// layout, and signal domain failures with *ToolError carrying an
// application error code outside the reserved JSON-RPC range.
//
// Input schemas are compiled with santhosh-tekuri/jsonschema at
// registration; the dispatcher validates tools/call arguments against them
// before a handler ever runs.
package tools
