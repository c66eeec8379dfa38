// Package gateway wires the lore-gateway components together.
//
// New builds the full stack from a loaded configuration: session manager,
// archive client, tool registry, dispatcher, invocation ledger, and the
// HTTP transport server. Run starts the server and blocks until the
// context is canceled, then shuts everything down gracefully.
package gateway
