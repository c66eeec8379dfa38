// Package store persists the tool invocation ledger.
//
// Every tools/call the gateway dispatches can be recorded here with its
// tool name, session, duration, and outcome. The ledger backs the
// GET /api/usage endpoint with aggregate statistics and a recent
// invocation feed.
//
// The only implementation is SQLiteLedger, built on modernc.org/sqlite
// with WAL mode enabled. The ledger is optional; running without a
// database path simply disables recording.
package store
