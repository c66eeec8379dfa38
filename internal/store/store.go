// ABOUTME: Types and interface for the tool invocation ledger
// ABOUTME: Records every tools/call outcome for usage analytics

package store

import (
	"context"
	"time"
)

// Invocation records a single tool call and its outcome.
type Invocation struct {
	ID        string
	SessionID string
	Tool      string
	Duration  time.Duration
	IsError   bool
	Error     string
	CreatedAt time.Time
}

// ToolStats aggregates invocations for one tool.
type ToolStats struct {
	Tool        string  `json:"tool"`
	Count       int64   `json:"count"`
	ErrorCount  int64   `json:"error_count"`
	AvgDuration float64 `json:"avg_duration_ms"`
	LastInvoked string  `json:"last_invoked"`
}

// UsageStats summarizes ledger contents for the usage endpoint.
type UsageStats struct {
	TotalInvocations int64       `json:"total_invocations"`
	TotalErrors      int64       `json:"total_errors"`
	ByTool           []ToolStats `json:"by_tool"`
}

// Filter narrows ledger queries.
type Filter struct {
	Tool  *string
	Since *time.Time
	Until *time.Time
}

// Ledger persists and queries tool invocations.
type Ledger interface {
	RecordInvocation(ctx context.Context, inv *Invocation) error
	ListRecentInvocations(ctx context.Context, limit int) ([]*Invocation, error)
	Stats(ctx context.Context, filter Filter) (*UsageStats, error)
	Close() error
}
