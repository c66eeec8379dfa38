// ABOUTME: Routes JSON-RPC requests to the tool registry and builds responses.
// ABOUTME: Pure with respect to the wire; session bookkeeping stays in transports.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loreweave/lore-gateway/internal/envelope"
	"github.com/loreweave/lore-gateway/internal/tools"
)

// ProtocolVersion is the MCP protocol revision this gateway implements.
const ProtocolVersion = "2024-11-05"

// DefaultCallTimeout bounds a single tool invocation.
const DefaultCallTimeout = 30 * time.Second

// Caller identifies the originator of a request for logging and the
// invocation ledger. Transports fill it in; the dispatcher never touches
// session state.
type Caller struct {
	SessionID string
	Transport string
}

// InvocationRecord captures one tools/call for the ledger.
type InvocationRecord struct {
	ID        string
	SessionID string
	Tool      string
	Duration  time.Duration
	IsError   bool
	Error     string
	CreatedAt time.Time
}

// Recorder persists invocation records. Implementations must tolerate
// concurrent calls; a nil Recorder disables recording.
type Recorder interface {
	RecordInvocation(ctx context.Context, rec *InvocationRecord) error
}

// ToolInfo is one entry of a tools/list result.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams are the params for tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result for tools/call.
type CallToolResult struct {
	Content []envelope.Content `json:"content"`
}

// Config holds configuration for the Dispatcher.
type Config struct {
	Registry      *tools.Registry
	Logger        *slog.Logger
	Recorder      Recorder      // optional
	ServerName    string        // advertised in initialize
	ServerVersion string        // advertised in initialize
	CallTimeout   time.Duration // defaults to DefaultCallTimeout
}

// Dispatcher parses raw JSON-RPC bodies and routes them by method.
// Dispatch never returns an error; every failure becomes a well-formed
// JSON-RPC error response.
type Dispatcher struct {
	registry      *tools.Registry
	logger        *slog.Logger
	recorder      Recorder
	serverName    string
	serverVersion string
	callTimeout   time.Duration
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	name := cfg.ServerName
	if name == "" {
		name = "lore-gateway"
	}

	return &Dispatcher{
		registry:      cfg.Registry,
		logger:        logger.With("component", "dispatch"),
		recorder:      cfg.Recorder,
		serverName:    name,
		serverVersion: cfg.ServerVersion,
		callTimeout:   timeout,
	}, nil
}

// Dispatch processes one raw JSON-RPC body and returns the response.
// A nil response means the request was a notification.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte, caller Caller) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return NewError(nil, CodeParseError, "invalid JSON", nil)
	}

	if req.JSONRPC != "2.0" {
		return NewError(req.ID, CodeInvalidRequest, "invalid JSON-RPC version", nil)
	}
	if req.Method == "" {
		return NewError(req.ID, CodeInvalidRequest, "method is required", nil)
	}

	if req.IsNotification() {
		if !strings.HasPrefix(req.Method, "notifications/") {
			d.logger.Warn("notification for non-notification method", "method", req.Method)
		} else {
			d.logger.Debug("accepted notification", "method", req.Method)
		}
		return nil
	}

	d.logger.Debug("dispatching request",
		"method", req.Method,
		"session_id", caller.SessionID,
		"transport", caller.Transport,
	)

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, req, caller)
	default:
		return NewError(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

// handleInitialize returns the fixed capability negotiation object.
func (d *Dispatcher) handleInitialize(req Request) *Response {
	result := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	}
	return NewResult(req.ID, result)
}

// handleToolsList returns the registry contents in registration order.
func (d *Dispatcher) handleToolsList(req Request) *Response {
	descs := d.registry.List()
	result := ListToolsResult{Tools: make([]ToolInfo, len(descs))}
	for i, desc := range descs {
		result.Tools[i] = ToolInfo{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		}
	}

	d.logger.Debug("tools/list", "count", len(result.Tools))
	return NewResult(req.ID, result)
}

// handleToolsCall resolves the tool, validates arguments, and runs the
// handler under the call timeout.
func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request, caller Caller) *Response {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "invalid params", nil)
		}
	}
	if params.Name == "" {
		return NewError(req.ID, CodeInvalidParams, "tool name is required", nil)
	}

	// The method tools/call itself was valid, so an unknown tool is an
	// application error, not -32601.
	desc, ok := d.registry.Get(params.Name)
	if !ok {
		return NewError(req.ID, tools.CodeUnknownTool,
			fmt.Sprintf("unknown tool '%s'", params.Name), nil)
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	if err := desc.ValidateArgs(args); err != nil {
		return NewError(req.ID, CodeInvalidParams,
			fmt.Sprintf("invalid arguments for tool '%s'", params.Name),
			map[string]string{"detail": err.Error()})
	}

	requestID := uuid.New().String()
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := desc.Handler(callCtx, args)
	elapsed := time.Since(start)

	resp := d.buildCallResponse(req.ID, params.Name, requestID, result, err)
	d.record(ctx, caller, params.Name, requestID, elapsed, resp)
	return resp
}

// buildCallResponse maps a handler outcome to the wire response.
func (d *Dispatcher) buildCallResponse(id json.RawMessage, toolName, requestID string, result *tools.Result, err error) *Response {
	if err != nil {
		d.logger.Warn("tool execution failed",
			"tool_name", toolName,
			"request_id", requestID,
			"error", err,
		)

		var toolErr *tools.ToolError
		switch {
		case errors.As(err, &toolErr):
			return NewError(id, toolErr.Code, toolErr.Message, map[string]string{"tool": toolName})
		case errors.Is(err, context.DeadlineExceeded):
			return NewError(id, CodeInternalError, "tool execution timed out", nil)
		case errors.Is(err, context.Canceled):
			return NewError(id, CodeInternalError, "request cancelled", nil)
		default:
			// Unclassified failure: never leak internals to the agent
			return NewError(id, tools.CodeExecutionFailed, "tool execution failed", map[string]string{"tool": toolName})
		}
	}

	content, err := envelope.Build(result)
	if err != nil {
		d.logger.Error("envelope construction failed", "tool_name", toolName, "error", err)
		return NewError(id, CodeInternalError, "internal error", nil)
	}

	d.logger.Debug("tools/call complete", "tool_name", toolName, "request_id", requestID)
	return NewResult(id, CallToolResult{Content: content})
}

// record persists an invocation to the ledger when one is configured.
func (d *Dispatcher) record(ctx context.Context, caller Caller, toolName, requestID string, elapsed time.Duration, resp *Response) {
	if d.recorder == nil {
		return
	}

	rec := &InvocationRecord{
		ID:        requestID,
		SessionID: caller.SessionID,
		Tool:      toolName,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if resp.Error != nil {
		rec.IsError = true
		rec.Error = resp.Error.Message
	}

	if err := d.recorder.RecordInvocation(ctx, rec); err != nil {
		d.logger.Warn("failed to record invocation", "tool_name", toolName, "error", err)
	}
}
