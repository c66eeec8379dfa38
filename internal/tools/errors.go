// ABOUTME: Domain error type and application error codes for tool execution.
// ABOUTME: Codes live outside the reserved JSON-RPC range and are wire-stable.

package tools

import "fmt"

// Application error codes carried in JSON-RPC error objects. These sit
// outside the reserved -327xx range; clients can branch on them.
const (
	CodeUnknownTool     = 1001
	CodeExecutionFailed = 1002
	CodeNotFound        = 1003
	CodeUnauthorized    = 1004
	CodeInvalidInput    = 1005
)

// ToolError is a domain failure safe to surface to the calling agent.
// The message never contains upstream internals or credentials.
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Errorf builds a ToolError with a formatted message.
func Errorf(code int, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}
