package tools

import (
	"fmt"
)

// ToolError is a user-facing tool failure. The message is safe to show to
// end users and to the model; lower-level transport errors must not leak
// through it.
type ToolError struct {
	Code    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Errorf builds a ToolError with the default code.
func Errorf(format string, args ...any) *ToolError {
	return &ToolError{Code: "tool_error", Message: fmt.Sprintf(format, args...)}
}
