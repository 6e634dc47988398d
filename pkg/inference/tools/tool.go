package tools

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateToolName    = errors.New("duplicate tool name")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// ToolFunc maps a free-text tool input to a free-text result.
type ToolFunc func(ctx context.Context, input string) (string, error)

// Tool is a named capability the reasoning engine can choose to invoke.
// Tools are values: once registered they are never mutated.
type Tool struct {
	Name        string
	Description string
	Func        ToolFunc

	// ReturnDirect tools end the turn with their raw output, skipping
	// any further reasoning over the observation.
	ReturnDirect bool
	// SupportsAsync gates CallAsync.
	SupportsAsync bool
}

// Description is the part of a tool shown to the reasoning engine.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (t Tool) Describe() Description {
	return Description{Name: t.Name, Description: t.Description}
}

// ToolExecutionError wraps a failure returned by a tool's upstream call.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
