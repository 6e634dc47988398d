package engine

import (
	"context"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
)

// Engine is the reasoning service: given a list of messages it returns
// the model's reply as text. Engines do not know about plans or tools.
type Engine interface {
	RunInference(ctx context.Context, messages []conversation.Message) (string, error)
}

// EngineWithTools is implemented by engines that support native function
// calling. A chosen function is reported as a JSON action blob
// ({"action": name, "action_input": input}) so callers parse a single format.
type EngineWithTools interface {
	Engine
	RunInferenceWithTools(ctx context.Context, messages []conversation.Message, defs []tools.Definition) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, messages []conversation.Message) (string, error)

func (f EngineFunc) RunInference(ctx context.Context, messages []conversation.Message) (string, error) {
	return f(ctx, messages)
}

// Complete runs a single user prompt, optionally preceded by a system prompt.
func Complete(ctx context.Context, e Engine, system string, prompt string) (string, error) {
	messages := make([]conversation.Message, 0, 2)
	if system != "" {
		messages = append(messages, conversation.NewMessage(conversation.RoleSystem, system))
	}
	messages = append(messages, conversation.NewMessage(conversation.RoleUser, prompt))
	return e.RunInference(ctx, messages)
}
