package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine runs chat completions against the OpenAI API (or any
// compatible endpoint).
type OpenAIEngine struct {
	client *go_openai.Client
	chat   settings.ChatSettings
}

var _ engine.EngineWithTools = (*OpenAIEngine)(nil)

func MakeClient(api *settings.APISettings) (*go_openai.Client, error) {
	if api == nil || api.OpenAIAPIKey == "" {
		return nil, errors.New("no API key for openai")
	}
	config := go_openai.DefaultConfig(api.OpenAIAPIKey)
	if api.OpenAIBaseURL != "" {
		config.BaseURL = api.OpenAIBaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func NewOpenAIEngine(s *settings.Settings) (*OpenAIEngine, error) {
	client, err := MakeClient(s.API)
	if err != nil {
		return nil, err
	}
	return NewOpenAIEngineWithClient(client, s.Chat), nil
}

func NewOpenAIEngineWithClient(client *go_openai.Client, chat *settings.ChatSettings) *OpenAIEngine {
	return &OpenAIEngine{
		client: client,
		chat:   *chat,
	}
}

func (e *OpenAIEngine) makeRequest(messages []conversation.Message) go_openai.ChatCompletionRequest {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    roleToOpenAI(m.Role),
			Content: m.Text,
		})
	}
	return go_openai.ChatCompletionRequest{
		Model:       e.chat.Engine,
		Messages:    msgs,
		Temperature: float32(e.chat.Temperature),
		TopP:        float32(e.chat.TopP),
		MaxTokens:   e.chat.MaxResponseTokens,
	}
}

func roleToOpenAI(r conversation.Role) string {
	switch r {
	case conversation.RoleSystem:
		return go_openai.ChatMessageRoleSystem
	case conversation.RoleAssistant:
		return go_openai.ChatMessageRoleAssistant
	default:
		return go_openai.ChatMessageRoleUser
	}
}

func (e *OpenAIEngine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.chat.Timeout > 0 {
		return context.WithTimeout(ctx, e.chat.Timeout)
	}
	return context.WithCancel(ctx)
}

func (e *OpenAIEngine) RunInference(ctx context.Context, messages []conversation.Message) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	req := e.makeRequest(messages)
	start := time.Now()
	log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("openai: chat completion")

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("openai: chat completion done")
	return resp.Choices[0].Message.Content, nil
}

// RunInferenceWithTools offers the tool definitions as functions. When the
// model picks one, the call is rendered as a JSON action blob.
func (e *OpenAIEngine) RunInferenceWithTools(
	ctx context.Context,
	messages []conversation.Message,
	defs []tools.Definition,
) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	req := e.makeRequest(messages)
	for _, d := range defs {
		req.Tools = append(req.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	log.Debug().Str("model", req.Model).Int("tools", len(req.Tools)).Msg("openai: chat completion with tools")
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return msg.Content, nil
	}
	if len(msg.ToolCalls) > 1 {
		log.Warn().Int("tool_calls", len(msg.ToolCalls)).Msg("openai: only the first tool call is dispatched")
	}
	return ToolCallToAction(msg.ToolCalls[0])
}

type action struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
}

// ToolCallToAction converts a native tool call into the action blob format.
// Arguments that are not a {"input": ...} object are passed through as raw text.
func ToolCallToAction(tc go_openai.ToolCall) (string, error) {
	input := strings.TrimSpace(tc.Function.Arguments)
	if parsed, err := tools.ParseArguments(input); err == nil {
		input = parsed
	} else {
		log.Debug().Err(err).Str("tool", tc.Function.Name).Msg("openai: passing raw tool arguments")
	}
	b, err := json.Marshal(action{Action: tc.Function.Name, ActionInput: input})
	if err != nil {
		return "", errors.Wrap(err, "marshal tool call")
	}
	return string(b), nil
}
