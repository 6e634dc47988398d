package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, handler func(req go_openai.ChatCompletionRequest) go_openai.ChatCompletionResponse) *OpenAIEngine {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req go_openai.ChatCompletionRequest
		require.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(req)))
	}))
	t.Cleanup(srv.Close)

	s := settings.NewSettings()
	s.API.OpenAIAPIKey = "test"
	s.API.OpenAIBaseURL = srv.URL + "/v1"
	e, err := NewOpenAIEngine(s)
	require.NoError(t, err)
	return e
}

func TestRunInferenceSendsSettingsAndRoles(t *testing.T) {
	var got go_openai.ChatCompletionRequest
	e := newTestEngine(t, func(req go_openai.ChatCompletionRequest) go_openai.ChatCompletionResponse {
		got = req
		return go_openai.ChatCompletionResponse{
			Choices: []go_openai.ChatCompletionChoice{
				{Message: go_openai.ChatCompletionMessage{Role: "assistant", Content: "I am BIOGEN"}},
			},
		}
	})

	out, err := e.RunInference(context.Background(), []conversation.Message{
		{Role: conversation.RoleSystem, Text: "persona"},
		{Role: conversation.RoleUser, Text: "Who are you?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "I am BIOGEN", out)

	assert.Equal(t, "gpt-4", got.Model)
	assert.InDelta(t, 0.2, got.TopP, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestRunInferenceWithToolsConvertsToolCalls(t *testing.T) {
	e := newTestEngine(t, func(req go_openai.ChatCompletionRequest) go_openai.ChatCompletionResponse {
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "Calculator", req.Tools[0].Function.Name)
		return go_openai.ChatCompletionResponse{
			Choices: []go_openai.ChatCompletionChoice{
				{Message: go_openai.ChatCompletionMessage{
					Role: "assistant",
					ToolCalls: []go_openai.ToolCall{{
						ID:   "call-1",
						Type: go_openai.ToolTypeFunction,
						Function: go_openai.FunctionCall{
							Name:      "Calculator",
							Arguments: `{"input": "2^10"}`,
						},
					}},
				}},
			},
		}
	})

	defs := []tools.Definition{{Name: "Calculator", Description: "math"}}
	out, err := e.RunInferenceWithTools(context.Background(), []conversation.Message{
		{Role: conversation.RoleUser, Text: "What is 2 raised to the 10th power?"},
	}, defs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "Calculator", "action_input": "2^10"}`, out)
}

func TestToolCallToActionPassesRawArguments(t *testing.T) {
	out, err := ToolCallToAction(go_openai.ToolCall{
		Function: go_openai.FunctionCall{Name: "NBlast", Arguments: "gttccatggccaacacttgtcacta"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "NBlast", "action_input": "gttccatggccaacacttgtcacta"}`, out)
}

func TestMakeClientRequiresKey(t *testing.T) {
	_, err := MakeClient(&settings.APISettings{})
	assert.Error(t, err)
}
