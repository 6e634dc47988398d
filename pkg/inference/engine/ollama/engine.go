package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OllamaEngine runs chat requests against a local Ollama server.
type OllamaEngine struct {
	client *api.Client
	chat   settings.ChatSettings
}

var _ engine.Engine = (*OllamaEngine)(nil)

func MakeClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama base URL %s", baseURL)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

func NewOllamaEngine(s *settings.Settings) (*OllamaEngine, error) {
	client, err := MakeClient(s.API.OllamaBaseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaEngine{client: client, chat: *s.Chat}, nil
}

func (e *OllamaEngine) options() map[string]interface{} {
	ret := map[string]interface{}{
		"temperature": e.chat.Temperature,
		"top_p":       e.chat.TopP,
	}
	if e.chat.MaxResponseTokens > 0 {
		ret["num_predict"] = e.chat.MaxResponseTokens
	}
	return ret
}

func (e *OllamaEngine) RunInference(ctx context.Context, messages []conversation.Message) (string, error) {
	if e.chat.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.chat.Timeout)
		defer cancel()
	}

	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    string(m.Role),
			Content: m.Text,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    e.chat.Engine,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options:  e.options(),
	}

	log.Debug().Str("model", req.Model).Int("messages", len(ollamaMessages)).Msg("ollama: chat")

	var sb strings.Builder
	err := e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama chat")
	}
	return sb.String(), nil
}
