package factory

import (
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/engine/ollama"
	"github.com/go-go-golems/bionet/pkg/inference/engine/openai"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
)

// NewEngineFromSettings picks the engine implementation for the configured API type.
func NewEngineFromSettings(s *settings.Settings) (engine.Engine, error) {
	if s == nil || s.Chat == nil {
		return nil, errors.New("no chat settings")
	}
	switch s.Chat.ApiType {
	case settings.ApiTypeOpenAI:
		return openai.NewOpenAIEngine(s)
	case settings.ApiTypeOllama:
		return ollama.NewOllamaEngine(s)
	default:
		return nil, errors.Errorf("unsupported chat api type %q", s.Chat.ApiType)
	}
}
