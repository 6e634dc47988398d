package factory

import (
	"testing"

	"github.com/go-go-golems/bionet/pkg/inference/engine/ollama"
	"github.com/go-go-golems/bionet/pkg/inference/engine/openai"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineFromSettings(t *testing.T) {
	s := settings.NewSettings()
	s.API.OpenAIAPIKey = "sk-test"

	e, err := NewEngineFromSettings(s)
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIEngine{}, e)

	s.Chat.ApiType = settings.ApiTypeOllama
	e, err = NewEngineFromSettings(s)
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaEngine{}, e)

	s.Chat.ApiType = "claude"
	_, err = NewEngineFromSettings(s)
	assert.Error(t, err)
}

func TestOpenAIEngineNeedsKey(t *testing.T) {
	s := settings.NewSettings()
	_, err := NewEngineFromSettings(s)
	assert.Error(t, err)
}
