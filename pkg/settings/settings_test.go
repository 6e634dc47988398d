package settings

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, "gpt-4", s.Chat.Engine)
	assert.Equal(t, 10, s.Agent.MemoryWindow)
	assert.Equal(t, []string{".md", ".pdf", ".txt"}, s.Index.Extensions)
}

func TestFromViperReadsFlagsAndOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--ai-engine", "gpt-3.5-turbo",
		"--memory-window", "3",
		"--turn-timeout", "30s",
		"--planner-mode", "functions",
	}))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	v.Set("kagi-api-key", "secret")

	s, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", s.Chat.Engine)
	assert.Equal(t, 3, s.Agent.MemoryWindow)
	assert.Equal(t, 30*time.Second, s.Agent.TurnTimeout)
	assert.Equal(t, PlannerModeFunctions, s.Agent.PlannerMode)
	assert.Equal(t, "secret", s.Tools.KagiAPIKey)
	assert.Equal(t, 0.2, s.Chat.TopP)
}

func TestValidateRejectsBadValues(t *testing.T) {
	s := NewSettings()
	s.Agent.PlannerMode = "guess"
	assert.Error(t, s.Validate())

	s = NewSettings()
	s.Index.ChunkOverlap = s.Index.ChunkSize
	assert.Error(t, s.Validate())

	s = NewSettings()
	s.Chat.ApiType = "claude"
	assert.Error(t, s.Validate())

	s = NewSettings()
	s.Chat.ApiType = ApiTypeCohere
	assert.Error(t, s.Validate())

	s = NewSettings()
	s.Embeddings.CacheType = "redis"
	assert.Error(t, s.Validate())

	s = NewSettings()
	s.Index.Reranker = ApiTypeOllama
	assert.Error(t, s.Validate())
}

func TestFromViperReadsCacheAndReranker(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--embeddings-type=cohere",
		"--embeddings-cache-type", "disk",
		"--embeddings-cache-directory", "/tmp/emb",
		"--index-reranker", "cohere",
	}))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	v.Set("cohere-api-key", "co-key")

	s, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ApiTypeCohere, s.Embeddings.Type)
	assert.Equal(t, CacheTypeDisk, s.Embeddings.CacheType)
	assert.Equal(t, "/tmp/emb", s.Embeddings.CacheDirectory)
	assert.Equal(t, int64(1<<30), s.Embeddings.CacheMaxBytes)
	assert.Equal(t, ApiTypeCohere, s.Index.Reranker)
	assert.Equal(t, "rerank-v3.5", s.Index.RerankModel)
	assert.Equal(t, "co-key", s.API.CohereAPIKey)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSettings()
	c := s.Clone()
	c.Chat.Engine = "other"
	c.Index.Extensions[0] = ".html"

	assert.Equal(t, "gpt-4", s.Chat.Engine)
	assert.Equal(t, ".md", s.Index.Extensions[0])
}
