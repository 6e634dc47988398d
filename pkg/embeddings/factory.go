package embeddings

import (
	ollama_engine "github.com/go-go-golems/bionet/pkg/inference/engine/ollama"
	openai_engine "github.com/go-go-golems/bionet/pkg/inference/engine/openai"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// NewProviderFromSettings builds the configured provider, wrapped in the
// configured cache: an in-memory LRU of CacheSize entries or a disk cache
// that survives between runs.
func NewProviderFromSettings(s *settings.Settings) (Provider, error) {
	if s == nil || s.Embeddings == nil || s.API == nil {
		return nil, errors.New("no embeddings settings")
	}

	var provider Provider
	switch s.Embeddings.Type {
	case settings.ApiTypeOpenAI:
		client, err := openai_engine.MakeClient(s.API)
		if err != nil {
			return nil, err
		}
		provider = NewOpenAIProvider(client, openai.EmbeddingModel(s.Embeddings.Engine), s.Embeddings.Dimensions)
	case settings.ApiTypeOllama:
		client, err := ollama_engine.MakeClient(s.API.OllamaBaseURL)
		if err != nil {
			return nil, err
		}
		provider = NewOllamaProvider(client, s.Embeddings.Engine, s.Embeddings.Dimensions)
	case settings.ApiTypeCohere:
		if s.API.CohereAPIKey == "" {
			return nil, errors.New("no API key for cohere")
		}
		provider = NewCohereProvider(s.API.CohereAPIKey, s.Embeddings.Engine, s.Embeddings.Dimensions,
			WithCohereBaseURL(s.API.CohereBaseURL))
	default:
		return nil, errors.Errorf("unsupported embeddings type %q", s.Embeddings.Type)
	}

	switch s.Embeddings.CacheType {
	case settings.CacheTypeDisk:
		cached, err := NewDiskCacheProvider(provider,
			WithDirectory(s.Embeddings.CacheDirectory),
			WithMaxEntries(s.Embeddings.CacheMaxEntries),
			WithMaxSize(s.Embeddings.CacheMaxBytes))
		if err != nil {
			return nil, err
		}
		return cached, nil
	case settings.CacheTypeNone:
		return provider, nil
	default:
		if s.Embeddings.CacheSize > 0 {
			provider = NewCachedProvider(provider, s.Embeddings.CacheSize)
		}
		return provider, nil
	}
}

// NewRerankerFromSettings returns nil when no reranker is configured.
func NewRerankerFromSettings(s *settings.Settings) (Reranker, error) {
	if s == nil || s.Index == nil || s.API == nil {
		return nil, errors.New("no index settings")
	}
	switch s.Index.Reranker {
	case "":
		return nil, nil
	case settings.ApiTypeCohere:
		if s.API.CohereAPIKey == "" {
			return nil, errors.New("no API key for cohere reranker")
		}
		return NewCohereReranker(s.API.CohereAPIKey, s.Index.RerankModel, WithCohereBaseURL(s.API.CohereBaseURL)), nil
	default:
		return nil, errors.Errorf("unsupported reranker %q", s.Index.Reranker)
	}
}
