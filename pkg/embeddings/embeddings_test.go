package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider returns {len(text), 1, 2} and counts upstream calls.
type MockProvider struct {
	mu         sync.Mutex
	calls      int
	batchCalls int
	failOn     string
}

var _ Provider = &MockProvider{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.failOn != "" && text == m.failOn {
		return nil, errors.New("mock failure")
	}
	return []float32{float32(len(text)), 1.0, 2.0}, nil
}

func (m *MockProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	return DefaultGenerateBatchEmbeddings(ctx, m, texts)
}

func (m *MockProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{Name: "mock", Dimensions: 3}
}

func TestBatchProcessing(t *testing.T) {
	t.Run("default sequential implementation", func(t *testing.T) {
		provider := NewMockProvider()
		results, err := DefaultGenerateBatchEmbeddings(context.Background(), provider, []string{"one", "two", "three"})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []float32{3.0, 1.0, 2.0}, results[0])
		assert.Equal(t, []float32{5.0, 1.0, 2.0}, results[2])
	})

	t.Run("sequential implementation surfaces errors", func(t *testing.T) {
		provider := NewMockProvider()
		provider.failOn = "three"
		_, err := DefaultGenerateBatchEmbeddings(context.Background(), provider, []string{"one", "three"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mock failure")
		assert.Contains(t, err.Error(), "embedding text 1")
	})

	t.Run("empty input", func(t *testing.T) {
		provider := NewMockProvider()
		results, err := DefaultGenerateBatchEmbeddings(context.Background(), provider, []string{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("hits skip the upstream provider", func(t *testing.T) {
		mock := NewMockProvider()
		cached := NewCachedProvider(mock, 10)

		_, err := cached.GenerateEmbedding(ctx, "hello")
		require.NoError(t, err)
		_, err = cached.GenerateEmbedding(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, 1, mock.calls)
		assert.Equal(t, 1, cached.Size())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		mock := NewMockProvider()
		cached := NewCachedProvider(mock, 2)

		for _, s := range []string{"a", "b", "a", "c"} {
			_, err := cached.GenerateEmbedding(ctx, s)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, cached.Size())
		assert.Equal(t, 3, mock.calls)

		// "b" was evicted, "a" was kept
		_, err := cached.GenerateEmbedding(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 3, mock.calls)
		_, err = cached.GenerateEmbedding(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 4, mock.calls)
	})

	t.Run("batch only fetches misses", func(t *testing.T) {
		mock := NewMockProvider()
		cached := NewCachedProvider(mock, 10)

		_, err := cached.GenerateEmbedding(ctx, "one")
		require.NoError(t, err)

		res, err := cached.GenerateBatchEmbeddings(ctx, []string{"one", "three"})
		require.NoError(t, err)
		assert.Equal(t, float32(3), res[0][0])
		assert.Equal(t, float32(5), res[1][0])
		assert.Equal(t, 2, mock.calls)
		assert.Equal(t, 1, mock.batchCalls)

		cached.ClearCache()
		assert.Equal(t, 0, cached.Size())
		assert.Equal(t, 10, cached.MaxSize())
	})
}

func TestSupportsOpenAIDimensionsOverride(t *testing.T) {
	assert.True(t, supportsOpenAIDimensionsOverride(openai.SmallEmbedding3))
	assert.True(t, supportsOpenAIDimensionsOverride(openai.LargeEmbedding3))
	assert.False(t, supportsOpenAIDimensionsOverride(openai.AdaEmbeddingV2))
}

func TestOpenAIProviderBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, 4, req.Dimensions)

		// reversed on purpose, the provider orders by index
		data := []map[string]interface{}{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 0, 0, 0},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	defer srv.Close()

	config := openai.DefaultConfig("test")
	config.BaseURL = srv.URL + "/v1"
	p := NewOpenAIProvider(openai.NewClientWithConfig(config), openai.SmallEmbedding3, 4)

	res, err := p.GenerateBatchEmbeddings(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, float32(0), res[0][0])
	assert.Equal(t, float32(2), res[2][0])
	assert.Equal(t, EmbeddingModel{Name: "text-embedding-3-small", Dimensions: 4}, p.GetModel())
}

func TestOllamaProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{float32(len(req.Input[i])), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":      req.Model,
			"embeddings": embeddings,
		})
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	p := NewOllamaProvider(api.NewClient(u, srv.Client()), "nomic-embed-text", 2)

	v, err := p.GenerateEmbedding(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, v)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
