package embeddings

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

var _ Provider = &OpenAIProvider{}

func NewOpenAIProvider(client *openai.Client, model openai.EmbeddingModel, dimensions int) *OpenAIProvider {
	if model == "" {
		model = openai.SmallEmbedding3
	}
	if dimensions <= 0 {
		dimensions = 1536
	}

	return &OpenAIProvider{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// only the text-embedding-3 family accepts a dimensions override
func supportsOpenAIDimensionsOverride(model openai.EmbeddingModel) bool {
	switch model {
	case openai.SmallEmbedding3, openai.LargeEmbedding3:
		return true
	default:
		return false
	}
}

func (p *OpenAIProvider) newRequest(texts []string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	}
	if supportsOpenAIDimensionsOverride(p.model) {
		req.Dimensions = p.dimensions
	}
	return req
}

func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := p.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (p *OpenAIProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, p.newRequest(texts))
	if err != nil {
		return nil, errors.Wrap(err, "openai embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	results := make([][]float32, len(data))
	for i, d := range data {
		results[i] = d.Embedding
	}
	return results, nil
}

func (p *OpenAIProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{
		Name:       string(p.model),
		Dimensions: p.dimensions,
	}
}
