package embeddings

import (
	"context"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
)

type OllamaProvider struct {
	client     *api.Client
	model      string
	dimensions int
}

var _ Provider = &OllamaProvider{}

func NewOllamaProvider(client *api.Client, model string, dimensions int) *OllamaProvider {
	if model == "" {
		model = "all-minilm"
	}
	if dimensions <= 0 {
		dimensions = 384 // all-minilm
	}

	return &OllamaProvider{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := p.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (p *OllamaProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ollama embed")
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.Errorf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (p *OllamaProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{
		Name:       p.model,
		Dimensions: p.dimensions,
	}
}
