package embeddings

import (
	"context"

	"github.com/pkg/errors"
)

// DefaultGenerateBatchEmbeddings embeds texts one by one, for providers
// without native batch support.
func DefaultGenerateBatchEmbeddings(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := p.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, errors.Wrapf(err, "embedding text %d", i)
		}
		results[i] = embedding
	}
	return results, nil
}
