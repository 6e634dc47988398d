package embeddings

import "context"

// RankResult is one reranked document.
type RankResult struct {
	// Index is the position of the document in the input list
	Index    int     `json:"index"`
	Document string  `json:"document"`
	Score    float64 `json:"score"`
}

type RerankerModel struct {
	Name string
}

type RerankOption func(*rerankOptions)

type rerankOptions struct {
	topN            *int
	maxTokensPerDoc *int
}

// WithTopN limits the number of results returned
func WithTopN(n int) RerankOption {
	return func(o *rerankOptions) {
		o.topN = &n
	}
}

func WithMaxTokensPerDoc(n int) RerankOption {
	return func(o *rerankOptions) {
		o.maxTokensPerDoc = &n
	}
}

// Reranker orders documents by their relevance to a query, most relevant
// first.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, options ...RerankOption) ([]RankResult, error)
	GetModel() RerankerModel
}
