package embeddings

import (
	"context"

	"github.com/pkg/errors"
)

type CohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            *int     `json:"top_n,omitempty"`
	MaxTokensPerDoc *int     `json:"max_tokens_per_doc,omitempty"`
}

type CohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type CohereRerankResponse struct {
	ID      string               `json:"id"`
	Results []CohereRerankResult `json:"results"`
}

// CohereReranker uses the Cohere rerank endpoint.
type CohereReranker struct {
	client *cohereClient
	model  string
}

var _ Reranker = &CohereReranker{}

func NewCohereReranker(apiKey, model string, opts ...CohereOption) *CohereReranker {
	if model == "" {
		model = "rerank-v3.5"
	}
	return &CohereReranker{client: newCohereClient(apiKey, opts), model: model}
}

func (r *CohereReranker) Rerank(ctx context.Context, query string, documents []string, options ...RerankOption) ([]RankResult, error) {
	if len(documents) == 0 {
		return []RankResult{}, nil
	}
	opts := &rerankOptions{}
	for _, option := range options {
		option(opts)
	}

	request := CohereRerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       documents,
		TopN:            opts.topN,
		MaxTokensPerDoc: opts.maxTokensPerDoc,
	}
	var response CohereRerankResponse
	if err := r.client.post(ctx, "rerank", request, &response); err != nil {
		return nil, err
	}

	results := make([]RankResult, 0, len(response.Results))
	for _, res := range response.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, errors.Errorf("cohere rerank returned index %d for %d documents", res.Index, len(documents))
		}
		results = append(results, RankResult{
			Index:    res.Index,
			Document: documents[res.Index],
			Score:    res.RelevanceScore,
		})
	}
	return results, nil
}

func (r *CohereReranker) GetModel() RerankerModel {
	return RerankerModel{Name: r.model}
}
