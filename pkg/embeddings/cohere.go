package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const DefaultCohereBaseURL = "https://api.cohere.com/v2"

// cohereClient posts JSON to the Cohere v2 API.
type cohereClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func (c *cohereClient) post(ctx context.Context, endpoint string, request interface{}, response interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Client-Name", "go-go-golems/bionet")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to send request to cohere %s", endpoint)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("cohere %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return errors.Wrap(json.Unmarshal(data, response), "failed to parse response body")
}

type CohereOption func(*cohereClient)

func WithCohereBaseURL(baseURL string) CohereOption {
	return func(c *cohereClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithCohereHTTPClient(h *http.Client) CohereOption {
	return func(c *cohereClient) {
		if h != nil {
			c.http = h
		}
	}
}

func newCohereClient(apiKey string, opts []CohereOption) *cohereClient {
	c := &cohereClient{apiKey: apiKey, baseURL: DefaultCohereBaseURL, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CohereEmbedRequest struct {
	Model           string   `json:"model"`
	InputType       string   `json:"input_type"`
	Texts           []string `json:"texts,omitempty"`
	OutputDimension int      `json:"output_dimension,omitempty"`
	EmbeddingTypes  []string `json:"embedding_types,omitempty"`
	Truncate        string   `json:"truncate,omitempty"`
}

type CohereEmbedResponse struct {
	ID         string `json:"id"`
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

// Cohere input types. Queries and documents are embedded differently.
const (
	CohereInputSearchQuery    = "search_query"
	CohereInputSearchDocument = "search_document"
)

// CohereProvider embeds single texts as search queries and batches as
// documents, which matches how retrieval and indexing call it.
type CohereProvider struct {
	client     *cohereClient
	model      string
	dimensions int
}

var _ Provider = &CohereProvider{}

func NewCohereProvider(apiKey, model string, dimensions int, opts ...CohereOption) *CohereProvider {
	if model == "" {
		model = "embed-english-v3.0"
	}
	return &CohereProvider{
		client:     newCohereClient(apiKey, opts),
		model:      model,
		dimensions: dimensions,
	}
}

// only embed-v4 accepts an output dimension
func supportsCohereOutputDimension(model string) bool {
	return strings.HasPrefix(model, "embed-v4")
}

func (p *CohereProvider) embed(ctx context.Context, inputType string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	request := CohereEmbedRequest{
		Model:          p.model,
		InputType:      inputType,
		Texts:          texts,
		EmbeddingTypes: []string{"float"},
		Truncate:       "END",
	}
	if supportsCohereOutputDimension(p.model) && p.dimensions > 0 {
		request.OutputDimension = p.dimensions
	}
	var response CohereEmbedResponse
	if err := p.client.post(ctx, "embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings.Float) != len(texts) {
		return nil, errors.Errorf("cohere returned %d embeddings for %d texts", len(response.Embeddings.Float), len(texts))
	}
	return response.Embeddings.Float, nil
}

func (p *CohereProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := p.embed(ctx, CohereInputSearchQuery, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (p *CohereProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return p.embed(ctx, CohereInputSearchDocument, texts)
}

func (p *CohereProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{
		Name:       p.model,
		Dimensions: p.dimensions,
	}
}
