package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const serpAPIBaseURL = "https://serpapi.com/search"

// NoResult is returned when a response holds nothing usable.
const NoResult = "No good search result found"

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

var _ Provider = (*SerpAPI)(nil)

func NewSerpAPI(apiKey string, opts ...Option) *SerpAPI {
	o := &clientOptions{client: http.DefaultClient, baseURL: serpAPIBaseURL}
	for _, opt := range opts {
		opt(o)
	}
	return &SerpAPI{apiKey: apiKey, client: o.client, baseURL: o.baseURL}
}

type serpAPIResponse struct {
	Error     string `json:"error"`
	AnswerBox *struct {
		Answer                  string   `json:"answer"`
		Snippet                 string   `json:"snippet"`
		SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
		Result                  string   `json:"result"`
	} `json:"answer_box"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (s *SerpAPI) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	var r serpAPIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", errors.Errorf("serpapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", errors.Wrap(err, "failed to parse response body")
	}
	if r.Error != "" {
		return "", errors.Errorf("serpapi error: %s", r.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("serpapi returned %d", resp.StatusCode)
	}

	return r.text(), nil
}

// text prefers direct answers, then the knowledge graph, then organic snippets.
func (r *serpAPIResponse) text() string {
	if ab := r.AnswerBox; ab != nil {
		switch {
		case ab.Answer != "":
			return StripHTML(ab.Answer)
		case ab.Result != "":
			return StripHTML(ab.Result)
		case len(ab.SnippetHighlightedWords) > 0:
			return StripHTML(ab.SnippetHighlightedWords[0])
		case ab.Snippet != "":
			return StripHTML(ab.Snippet)
		}
	}
	if kg := r.KnowledgeGraph; kg != nil && kg.Description != "" {
		return StripHTML(kg.Description)
	}

	var snippets []string
	for _, o := range r.OrganicResults {
		if o.Snippet == "" {
			continue
		}
		snippets = append(snippets, fmt.Sprintf("%s: %s", StripHTML(o.Title), StripHTML(o.Snippet)))
		if len(snippets) == 5 {
			break
		}
	}
	if len(snippets) == 0 {
		return NoResult
	}
	return strings.Join(snippets, "\n")
}
