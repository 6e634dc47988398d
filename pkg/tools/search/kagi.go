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

const kagiEnrichWebURL = "https://kagi.com/api/v0/enrich/web"

// Kagi uses the enrichment web API, which favours non-commercial sources.
type Kagi struct {
	token   string
	client  *http.Client
	baseURL string
	limit   int
}

var _ Provider = (*Kagi)(nil)

func NewKagi(token string, opts ...Option) *Kagi {
	o := &clientOptions{client: http.DefaultClient, baseURL: kagiEnrichWebURL}
	for _, opt := range opts {
		opt(o)
	}
	return &Kagi{token: token, client: o.client, baseURL: o.baseURL, limit: 5}
}

type SearchObject struct {
	T         int    `json:"t"`
	Rank      int    `json:"rank"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	Published string `json:"published"`
}

type EnrichWebResponse struct {
	Meta struct {
		ID   string `json:"id"`
		Node string `json:"node"`
		MS   int    `json:"ms"`
	} `json:"meta"`
	Data  []SearchObject `json:"data"`
	Error []struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

func (k *Kagi) Search(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?q=%s", k.baseURL, url.QueryEscape(query)), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bot "+k.token)

	resp, err := k.client.Do(req)
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
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("non-200 response received: " + strings.TrimSpace(string(body)))
	}

	var response EnrichWebResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "failed to parse response body")
	}
	if len(response.Error) > 0 {
		return "", errors.Errorf("kagi error: %s", response.Error[0].Msg)
	}

	var lines []string
	for _, obj := range response.Data {
		// t=0 are search results, other types are related searches
		if obj.T != 0 {
			continue
		}
		snippet := StripHTML(obj.Snippet)
		if snippet == "" {
			snippet = obj.URL
		}
		lines = append(lines, fmt.Sprintf("%s: %s", StripHTML(obj.Title), snippet))
		if len(lines) == k.limit {
			break
		}
	}
	if len(lines) == 0 {
		return NoResult, nil
	}
	return strings.Join(lines, "\n"), nil
}
