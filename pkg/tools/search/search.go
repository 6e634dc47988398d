package search

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ToolName        = "custom_search"
	ToolDescription = "useful for when you need to look up things you don't know"
)

// Provider runs a web search and returns the results as plain text.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
}

// NewTool wraps p as the custom_search tool. Failures are not retried.
func NewTool(p Provider) tools.Tool {
	return tools.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		Func: func(ctx context.Context, query string) (string, error) {
			log.Info().Str("tool", ToolName).Str("query", query).Msg("tool query")
			return p.Search(ctx, query)
		},
	}
}

func NewProviderFromSettings(s *settings.ToolSettings, client *http.Client) (Provider, error) {
	if s == nil {
		return nil, errors.New("no tool settings")
	}
	if client == nil {
		client = http.DefaultClient
	}
	switch strings.ToLower(s.SearchProvider) {
	case "", "serpapi":
		if s.SerpAPIKey == "" {
			return nil, errors.New("no API key for serpapi")
		}
		return NewSerpAPI(s.SerpAPIKey, WithHTTPClient(client)), nil
	case "kagi":
		if s.KagiAPIKey == "" {
			return nil, errors.New("no API key for kagi")
		}
		return NewKagi(s.KagiAPIKey, WithHTTPClient(client)), nil
	default:
		return nil, errors.Errorf("unknown search provider %q", s.SearchProvider)
	}
}

type clientOptions struct {
	client  *http.Client
	baseURL string
}

type Option func(*clientOptions)

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.client = c }
}

func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// StripHTML returns the text content of an HTML fragment, with runs of
// whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
