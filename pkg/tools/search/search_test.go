package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "about 20,000 genes", StripHTML("about <b>20,000</b>\n genes"))
	assert.Equal(t, "plain text", StripHTML("  plain   text "))
	assert.Equal(t, "A & B", StripHTML("A &amp; B"))
}

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSerpAPI(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "answer box",
			body: `{"answer_box": {"answer": "20,000"}, "organic_results": [{"title": "x", "snippet": "y"}]}`,
			want: "20,000",
		},
		{
			name: "highlighted words",
			body: `{"answer_box": {"snippet": "long", "snippet_highlighted_words": ["about 20,000"]}}`,
			want: "about 20,000",
		},
		{
			name: "knowledge graph",
			body: `{"knowledge_graph": {"title": "Genome", "description": "The human genome is..."}}`,
			want: "The human genome is...",
		},
		{
			name: "organic snippets",
			body: `{"organic_results": [{"title": "NIH", "snippet": "between <b>19,000</b> and 20,000"}, {"title": "empty"}]}`,
			want: "NIH: between 19,000 and 20,000",
		},
		{
			name: "nothing",
			body: `{}`,
			want: NoResult,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body, func(r *http.Request) {
				assert.Equal(t, "google", r.URL.Query().Get("engine"))
				assert.Equal(t, "human genes", r.URL.Query().Get("q"))
				assert.Equal(t, "key", r.URL.Query().Get("api_key"))
			})
			s := NewSerpAPI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
			got, err := s.Search(context.Background(), "human genes")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerpAPIErrorsBecomeToolExecutionErrors(t *testing.T) {
	srv := serve(t, http.StatusUnauthorized, `{"error": "Invalid API key."}`, nil)
	tool := NewTool(NewSerpAPI("bad", WithBaseURL(srv.URL)))
	assert.False(t, tool.SupportsAsync)
	assert.False(t, tool.ReturnDirect)

	_, err := tools.Call(context.Background(), tool, "anything")
	require.Error(t, err)
	var te *tools.ToolExecutionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ToolName, te.Tool)
	assert.Contains(t, err.Error(), "Invalid API key.")
}

func TestKagi(t *testing.T) {
	body := `{
		"meta": {"id": "1", "node": "eu", "ms": 10},
		"data": [
			{"t": 0, "rank": 1, "url": "https://a.example", "title": "Genes <i>count</i>", "snippet": "about <b>20,000</b> genes"},
			{"t": 1, "rank": 2, "url": "https://b.example", "title": "related", "snippet": "skip me"},
			{"t": 0, "rank": 3, "url": "https://c.example", "title": "No snippet", "snippet": ""}
		]
	}`
	srv := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "Bot token", r.Header.Get("Authorization"))
		assert.Equal(t, "human genes", r.URL.Query().Get("q"))
	})
	k := NewKagi("token", WithBaseURL(srv.URL))

	got, err := k.Search(context.Background(), "human genes")
	require.NoError(t, err)
	assert.Equal(t, "Genes count: about 20,000 genes\nNo snippet: https://c.example", got)
}

func TestKagiNon200(t *testing.T) {
	srv := serve(t, http.StatusForbidden, `{"error": [{"code": 1, "msg": "nope"}]}`, nil)
	_, err := NewKagi("token", WithBaseURL(srv.URL)).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-200")
}

func TestNewProviderFromSettings(t *testing.T) {
	s := settings.NewSettings().Tools

	_, err := NewProviderFromSettings(s, nil)
	require.Error(t, err)

	s.SerpAPIKey = "k"
	p, err := NewProviderFromSettings(s, nil)
	require.NoError(t, err)
	assert.IsType(t, &SerpAPI{}, p)

	s.SearchProvider = "kagi"
	_, err = NewProviderFromSettings(s, nil)
	require.Error(t, err)
	s.KagiAPIKey = "k"
	p, err = NewProviderFromSettings(s, nil)
	require.NoError(t, err)
	assert.IsType(t, &Kagi{}, p)

	s.SearchProvider = "bing"
	_, err = NewProviderFromSettings(s, nil)
	require.Error(t, err)
}
