package index

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EmptyResponse is returned when retrieval finds nothing to answer from.
const EmptyResponse = "Empty Response"

const answerTemplate = `Context information is below.
---------------------
{{ range .Sources }}file: {{ .Path }}

{{ .Text | trim }}

{{ end }}---------------------
Given the context information and not prior knowledge, answer the query.
Query: {{ .Query }}
Answer: `

var answerTmpl = template.Must(template.New("answer").Funcs(sprig.TxtFuncMap()).Parse(answerTemplate))

// Retriever finds the chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, q string, topK int) ([]ScoredChunk, error)
}

// Querier answers a natural-language question from indexed material.
type Querier interface {
	Query(ctx context.Context, q string) (*Response, error)
}

type Response struct {
	Answer  string        `json:"answer"`
	Sources []ScoredChunk `json:"sources,omitempty"`
}

func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return r.Answer
}

// QueryEngine retrieves chunks and has the engine synthesize an answer.
type QueryEngine struct {
	retriever Retriever
	eng       engine.Engine
	topK      int
}

var _ Querier = (*QueryEngine)(nil)

func NewQueryEngine(retriever Retriever, eng engine.Engine, topK int) *QueryEngine {
	if topK <= 0 {
		topK = 4
	}
	return &QueryEngine{retriever: retriever, eng: eng, topK: topK}
}

func (q *QueryEngine) Query(ctx context.Context, question string) (*Response, error) {
	sources, err := q.retriever.Retrieve(ctx, question, q.topK)
	if err != nil {
		return nil, errors.Wrap(err, "retrieving context")
	}
	if len(sources) == 0 {
		return &Response{Answer: EmptyResponse}, nil
	}

	var buf bytes.Buffer
	if err := answerTmpl.Execute(&buf, map[string]interface{}{
		"Sources": sources,
		"Query":   question,
	}); err != nil {
		return nil, errors.Wrap(err, "render answer prompt")
	}

	log.Debug().Int("sources", len(sources)).Str("query", question).Msg("index: synthesizing answer")
	answer, err := engine.Complete(ctx, q.eng, "", buf.String())
	if err != nil {
		return nil, errors.Wrap(err, "synthesizing answer")
	}
	return &Response{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}
