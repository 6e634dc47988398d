// Package indextool exposes a queried document index as an agent tool.
package indextool

import (
	"context"

	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ToolName        = "BIONET"
	ToolDescription = "Useful for when you want to answer questions about Bioengineering, synthetic biology, protein design, and DNA synthesis. The input to this tool should be a complete English sentence."
)

type options struct {
	name         string
	description  string
	returnDirect bool
}

type Option func(*options)

// WithName overrides the tool name, for runtimes that register more than one index.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithReturnDirect controls whether the answer ends the turn. Defaults to true.
func WithReturnDirect(returnDirect bool) Option {
	return func(o *options) { o.returnDirect = returnDirect }
}

// New wraps querier as a tool. The full tool input is the query and the
// answer text comes back verbatim.
func New(querier index.Querier, opts ...Option) tools.Tool {
	o := &options{
		name:         ToolName,
		description:  ToolDescription,
		returnDirect: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	return tools.Tool{
		Name:         o.name,
		Description:  o.description,
		ReturnDirect: o.returnDirect,
		Func: func(ctx context.Context, query string) (string, error) {
			log.Info().Str("tool", o.name).Str("query", query).Msg("tool query")
			if querier == nil {
				return "", errors.Errorf("%s has no index", o.name)
			}
			resp, err := querier.Query(ctx, query)
			if err != nil {
				return "", err
			}
			return resp.String(), nil
		},
	}
}
