// Package agent assembles the chat agent: the reasoning engine, the loaded
// index, the tool registry and the dispatch loop. Everything is built once by
// NewRuntime and handed to sessions explicitly.
package agent

import (
	"context"
	"net/http"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/engine/factory"
	"github.com/go-go-golems/bionet/pkg/inference/toolloop"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/go-go-golems/bionet/pkg/tools/blast"
	"github.com/go-go-golems/bionet/pkg/tools/calculator"
	"github.com/go-go-golems/bionet/pkg/tools/indextool"
	"github.com/go-go-golems/bionet/pkg/tools/search"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Options configures NewRuntime. Only Settings and StorageDir are required;
// the other fields replace the collaborators built from settings.
type Options struct {
	Settings   *settings.Settings
	StorageDir string

	Engine     engine.Engine
	Embeddings embeddings.Provider
	// Querier skips loading StorageDir and answers BIONET queries directly.
	Querier    index.Querier
	HTTPClient *http.Client
	// ExtraTools are registered after the built-in ones.
	ExtraTools []tools.Tool
}

type Runtime struct {
	settings *settings.Settings
	engine   engine.Engine
	index    *index.Index
	querier  index.Querier
	registry *tools.Registry
	loop     *toolloop.Loop
}

// NewRuntime fails with index.ErrIndexNotFound when StorageDir holds no index.
func NewRuntime(ctx context.Context, opts Options) (*Runtime, error) {
	s := opts.Settings
	if s == nil {
		s = settings.NewSettings()
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	rt := &Runtime{settings: s, engine: opts.Engine, querier: opts.Querier}

	if rt.querier == nil && !index.Exists(opts.StorageDir) {
		return nil, errors.Wrapf(index.ErrIndexNotFound, "no index in %s", opts.StorageDir)
	}

	if rt.engine == nil {
		eng, err := factory.NewEngineFromSettings(s)
		if err != nil {
			return nil, err
		}
		rt.engine = eng
	}

	if rt.querier == nil {
		provider := opts.Embeddings
		if provider == nil {
			p, err := embeddings.NewProviderFromSettings(s)
			if err != nil {
				return nil, err
			}
			provider = p
		}
		loadOpts, err := index.LoadOptionsFromSettings(s)
		if err != nil {
			return nil, err
		}
		idx, err := index.Load(ctx, opts.StorageDir, provider, loadOpts...)
		if err != nil {
			return nil, err
		}
		rt.index = idx
		rt.querier = index.NewQueryEngine(idx, rt.engine, s.Index.TopK)
	}

	registry, err := tools.NewRegistryFromTools(rt.builtinTools(httpClient)...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	for _, t := range opts.ExtraTools {
		if err := registry.Register(t); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	rt.registry = registry

	rt.loop = toolloop.New(
		toolloop.WithEngine(rt.engine),
		toolloop.WithRegistry(registry),
		toolloop.WithLoopConfig(toolloop.LoopConfigFromSettings(s.Agent)),
	)

	log.Debug().Strs("tools", registry.Names()).Msg("agent: runtime ready")
	return rt, nil
}

func (rt *Runtime) builtinTools(httpClient *http.Client) []tools.Tool {
	s := rt.settings

	var searchProvider search.Provider
	p, err := search.NewProviderFromSettings(s.Tools, httpClient)
	if err != nil {
		log.Warn().Err(err).Msg("agent: web search is not configured")
		searchProvider = unavailableSearch{err: err}
	} else {
		searchProvider = p
	}

	chain := calculator.NewChain(rt.engine, calculator.NewEvaluator(s.Tools.CalculatorTimeout))
	blastClient := blast.NewClientFromSettings(s.Tools, blast.WithHTTPClient(httpClient))

	return []tools.Tool{
		indextool.New(rt.querier),
		search.NewTool(searchProvider),
		calculator.NewTool(chain),
		blast.NewTool(blastClient),
	}
}

// unavailableSearch keeps custom_search registered without credentials; the
// engine sees the configuration error as an observation.
type unavailableSearch struct {
	err error
}

func (u unavailableSearch) Search(ctx context.Context, query string) (string, error) {
	return "", errors.Wrap(u.err, "search unavailable")
}

func (rt *Runtime) Settings() *settings.Settings {
	return rt.settings
}

func (rt *Runtime) Registry() *tools.Registry {
	return rt.registry
}

func (rt *Runtime) Loop() *toolloop.Loop {
	return rt.loop
}

func (rt *Runtime) Querier() index.Querier {
	return rt.querier
}

// Index is nil when the runtime was built around an injected Querier.
func (rt *Runtime) Index() *index.Index {
	return rt.index
}

// NewSession starts a conversation with an empty memory window.
func (rt *Runtime) NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		loop:    rt.loop,
		history: conversation.NewHistory(rt.settings.Agent.MemoryWindow),
	}
}

func (rt *Runtime) Close() error {
	if rt.index != nil {
		return rt.index.Close()
	}
	return nil
}
