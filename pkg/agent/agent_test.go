package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/embeddings"
	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(name, input string) string {
	return fmt.Sprintf("```json\n{\"action\": %q, \"action_input\": %q}\n```", name, input)
}

// replayEngine answers planning prompts from a queue and answer-synthesis
// prompts with a fixed text.
type replayEngine struct {
	mu        sync.Mutex
	replies   []string
	synthesis string
}

func (r *replayEngine) RunInference(ctx context.Context, messages []conversation.Message) (string, error) {
	last := messages[len(messages)-1].Text
	if strings.HasPrefix(last, "Context information is below.") {
		return r.synthesis, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return "", errors.New("no more replies")
	}
	reply := r.replies[0]
	r.replies = r.replies[1:]
	return reply, nil
}

type staticQuerier string

func (s staticQuerier) Query(ctx context.Context, q string) (*index.Response, error) {
	return &index.Response{Answer: string(s)}, nil
}

type wordProvider struct{}

func (wordProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%16]++
	}
	return v, nil
}

func (p wordProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return embeddings.DefaultGenerateBatchEmbeddings(ctx, p, texts)
}

func (wordProvider) GetModel() embeddings.EmbeddingModel {
	return embeddings.EmbeddingModel{Name: "words", Dimensions: 16}
}

func newRuntime(t *testing.T, eng engine.Engine, q index.Querier) *Runtime {
	rt, err := NewRuntime(context.Background(), Options{
		Settings: settings.NewSettings(),
		Engine:   eng,
		Querier:  q,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestRuntimeRegistersToolsInOrder(t *testing.T) {
	rt := newRuntime(t, &replayEngine{}, staticQuerier("x"))

	assert.Equal(t, []string{"BIONET", "custom_search", "Calculator", "NBlast"}, rt.Registry().Names())
	bionet, err := rt.Registry().Resolve("BIONET")
	require.NoError(t, err)
	assert.True(t, bionet.ReturnDirect)
	for _, tool := range rt.Registry().List() {
		assert.False(t, tool.SupportsAsync, tool.Name)
	}
}

func TestRuntimeExtraToolsMustBeUnique(t *testing.T) {
	_, err := NewRuntime(context.Background(), Options{
		Engine:  &replayEngine{},
		Querier: staticQuerier("x"),
		ExtraTools: []tools.Tool{{
			Name: "Calculator",
			Func: func(ctx context.Context, input string) (string, error) { return "", nil },
		}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateToolName))
}

func TestRuntimeRequiresIndex(t *testing.T) {
	_, err := NewRuntime(context.Background(), Options{
		Engine:     &replayEngine{},
		StorageDir: filepath.Join(t.TempDir(), "storage"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrIndexNotFound))
}

func TestSessionIndexToolReturnsDirect(t *testing.T) {
	eng := &replayEngine{replies: []string{action("BIONET", "What's the best way to synthesize DNA?")}}
	rt := newRuntime(t, eng, staticQuerier("Phosphoramidite synthesis."))
	s := rt.NewSession()

	resp, err := s.Ask(context.Background(), "What's the best way to synthesize DNA?")
	require.NoError(t, err)
	assert.Equal(t, "Phosphoramidite synthesis.", resp.Text)
	require.Len(t, resp.Trace, 1)
	assert.True(t, resp.Trace[0].ReturnedDirect)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, conversation.RoleUser, history[0].Role)
	assert.Equal(t, "Phosphoramidite synthesis.", history[1].Text)
}

func TestSessionCalculatorAndMissingSearch(t *testing.T) {
	eng := &replayEngine{replies: []string{
		action("custom_search", "number of genes in the human genome"),
		action("Calculator", "2^10"),
		action("Final Answer", "2^10 is 1024."),
	}}
	rt := newRuntime(t, eng, staticQuerier("x"))
	s := rt.NewSession()

	resp, err := s.Ask(context.Background(), "What is 2^10?")
	require.NoError(t, err)
	assert.Equal(t, "2^10 is 1024.", resp.Text)
	require.Len(t, resp.Trace, 2)
	assert.Contains(t, resp.Trace[0].Error, "search unavailable")
	assert.Equal(t, "Answer: 1024", resp.Trace[1].Output)
	assert.Len(t, s.History(), 2)
}

func TestSessionsAreIndependent(t *testing.T) {
	eng := &replayEngine{replies: []string{
		action("Final Answer", "one"),
		action("Final Answer", "two"),
	}}
	rt := newRuntime(t, eng, staticQuerier("x"))

	a := rt.NewSession()
	b := rt.NewSession()
	assert.NotEqual(t, a.ID(), b.ID())

	_, err := a.Ask(context.Background(), "first")
	require.NoError(t, err)
	_, err = b.Ask(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, "first", a.History()[0].Text)
	assert.Equal(t, "second", b.History()[0].Text)

	a.Reset()
	assert.Empty(t, a.History())
	assert.Len(t, b.History(), 2)
}

func TestFailedTurnLeavesHistoryUntouched(t *testing.T) {
	rt := newRuntime(t, &replayEngine{}, staticQuerier("x"))
	s := rt.NewSession()

	_, err := s.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, s.History())
}

func TestRuntimeLoadsBuiltIndex(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	storageDir := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "dna.md"),
		[]byte("# DNA synthesis\n\nOligonucleotides are made with phosphoramidite chemistry."), 0o644))

	s := settings.NewSettings()
	b, err := index.NewBuilder(wordProvider{}, s.Index)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), dataDir, storageDir)
	require.NoError(t, err)

	eng := &replayEngine{
		replies:   []string{action("BIONET", "How is DNA synthesized?")},
		synthesis: "With phosphoramidite chemistry.",
	}
	rt, err := NewRuntime(context.Background(), Options{
		Settings:   s,
		StorageDir: storageDir,
		Engine:     eng,
		Embeddings: wordProvider{},
	})
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()
	require.NotNil(t, rt.Index())
	assert.Equal(t, 1, rt.Index().Len())

	resp, err := rt.NewSession().Ask(context.Background(), "How is DNA synthesized?")
	require.NoError(t, err)
	assert.Equal(t, "With phosphoramidite chemistry.", resp.Text)
}

func TestLoadScript(t *testing.T) {
	checks, err := LoadScript(strings.NewReader(`
- Who are you?
- title: Blast a sequence
  prompt: Find DNA sequences similar to gttccatggccaacacttgtcacta in the NCBI DNA database
`))
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, Check{Prompt: "Who are you?"}, checks[0])
	assert.Equal(t, "Blast a sequence", checks[1].Title)

	_, err = LoadScript(strings.NewReader("- title: no prompt\n"))
	require.Error(t, err)

	checks, err = LoadScript(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, checks)
}
