package indextool

import (
	"context"
	"testing"

	"github.com/go-go-golems/bionet/pkg/index"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	queries []string
	answer  string
	err     error
}

func (f *fakeQuerier) Query(ctx context.Context, q string) (*index.Response, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &index.Response{Answer: f.answer}, nil
}

func TestToolForwardsFullQuery(t *testing.T) {
	q := &fakeQuerier{answer: "  Gibson assembly joins overlapping fragments.\n"}
	tool := New(q)

	assert.Equal(t, ToolName, tool.Name)
	assert.Equal(t, ToolDescription, tool.Description)
	assert.True(t, tool.ReturnDirect)
	assert.False(t, tool.SupportsAsync)

	question := "What is Gibson assembly, and how does it compare to Golden Gate cloning?"
	out, err := tool.Func(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, "  Gibson assembly joins overlapping fragments.\n", out)
	assert.Equal(t, []string{question}, q.queries)
}

func TestToolPropagatesQueryErrors(t *testing.T) {
	boom := errors.New("embedding service down")
	tool := New(&fakeQuerier{err: boom})

	_, err := tool.Func(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestOptions(t *testing.T) {
	tool := New(&fakeQuerier{answer: index.EmptyResponse}, WithName("LAB_NOTES"), WithDescription("lab notes"), WithReturnDirect(false))
	assert.Equal(t, "LAB_NOTES", tool.Name)
	assert.Equal(t, "lab notes", tool.Description)
	assert.False(t, tool.ReturnDirect)

	out, err := tool.Func(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, index.EmptyResponse, out)
}

func TestNilQuerier(t *testing.T) {
	_, err := New(nil).Func(context.Background(), "q")
	require.Error(t, err)
}
