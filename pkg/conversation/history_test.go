package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryNeverExceedsTwiceTheWindow(t *testing.T) {
	for _, k := range []int{0, 1, 2, 5, 10} {
		h := NewHistory(k)
		for i := 0; i < 3*k+5; i++ {
			h.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
			assert.LessOrEqual(t, h.Len(), 2*k, "k=%d after %d exchanges", k, i+1)
		}
	}
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	k := 4
	h := NewHistory(k)
	for i := 0; i < k+3; i++ {
		h.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := h.Snapshot()
	require.Len(t, turns, 2*k)

	present := map[string]bool{}
	for _, turn := range turns {
		present[turn.Text] = true
	}
	for i := 0; i < 3; i++ {
		assert.False(t, present[fmt.Sprintf("q%d", i)])
		assert.False(t, present[fmt.Sprintf("a%d", i)])
	}
	for i := 3; i < k+3; i++ {
		assert.True(t, present[fmt.Sprintf("q%d", i)])
		assert.True(t, present[fmt.Sprintf("a%d", i)])
	}

	assert.Equal(t, "q3", turns[0].Text)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "a6", turns[len(turns)-1].Text)
	assert.Equal(t, RoleAssistant, turns[len(turns)-1].Role)
}

func TestHistoryZeroWindowKeepsNothing(t *testing.T) {
	h := NewHistory(0)
	h.AppendExchange("who are you?", "BIOGEN")
	assert.Equal(t, 0, h.Len())

	h = NewHistory(-3)
	assert.Equal(t, 0, h.Window())
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.AppendExchange("q", "a")

	snap := h.Snapshot()
	snap[0].Text = "changed"

	assert.Equal(t, "q", h.Snapshot()[0].Text)
}

func TestMessages(t *testing.T) {
	h := NewHistory(DefaultWindow)
	h.AppendExchange("q", "a")

	msgs := Messages(h.Snapshot())
	assert.Equal(t, []Message{
		{Role: RoleUser, Text: "q"},
		{Role: RoleAssistant, Text: "a"},
	}, msgs)
}
