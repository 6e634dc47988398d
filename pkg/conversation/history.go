package conversation

import (
	"sync"
)

const DefaultWindow = 10

// History keeps the last k exchanges of a conversation, i.e. at most 2k
// turns. The oldest turns are evicted first.
type History struct {
	mu    sync.RWMutex
	k     int
	turns []Turn
}

// NewHistory creates a window of k exchanges. A negative k is treated as 0,
// which keeps nothing.
func NewHistory(k int) *History {
	if k < 0 {
		k = 0
	}
	return &History{
		k:     k,
		turns: make([]Turn, 0, 2*k),
	}
}

func (h *History) Window() int {
	return h.k
}

func (h *History) Capacity() int {
	return 2 * h.k
}

// Append adds turns in order and evicts from the front once the bound is exceeded.
func (h *History) Append(turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)
	if over := len(h.turns) - 2*h.k; over > 0 {
		kept := make([]Turn, len(h.turns)-over, 2*h.k)
		copy(kept, h.turns[over:])
		h.turns = kept
	}
}

// AppendExchange records a completed user/assistant exchange.
func (h *History) AppendExchange(user string, assistant string) {
	h.Append(NewUserTurn(user), NewAssistantTurn(assistant))
}

// Snapshot returns a copy of the current window.
func (h *History) Snapshot() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ret := make([]Turn, len(h.turns))
	copy(ret, h.turns)
	return ret
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = h.turns[:0]
}

// Messages converts turns into engine messages.
func Messages(turns []Turn) []Message {
	ret := make([]Message, 0, len(turns))
	for _, t := range turns {
		ret = append(ret, t.Message())
	}
	return ret
}
