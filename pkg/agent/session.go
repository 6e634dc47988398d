package agent

import (
	"context"
	"sync"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/inference/toolloop"
)

// Session is one conversation. Ask calls are serialized so turns are
// strictly ordered; separate sessions run independently.
type Session struct {
	mu      sync.Mutex
	id      string
	loop    *toolloop.Loop
	history *conversation.History
}

func (s *Session) ID() string {
	return s.id
}

// Ask runs one turn. History only grows when the turn succeeds.
func (s *Session) Ask(ctx context.Context, utterance string) (*toolloop.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop.Run(ctx, s.history, s.id, utterance)
}

func (s *Session) History() []conversation.Turn {
	return s.history.Snapshot()
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
}
