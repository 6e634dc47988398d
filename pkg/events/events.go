package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeStart      EventType = "start"
	EventTypePlan       EventType = "plan"
	EventTypeParseError EventType = "parse-error"
	EventTypeToolCall   EventType = "tool-call"
	EventTypeToolResult EventType = "tool-result"
	EventTypeFinal      EventType = "final"
	EventTypeError      EventType = "error"
)

// Event describes one transition of the dispatch loop.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	TurnID    string    `json:"turn_id,omitempty"`
	Step      int       `json:"step"`
	Tool      string    `json:"tool,omitempty"`
	Input     string    `json:"input,omitempty"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// EventMetadata is the part shared by all events of one turn.
type EventMetadata struct {
	SessionID string
	TurnID    string
}

func (m EventMetadata) New(t EventType, step int) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		SessionID: m.SessionID,
		TurnID:    m.TurnID,
		Step:      step,
		Time:      time.Now(),
	}
}

func NewEventFromJson(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
