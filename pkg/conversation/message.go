package conversation

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Turn is one side of an exchange.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, Time: time.Now()}
}

func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text, Time: time.Now()}
}

func (t Turn) String() string {
	return fmt.Sprintf("[%s]: %s", t.Role, strings.TrimRight(t.Text, "\n"))
}

// Message is what gets sent to an engine. It is kept separate from Turn
// because prompts also carry system messages that never enter History.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func NewMessage(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

func (t Turn) Message() Message {
	return Message{Role: t.Role, Text: t.Text}
}
