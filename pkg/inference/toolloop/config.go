package toolloop

import (
	"time"

	"github.com/go-go-golems/bionet/pkg/settings"
)

// LoopConfig bounds a single turn.
type LoopConfig struct {
	// MaxSteps caps the number of planning rounds per turn.
	MaxSteps int
	// MaxParseRetries is the number of consecutive malformed engine replies
	// tolerated before the turn fails with ErrPlanning.
	MaxParseRetries int
	// TurnTimeout of 0 disables the per-turn deadline.
	TurnTimeout time.Duration
	Mode        settings.PlannerMode
	// Persona is prepended to the system prompt.
	Persona string
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxSteps:        8,
		MaxParseRetries: 3,
		Mode:            settings.PlannerModeReact,
		Persona:         DefaultPersona,
	}
}

func LoopConfigFromSettings(s *settings.AgentSettings) LoopConfig {
	cfg := DefaultLoopConfig()
	if s == nil {
		return cfg
	}
	if s.MaxSteps > 0 {
		cfg.MaxSteps = s.MaxSteps
	}
	if s.MaxParseRetries > 0 {
		cfg.MaxParseRetries = s.MaxParseRetries
	}
	cfg.TurnTimeout = s.TurnTimeout
	if s.PlannerMode != "" {
		cfg.Mode = s.PlannerMode
	}
	return cfg
}

func (c LoopConfig) WithMaxSteps(n int) LoopConfig {
	c.MaxSteps = n
	return c
}

func (c LoopConfig) WithMaxParseRetries(n int) LoopConfig {
	c.MaxParseRetries = n
	return c
}

func (c LoopConfig) WithTurnTimeout(d time.Duration) LoopConfig {
	c.TurnTimeout = d
	return c
}

func (c LoopConfig) WithMode(m settings.PlannerMode) LoopConfig {
	c.Mode = m
	return c
}

func (c LoopConfig) WithPersona(p string) LoopConfig {
	c.Persona = p
	return c
}
