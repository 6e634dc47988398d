package toolloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/bionet/pkg/conversation"
	"github.com/go-go-golems/bionet/pkg/events"
	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/go-go-golems/bionet/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPlanning is returned when the engine keeps producing unparsable replies.
	ErrPlanning = errors.New("planning failed")
	// ErrPlanningExhausted is returned when MaxSteps planning rounds pass
	// without a final answer.
	ErrPlanningExhausted = errors.New("planning exhausted")
	ErrTurnTimeout       = errors.New("turn timed out")
)

// Request is one user utterance plus the History it is answered against.
type Request struct {
	SessionID string
	Utterance string
	History   []conversation.Turn
}

// TraceStep records one tool invocation of a turn.
type TraceStep struct {
	Step           int    `json:"step"`
	Tool           string `json:"tool"`
	Input          string `json:"input"`
	Output         string `json:"output,omitempty"`
	Error          string `json:"error,omitempty"`
	ReturnedDirect bool   `json:"returned_direct,omitempty"`
}

type Response struct {
	Text  string      `json:"text"`
	Trace []TraceStep `json:"trace,omitempty"`
	// Steps is the number of planning rounds used.
	Steps int `json:"steps"`
}

type Loop struct {
	eng      engine.Engine
	registry *tools.Registry
	cfg      LoopConfig
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		cfg: DefaultLoopConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func WithEngine(eng engine.Engine) Option {
	return func(l *Loop) { l.eng = eng }
}

func WithRegistry(reg *tools.Registry) Option {
	return func(l *Loop) { l.registry = reg }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.cfg = cfg }
}

func (l *Loop) Config() LoopConfig {
	return l.cfg
}

// turnState is the per-turn scratchpad: the messages exchanged with the
// engine after the user utterance.
type turnState struct {
	meta       events.EventMetadata
	prefix     []conversation.Message
	scratchpad []conversation.Message
	trace      []TraceStep
}

func (s *turnState) messages() []conversation.Message {
	ret := make([]conversation.Message, 0, len(s.prefix)+len(s.scratchpad))
	ret = append(ret, s.prefix...)
	ret = append(ret, s.scratchpad...)
	return ret
}

func (s *turnState) exchange(assistant string, user string) {
	s.scratchpad = append(s.scratchpad,
		conversation.NewMessage(conversation.RoleAssistant, assistant),
		conversation.NewMessage(conversation.RoleUser, user),
	)
}

// Run answers one utterance and, on success only, appends the user turn and
// the final answer to history.
func (l *Loop) Run(ctx context.Context, history *conversation.History, sessionID string, utterance string) (*Response, error) {
	req := Request{
		SessionID: sessionID,
		Utterance: utterance,
	}
	if history != nil {
		req.History = history.Snapshot()
	}

	resp, err := l.RunTurn(ctx, req)
	if err != nil {
		return nil, err
	}
	if history != nil {
		history.AppendExchange(utterance, resp.Text)
	}
	return resp, nil
}

// RunTurn drives Idle -> AwaitingPlan -> {ExecutingTool | Responding} for a
// single utterance. It never touches a History.
func (l *Loop) RunTurn(ctx context.Context, req Request) (*Response, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.eng == nil {
		return nil, errors.New("tool loop engine is nil")
	}
	if l.registry == nil {
		return nil, errors.New("tool loop registry is nil")
	}

	if l.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.TurnTimeout)
		defer cancel()
	}

	state, err := l.newTurnState(req)
	if err != nil {
		return nil, err
	}

	start := state.meta.New(events.EventTypeStart, 0)
	start.Text = req.Utterance
	events.PublishEventToContext(ctx, start)

	resp, err := l.runSteps(ctx, state)
	if err == nil && ctx.Err() != nil {
		err = errors.Wrap(ctx.Err(), "turn cancelled")
		resp = nil
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && l.cfg.TurnTimeout > 0 {
			err = errors.Wrapf(ErrTurnTimeout, "after %s: %v", l.cfg.TurnTimeout, err)
		}
		failed := state.meta.New(events.EventTypeError, len(state.trace))
		failed.Error = err.Error()
		events.PublishEventToContext(ctx, failed)
		log.Warn().Err(err).Str("turn_id", state.meta.TurnID).Msg("toolloop: turn failed")
		return nil, err
	}

	final := state.meta.New(events.EventTypeFinal, resp.Steps)
	final.Text = resp.Text
	events.PublishEventToContext(ctx, final)
	return resp, nil
}

func (l *Loop) newTurnState(req Request) (*turnState, error) {
	system, err := RenderSystemPrompt(l.cfg.Persona, l.registry.Descriptions())
	if err != nil {
		return nil, err
	}

	prefix := make([]conversation.Message, 0, len(req.History)+2)
	prefix = append(prefix, conversation.NewMessage(conversation.RoleSystem, system))
	prefix = append(prefix, conversation.Messages(req.History)...)
	prefix = append(prefix, conversation.NewMessage(conversation.RoleUser, req.Utterance))

	return &turnState{
		meta: events.EventMetadata{
			SessionID: req.SessionID,
			TurnID:    uuid.NewString(),
		},
		prefix: prefix,
	}, nil
}

func (l *Loop) runSteps(ctx context.Context, state *turnState) (*Response, error) {
	maxSteps := l.cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultLoopConfig().MaxSteps
	}

	for step := 1; step <= maxSteps; step++ {
		log.Debug().Int("step", step).Str("turn_id", state.meta.TurnID).Msg("toolloop: awaiting plan")

		raw, plan, err := l.plan(ctx, state, step)
		if err != nil {
			return nil, err
		}

		switch p := plan.(type) {
		case DirectAnswer:
			return &Response{Text: p.Text, Trace: state.trace, Steps: step}, nil

		case ToolCall:
			ts, observation := l.execute(ctx, state, step, p)
			state.trace = append(state.trace, ts)
			if ts.ReturnedDirect {
				return &Response{Text: ts.Output, Trace: state.trace, Steps: step}, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "turn cancelled")
			}
			prompt, err := RenderObservation(observation)
			if err != nil {
				return nil, err
			}
			state.exchange(raw, prompt)

		default:
			return nil, errors.Errorf("unexpected plan type %T", plan)
		}
	}

	log.Warn().Int("max_steps", maxSteps).Msg("toolloop: maximum steps reached")
	return nil, errors.Wrapf(ErrPlanningExhausted, "no final answer after %d steps", maxSteps)
}

// plan asks the engine for the next action, re-prompting once per malformed
// reply until MaxParseRetries consecutive failures.
func (l *Loop) plan(ctx context.Context, state *turnState, step int) (string, Plan, error) {
	maxFailures := l.cfg.MaxParseRetries
	if maxFailures <= 0 {
		maxFailures = DefaultLoopConfig().MaxParseRetries
	}

	// corrections are only kept until a reply parses
	base := len(state.scratchpad)
	var lastErr error
	for failures := 0; failures < maxFailures; {
		raw, err := l.infer(ctx, state.messages())
		if err != nil {
			state.scratchpad = state.scratchpad[:base]
			return "", nil, errors.Wrap(err, "engine inference")
		}

		ev := state.meta.New(events.EventTypePlan, step)
		ev.Text = raw
		events.PublishEventToContext(ctx, ev)

		plan, err := ParsePlan(raw)
		if err == nil {
			state.scratchpad = state.scratchpad[:base]
			return raw, plan, nil
		}
		if l.cfg.Mode == settings.PlannerModeFunctions {
			// plain content without a native tool call is the answer
			state.scratchpad = state.scratchpad[:base]
			return raw, DirectAnswer{Text: strings.TrimSpace(raw)}, nil
		}

		failures++
		lastErr = err
		log.Debug().Err(err).Int("failures", failures).Msg("toolloop: malformed engine reply")
		pe := state.meta.New(events.EventTypeParseError, step)
		pe.Text = raw
		pe.Error = err.Error()
		events.PublishEventToContext(ctx, pe)

		if failures >= maxFailures {
			break
		}
		correction, err := RenderCorrection(err)
		if err != nil {
			return "", nil, err
		}
		state.exchange(raw, correction)
	}

	state.scratchpad = state.scratchpad[:base]
	return "", nil, errors.Wrapf(ErrPlanning, "%d malformed replies, last: %v", maxFailures, lastErr)
}

func (l *Loop) infer(ctx context.Context, messages []conversation.Message) (string, error) {
	if l.cfg.Mode == settings.PlannerModeFunctions {
		if et, ok := l.eng.(engine.EngineWithTools); ok {
			return et.RunInferenceWithTools(ctx, messages, l.registry.Definitions())
		}
	}
	return l.eng.RunInference(ctx, messages)
}

// execute resolves and invokes the chosen tool. Failures are returned as the
// observation text so the engine can recover.
func (l *Loop) execute(ctx context.Context, state *turnState, step int, call ToolCall) (TraceStep, string) {
	ts := TraceStep{Step: step, Tool: call.Name, Input: call.Input}

	ev := state.meta.New(events.EventTypeToolCall, step)
	ev.Tool = call.Name
	ev.Input = call.Input
	events.PublishEventToContext(ctx, ev)

	result := state.meta.New(events.EventTypeToolResult, step)
	result.Tool = call.Name

	tool, err := l.registry.Resolve(call.Name)
	if err != nil {
		observation := fmt.Sprintf("%s is not a valid tool, try one of [%s].", call.Name, strings.Join(l.registry.Names(), ", "))
		ts.Error = observation
		result.Error = observation
		events.PublishEventToContext(ctx, result)
		return ts, observation
	}

	start := time.Now()
	out, err := tools.Call(ctx, tool, call.Input)
	if err != nil {
		ts.Error = err.Error()
		result.Error = err.Error()
		events.PublishEventToContext(ctx, result)
		return ts, err.Error()
	}
	log.Debug().Str("tool", tool.Name).Dur("duration", time.Since(start)).Msg("toolloop: observation")

	ts.Output = out
	ts.ReturnedDirect = tool.ReturnDirect
	result.Text = out
	events.PublishEventToContext(ctx, result)
	return ts, out
}
