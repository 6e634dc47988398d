package toolloop

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// FinalAnswerAction is the action name the engine uses to answer directly.
const FinalAnswerAction = "Final Answer"

var ErrPlanParse = errors.New("could not parse engine output")

// Plan is what the engine decided to do next. It is either a DirectAnswer
// or a ToolCall.
type Plan interface {
	isPlan()
}

type DirectAnswer struct {
	Text string
}

type ToolCall struct {
	Name  string
	Input string
}

func (DirectAnswer) isPlan() {}
func (ToolCall) isPlan()     {}

type actionBlob struct {
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

var (
	fencedBlockRe       = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	greedyFencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*)```")
)

// extractJSON returns the first candidate that is valid JSON: the first
// fenced block, the widest fenced block, then the outermost {...} span.
// The widest fence covers action inputs that contain fences themselves.
// When no candidate is valid the first one is returned so the caller can
// report the decode error.
func extractJSON(raw string) (string, bool) {
	var candidates []string
	for _, re := range []*regexp.Regexp{fencedBlockRe, greedyFencedBlockRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			body := strings.TrimSpace(m[1])
			if strings.HasPrefix(body, "{") {
				candidates = append(candidates, body)
			}
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return candidates[0], true
}

// ParsePlan turns an engine reply into a Plan. The reply must contain a JSON
// blob {"action": ..., "action_input": ...}, either fenced or bare.
// A non-string action_input is passed to the tool as its JSON text.
func ParsePlan(raw string) (Plan, error) {
	blob, ok := extractJSON(raw)
	if !ok {
		return nil, errors.Wrap(ErrPlanParse, "no JSON action blob found")
	}

	var a actionBlob
	if err := json.Unmarshal([]byte(blob), &a); err != nil {
		return nil, errors.Wrapf(ErrPlanParse, "invalid action blob: %v", err)
	}
	action := strings.TrimSpace(a.Action)
	if action == "" {
		return nil, errors.Wrap(ErrPlanParse, "missing action")
	}

	input, err := decodeActionInput(a.ActionInput)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(action, FinalAnswerAction) {
		return DirectAnswer{Text: input}, nil
	}
	return ToolCall{Name: action, Input: input}, nil
}

func decodeActionInput(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.Wrapf(ErrPlanParse, "invalid action_input: %v", err)
		}
		return s, nil
	}
	return trimmed, nil
}
