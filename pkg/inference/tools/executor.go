package tools

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Call invokes the tool synchronously. Upstream failures are wrapped in a
// *ToolExecutionError so the caller can feed them back as observations.
func Call(ctx context.Context, t Tool, input string) (string, error) {
	if t.Func == nil {
		return "", errors.Errorf("tool %s has no function", t.Name)
	}

	start := time.Now()
	log.Debug().Str("tool", t.Name).Str("input", input).Msg("tools: invoking tool")

	out, err := t.Func(ctx, input)
	if err != nil {
		log.Warn().Err(err).Str("tool", t.Name).Dur("duration", time.Since(start)).Msg("tools: tool failed")
		return "", &ToolExecutionError{Tool: t.Name, Err: err}
	}

	log.Debug().
		Str("tool", t.Name).
		Int("output_len", len(out)).
		Dur("duration", time.Since(start)).
		Msg("tools: tool finished")
	return out, nil
}

// CallAsync runs the tool on a goroutine and delivers a single result on the
// returned channel. Tools that do not declare SupportsAsync are rejected
// before anything is dispatched.
func CallAsync(ctx context.Context, t Tool, input string) (<-chan Result, error) {
	if !t.SupportsAsync {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "%s does not support async", t.Name)
	}

	c := make(chan Result, 1)
	go func() {
		defer close(c)
		out, err := Call(ctx, t, input)
		c <- Result{Output: out, Err: err}
	}()
	return c, nil
}

// Result is the outcome of an async tool call.
type Result struct {
	Output string
	Err    error
}

func (r Result) Value() (string, error) {
	return r.Output, r.Err
}
