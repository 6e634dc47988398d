package calculator

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-go-golems/bionet/pkg/inference/engine"
	"github.com/go-go-golems/bionet/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ToolName        = "Calculator"
	ToolDescription = "useful for when you need to answer questions about math"
)

const translatePrompt = "Translate a math problem into an expression that can be evaluated as arithmetic. " +
	"Use only numbers, the operators + - * / % ^, parentheses, and the functions " +
	"abs, sqrt, cbrt, exp, log, log10, log2, pow, sin, cos, tan, floor, ceil, round, min, max and the constants pi and e.\n" +
	"Use the following format:\n\n" +
	"Question: ${Question with math problem.}\n" +
	"```text\n${single line mathematical expression that solves the problem}\n```\n" +
	"...evaluate(text)...\n" +
	"```output\n${Output of evaluating the expression}\n```\n" +
	"Answer: ${Answer}\n\n" +
	"Begin.\n\n" +
	"Question: What is 37593 * 67?\n" +
	"```text\n37593 * 67\n```\n" +
	"...evaluate(\"37593 * 67\")...\n" +
	"```output\n2518731\n```\n" +
	"Answer: 2518731\n\n" +
	"Question: 37593^(1/5)\n" +
	"```text\n37593**(1/5)\n```\n" +
	"...evaluate(\"37593**(1/5)\")...\n" +
	"```output\n8.222831614237718\n```\n" +
	"Answer: 8.222831614237718\n\n" +
	"Question: "

var textBlockRe = regexp.MustCompile("(?s)^(.*?)```text(.*?)```")

// Chain answers math questions: the engine writes an expression, the
// evaluator computes it.
type Chain struct {
	eng       engine.Engine
	evaluator *Evaluator
}

func NewChain(eng engine.Engine, evaluator *Evaluator) *Chain {
	if evaluator == nil {
		evaluator = NewEvaluator(0)
	}
	return &Chain{eng: eng, evaluator: evaluator}
}

// Run returns "Answer: <value>". A question that already is a valid
// expression is evaluated without asking the engine.
func (c *Chain) Run(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if _, err := Normalize(question); err == nil {
		if out, err := c.evaluator.Evaluate(ctx, question); err == nil {
			return "Answer: " + out, nil
		}
	}
	if c.eng == nil {
		return "", errors.Errorf("cannot translate %q without an engine", question)
	}

	reply, err := engine.Complete(ctx, c.eng, "", translatePrompt+question+"\n")
	if err != nil {
		return "", errors.Wrap(err, "translating math question")
	}
	return c.processReply(ctx, reply)
}

func (c *Chain) processReply(ctx context.Context, reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if m := textBlockRe.FindStringSubmatch(reply); m != nil {
		expr := strings.TrimSpace(m[2])
		log.Debug().Str("expression", expr).Msg("calculator: evaluating")
		out, err := c.evaluator.Evaluate(ctx, expr)
		if err != nil {
			return "", err
		}
		return "Answer: " + out, nil
	}
	if strings.HasPrefix(reply, "Answer:") {
		return reply, nil
	}
	if i := strings.Index(reply, "Answer:"); i >= 0 {
		return "Answer: " + strings.TrimSpace(reply[i+len("Answer:"):]), nil
	}
	return "", errors.Errorf("unknown format from engine: %s", reply)
}

func NewTool(chain *Chain) tools.Tool {
	return tools.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		Func:        chain.Run,
	}
}
