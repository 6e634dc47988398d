package calculator

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

var ErrInvalidExpression = errors.New("invalid expression")

// functions and constants available to expressions, all bound from Math
var mathNames = map[string]string{
	"abs": "Math.abs", "acos": "Math.acos", "asin": "Math.asin", "atan": "Math.atan",
	"atan2": "Math.atan2", "cbrt": "Math.cbrt", "ceil": "Math.ceil", "cos": "Math.cos",
	"cosh": "Math.cosh", "exp": "Math.exp", "floor": "Math.floor", "hypot": "Math.hypot",
	"log": "Math.log", "log10": "Math.log10", "log2": "Math.log2", "max": "Math.max",
	"min": "Math.min", "pow": "Math.pow", "round": "Math.round", "sin": "Math.sin",
	"sinh": "Math.sinh", "sqrt": "Math.sqrt", "tan": "Math.tan", "tanh": "Math.tanh",
	"trunc": "Math.trunc", "pi": "Math.PI", "e": "Math.E",
}

var (
	allowedCharsRe = regexp.MustCompile(`^[0-9A-Za-z_\s.+\-*/%(),]*$`)
	identifierRe   = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*`)
)

// Evaluator runs arithmetic expressions in a fresh goja runtime per call.
// Only numbers, operators, parentheses and the Math names above are accepted.
type Evaluator struct {
	timeout time.Duration
}

func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Evaluator{timeout: timeout}
}

// Normalize maps the python-style power operator to JS and validates the
// expression. A unary sign is rewritten so that -2^2 means -(2^2), as in
// python; JS rejects a unary operator directly before **.
func Normalize(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.ReplaceAll(expr, "**", "^")
	expr = strings.ReplaceAll(expr, "^", "**")
	if expr == "" {
		return "", errors.Wrap(ErrInvalidExpression, "empty expression")
	}
	if !allowedCharsRe.MatchString(expr) {
		return "", errors.Wrapf(ErrInvalidExpression, "unsupported characters in %q", expr)
	}
	for _, id := range identifierRe.FindAllString(expr, -1) {
		if _, ok := mathNames[strings.ToLower(id)]; !ok {
			return "", errors.Wrapf(ErrInvalidExpression, "unknown name %q", id)
		}
	}
	return rewriteUnarySigns(expr), nil
}

// rewriteUnarySigns turns a unary - into -1* and drops a unary +. Signs
// directly after ** are left alone since JS accepts them in the exponent.
func rewriteUnarySigns(expr string) string {
	var sb strings.Builder
	prev := "" // last two non-space characters written
	for _, r := range expr {
		if (r == '-' || r == '+') && isUnaryPosition(prev) {
			if r == '-' {
				sb.WriteString("-1*")
				prev = "1*"
			}
			continue
		}
		sb.WriteRune(r)
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			prev += string(r)
			if len(prev) > 2 {
				prev = prev[len(prev)-2:]
			}
		}
	}
	return sb.String()
}

func isUnaryPosition(prev string) bool {
	if prev == "" {
		return true
	}
	if prev == "**" {
		return false
	}
	return strings.ContainsAny(prev[len(prev)-1:], "+-*/%(,")
}

func prelude() string {
	var sb strings.Builder
	for name, target := range mathNames {
		sb.WriteString("var ")
		sb.WriteString(name)
		sb.WriteString(" = ")
		sb.WriteString(target)
		sb.WriteString(";\n")
	}
	return sb.String()
}

func (e *Evaluator) Evaluate(ctx context.Context, expr string) (string, error) {
	normalized, err := Normalize(expr)
	if err != nil {
		return "", err
	}
	// names are matched case-insensitively above
	normalized = identifierRe.ReplaceAllStringFunc(normalized, strings.ToLower)

	vm := goja.New()
	if _, err := vm.RunString(prelude()); err != nil {
		return "", errors.Wrap(err, "calculator prelude")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt("calculation timed out")
	})
	defer stop()

	v, err := vm.RunString("(" + normalized + ")")
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", errors.Errorf("evaluating %q: %v", expr, interrupted.Value())
		}
		return "", errors.Wrapf(err, "evaluating %q", expr)
	}

	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.Errorf("evaluating %q: result %s is not a finite number", expr, v.String())
	}
	return FormatNumber(f), nil
}

func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
