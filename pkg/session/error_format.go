package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"

	"github.com/speakeasy-api/symcore/engine"
	"github.com/speakeasy-api/symcore/pkg/parse"
)

var limitRe = regexp.MustCompile(`\((\d+)\)`)

// FormatEvalError turns an evaluation or parse error into a user-facing
// message with a hint on how to fix the input.
func FormatEvalError(err error) string {
	if err == nil {
		return ""
	}
	msg, hint := classifyAndHint(err)

	var b strings.Builder
	fmt.Fprintf(&b, "- %s\n", msg)
	if loc := deriveLocation(err); loc != "" {
		fmt.Fprintf(&b, "  Location: %s\n", loc)
	}
	if hint != "" {
		fmt.Fprintf(&b, "  How to fix: %s\n", hint)
	}
	fmt.Fprintf(&b, "  Details: %s\n", extractDetails(err))
	return b.String()
}

func deriveLocation(err error) string {
	var pe *parse.Error
	if errors.As(err, &pe) {
		return fmt.Sprintf("line %d, column %d", pe.Line, pe.Column)
	}
	var ee *engine.EvalError
	if errors.As(err, &ee) && ee.Expr != nil {
		return ee.Expr.String()
	}
	return ""
}

func classifyAndHint(err error) (msg, hint string) {
	var pe *parse.Error
	switch {
	case errors.As(err, &pe):
		msg = "The input could not be parsed."
		hint = `Check brackets and operators; calls are written f[x], lists {a, b}.`
	case errors.Is(err, engine.ErrRecursionLimit):
		msg = "Maximum recursion depth exceeded. A definition probably refers to itself without a base case."
		if m := limitRe.FindStringSubmatch(err.Error()); len(m) == 2 {
			msg = fmt.Sprintf("Maximum recursion depth (%s) exceeded. A definition probably refers to itself without a base case.", m[1])
		}
		hint = "Add a terminating rule (e.g. f[0] = 1) or raise the recursion limit."
	case errors.Is(err, context.DeadlineExceeded):
		msg = "The evaluation did not finish within the time limit."
		hint = "Raise the timeout or wrap the slow part in TimeConstrained[expr, seconds, fallback]."
	case errors.Is(err, engine.ErrCancelled):
		msg = "The evaluation was cancelled."
	case errors.Is(err, engine.ErrMalformedScope):
		msg = "Block variables must be symbols or symbol = value assignments."
		hint = "Write Block[{x, y = 1}, body]."
	case errors.Is(err, engine.ErrEngineBusy):
		msg = "The engine is already evaluating another input."
		hint = "Use one engine per goroutine."
	default:
		msg = "Evaluation error."
	}
	return msg, hint
}

func extractDetails(err error) string {
	return strings.TrimSpace(err.Error())
}

// Report renders an output line with its timing for logs and transcripts.
func (o *Output) Report(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Out[%d] %s", o.Line, timefmt.Format(now, "%H:%M:%S"))
	fmt.Fprintf(&b, " (%s)", o.Elapsed.Round(time.Microsecond))
	if o.Void {
		b.WriteString(" Null")
	} else {
		b.WriteString(" = ")
		b.WriteString(o.Text)
	}
	for _, w := range o.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}
	return b.String()
}
