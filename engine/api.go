package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/timefmt-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/speakeasy-api/symcore"
)

// Forever is the "no limit" timeout sentinel for RunConstrained.
const Forever time.Duration = 0

const tracerName = "github.com/speakeasy-api/symcore/engine"

// deadlineError marks the expiry of the TimeConstrained deadline at the
// given nesting level.
type deadlineError struct {
	level int
}

func (e *deadlineError) Error() string {
	return fmt.Sprintf("time constraint %d expired", e.level)
}

// RunConstrained evaluates x on e with a wall-clock deadline. A timeout of
// Forever (or any non-positive value) falls back to the engine's configured
// Timeout, and to no limit when that is zero too. On error the result is
// nil; a partial value is never returned.
//
// Example:
//
//	table := symcore.NewTable()
//	e := engine.New(table, engine.DefaultOptions())
//	res, err := engine.RunConstrained(ctx, e, expr, 2*time.Second)
//	if errors.Is(err, engine.ErrCancelled) {
//	    // deadline reached or cancelled
//	}
func RunConstrained(ctx context.Context, e *Engine, x symcore.Expr, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = e.opts.Timeout
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "symcore.Evaluate",
		trace.WithAttributes(
			attribute.String("symcore.session_id", e.opts.SessionID),
			attribute.Int("symcore.recursion_limit", e.opts.RecursionLimit),
			attribute.Int("symcore.iteration_limit", e.opts.IterationLimit),
		))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		deadline, _ := ctx.Deadline()
		e.logger.Debugf("evaluation deadline %s", timefmt.Format(deadline, "%Y-%m-%dT%H:%M:%S%z"))
	}

	start := time.Now()
	v, err := e.Evaluate(ctx, x)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return nil, err
	}
	warnings := e.Warnings()
	span.SetAttributes(attribute.Int("symcore.warnings", len(warnings)))
	return &Result{
		Expr:     v,
		Void:     symcore.IsVoid(v),
		Warnings: warnings,
		Elapsed:  elapsed,
	}, nil
}

// TimeConstrained binds an engine to a default timeout.
type TimeConstrained struct {
	Engine  *Engine
	Timeout time.Duration
}

// Run evaluates x within the configured timeout.
func (tc TimeConstrained) Run(ctx context.Context, x symcore.Expr) (*Result, error) {
	return RunConstrained(ctx, tc.Engine, x, tc.Timeout)
}

// builtinTimeConstrained evaluates TimeConstrained[expr, seconds, failexpr].
// When its own deadline passes the evaluation of expr is abandoned and
// failexpr (or $Aborted) is returned; outer deadlines and cancellation
// propagate.
func builtinTimeConstrained(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 && a.Len() != 3 {
		return nil, false, nil
	}
	limit, err := e.eval(a.Arg(1))
	if err != nil {
		return nil, false, err
	}
	secs, ok := symcore.NumberValue(limit)
	if !ok || secs.Sign() <= 0 {
		e.addWarning("TimeConstrained: time limit %s is not a positive number", preview(limit, 20))
		return nil, false, nil
	}
	f, _ := secs.Float64()

	level := len(e.deadlines)
	e.deadlines = append(e.deadlines, time.Now().Add(time.Duration(f*float64(time.Second))))
	v, err := e.eval(a.Arg(0))
	e.deadlines = e.deadlines[:level]

	var de *deadlineError
	if err != nil && errors.As(err, &de) && de.level == level {
		e.logger.Infof("time constraint of %gs expired", f)
		if a.Len() == 3 {
			return a.Arg(2), true, nil
		}
		return symcore.SymAborted, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
