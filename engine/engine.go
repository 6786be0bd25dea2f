// Package engine evaluates symcore expressions: attribute-driven argument
// evaluation, builtin dispatch, downvalue rewriting to a fixpoint, Block
// scoping and cooperative cancellation.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/match"
)

// Engine evaluates expressions against a symbol table. An engine is bound
// to one goroutine at a time; run independent evaluations on separate
// engines. Engines sharing a table share global values and rules but never
// see each other's Block locals.
type Engine struct {
	table    *symcore.Table
	opts     Options
	logger   Logger
	builtins map[*symcore.Symbol]builtinFunc

	// Per-evaluation state, owned by the goroutine inside Evaluate.
	ctx       context.Context
	evalID    string
	depth     int
	locals    locals
	deadlines []time.Time
	warnings  []string

	inUse     atomic.Bool
	cancelled atomic.Bool
}

// New creates an engine for table.
func New(table *symcore.Table, opts Options) *Engine {
	opts = opts.withDefaults()

	logger := opts.Logger
	if logger == nil {
		if opts.LogLevel != "" {
			logger = NewLogger(ParseLogLevel(opts.LogLevel), nil)
		} else {
			logger = NopLogger()
		}
	}
	if opts.SessionID != "" {
		logger = logger.With(map[string]any{"session": opts.SessionID})
	}

	e := &Engine{
		table:    table,
		opts:     opts,
		logger:   logger,
		builtins: make(map[*symcore.Symbol]builtinFunc, len(builtinRegistry)),
		ctx:      context.Background(),
		locals:   make(locals),
	}
	for name, fn := range builtinRegistry {
		if sym, ok := table.Lookup(name); ok {
			e.builtins[sym] = fn
		}
	}
	return e
}

// Table returns the symbol table the engine evaluates against.
func (e *Engine) Table() *symcore.Table { return e.table }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// SessionID returns the informational session identifier.
func (e *Engine) SessionID() string { return e.opts.SessionID }

// Warnings returns the warnings recorded by the last evaluation.
func (e *Engine) Warnings() []string {
	out := make([]string, len(e.warnings))
	copy(out, e.warnings)
	return out
}

// Cancel aborts the running evaluation at its next checkpoint, or the next
// evaluation if none is running. It is safe to call from any goroutine.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// Evaluate reduces x to a fixpoint. On error no partial result is returned.
func (e *Engine) Evaluate(ctx context.Context, x symcore.Expr) (symcore.Expr, error) {
	if !e.inUse.CompareAndSwap(false, true) {
		return nil, ErrEngineBusy
	}
	defer e.inUse.Store(false)
	defer e.cancelled.Store(false)

	e.ctx = NewContext(ctx, e)
	e.evalID = uuid.NewString()[:8]
	e.depth = 0
	e.deadlines = e.deadlines[:0]
	e.warnings = nil
	defer func() { e.ctx = context.Background() }()

	log := e.logger.With(map[string]any{"eval": e.evalID})
	log.Debugf("evaluating %s", preview(x, e.opts.LogPreviewWidth))

	start := time.Now()
	v, err := e.eval(x)
	if n := e.locals.depth(); n != 0 {
		log.Errorf("%d local frames left after evaluation", n)
		e.locals = make(locals)
	}
	if err != nil {
		log.Infof("evaluation failed after %s: %v", time.Since(start), err)
		return nil, err
	}
	log.Debugf("evaluated to %s in %s", preview(v, e.opts.LogPreviewWidth), time.Since(start))
	return v, nil
}

// Checkpoint reports a Cancelled error when the engine was cancelled, the
// evaluation context is done, or a TimeConstrained deadline has passed.
func (e *Engine) Checkpoint() error {
	if e.cancelled.Load() {
		return &EvalError{Kind: Cancelled}
	}
	select {
	case <-e.ctx.Done():
		return &EvalError{Kind: Cancelled, Err: e.ctx.Err()}
	default:
	}
	if len(e.deadlines) > 0 {
		now := time.Now()
		for i, d := range e.deadlines {
			if now.After(d) {
				return &EvalError{Kind: Cancelled, Err: &deadlineError{level: i}}
			}
		}
	}
	return nil
}

// Test evaluates a match condition. Errors that are not terminal count as
// a failed condition.
func (e *Engine) Test(cond symcore.Expr) (bool, error) {
	v, err := e.eval(cond)
	if err != nil {
		if IsTerminal(err) {
			return false, err
		}
		e.logger.Debugf("condition %s failed: %v", preview(cond, e.opts.LogPreviewWidth), err)
		return false, nil
	}
	return symcore.IsTrue(v), nil
}

func (e *Engine) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	// Always log warnings via logger
	e.logger.Warnf("%s", msg)

	e.warnings = append(e.warnings, msg)
}

// eval is the recursive entry point used by Evaluate and by builtins.
func (e *Engine) eval(x symcore.Expr) (symcore.Expr, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.opts.RecursionLimit {
		return nil, &EvalError{Kind: RecursionLimitExceeded, Expr: x, Limit: e.opts.RecursionLimit}
	}

	cur := x
	for i := 0; ; i++ {
		if err := e.Checkpoint(); err != nil {
			return nil, err
		}
		if i >= e.opts.IterationLimit {
			e.addWarning("%v: %s", &EvalError{Kind: IterationLimitExceeded, Limit: e.opts.IterationLimit},
				preview(x, e.opts.LogPreviewWidth))
			return cur, nil
		}
		next, rewritten, err := e.step(cur)
		if err != nil {
			return nil, err
		}
		if !rewritten || next.Equal(cur) {
			return next, nil
		}
		cur = next
	}
}

// step performs one evaluation round. rewritten is false when next is in
// normal form and must not be evaluated again.
func (e *Engine) step(x symcore.Expr) (next symcore.Expr, rewritten bool, err error) {
	switch v := x.(type) {
	case *symcore.Symbol:
		if val, ok := e.symbolValue(v); ok {
			return val, true, nil
		}
		return v, false, nil
	case *symcore.Apply:
		return e.stepApply(v)
	default:
		return x, false, nil
	}
}

func (e *Engine) symbolValue(s *symcore.Symbol) (symcore.Expr, bool) {
	if f, ok := e.locals.lookup(s); ok {
		return f.value, f.set
	}
	return s.Value()
}

func (e *Engine) stepApply(a *symcore.Apply) (symcore.Expr, bool, error) {
	head, err := e.eval(a.Head())
	if err != nil {
		return nil, false, err
	}
	var attrs symcore.Attributes
	sym, isSym := head.(*symcore.Symbol)
	if isSym {
		attrs = sym.Attributes()
	}

	args := a.Args()
	for i, arg := range args {
		if attrs.HoldsArg(i) {
			continue
		}
		if err := e.Checkpoint(); err != nil {
			return nil, false, err
		}
		v, err := e.eval(arg)
		if err != nil {
			return nil, false, err
		}
		args[i] = v
	}
	if sym != symcore.SymSequence {
		args, _ = symcore.FlattenSequences(args)
	}
	cur := symcore.NewApply(head, args...)

	if isSym {
		if attrs.Has(symcore.Flat) {
			cur = symcore.Flatten(cur)
		}
		if attrs.Has(symcore.Listable) {
			if threaded, ok := e.thread(cur); ok {
				return threaded, true, nil
			}
		}
		if attrs.Has(symcore.Orderless) {
			cur = symcore.SortArgs(cur)
		}
		if res, ok, err := e.dispatch(sym, cur); err != nil || ok {
			return res, ok, err
		}
	}
	return cur, false, nil
}

// thread distributes a Listable application over its List arguments.
func (e *Engine) thread(a *symcore.Apply) (symcore.Expr, bool) {
	n := -1
	for i := 0; i < a.Len(); i++ {
		l, ok := symcore.AsApply(a.Arg(i), symcore.SymList)
		if !ok {
			continue
		}
		if n >= 0 && l.Len() != n {
			e.addWarning("%s: cannot thread over lists of unequal length", preview(a, e.opts.LogPreviewWidth))
			return nil, false
		}
		n = l.Len()
	}
	if n < 0 {
		return nil, false
	}
	elems := make([]symcore.Expr, n)
	for j := range elems {
		args := make([]symcore.Expr, a.Len())
		for i := range args {
			if l, ok := symcore.AsApply(a.Arg(i), symcore.SymList); ok {
				args[i] = l.Arg(j)
			} else {
				args[i] = a.Arg(i)
			}
		}
		elems[j] = symcore.NewApply(a.Head(), args...)
	}
	return symcore.List(elems...), true
}

// dispatch tries the builtin for sym, then its downvalue rules in
// registration order.
func (e *Engine) dispatch(sym *symcore.Symbol, a *symcore.Apply) (symcore.Expr, bool, error) {
	if fn, ok := e.builtins[sym]; ok {
		res, ok, err := fn(e, a)
		if err != nil || ok {
			return res, ok, err
		}
	}
	for _, r := range sym.Rules() {
		b, ok, err := match.New(r.LHS).SetCondition(r.Condition).Match(e, a)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		e.logger.Debugf("rule %s matched %s with %s", preview(r.LHS, e.opts.LogPreviewWidth),
			preview(a, e.opts.LogPreviewWidth), b)
		return match.Substitute(r.RHS, b), true, nil
	}
	return nil, false, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx associated with e.
func NewContext(ctx context.Context, e *Engine) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the engine associated with ctx, if any.
func FromContext(ctx context.Context) (*Engine, bool) {
	e, ok := ctx.Value(ctxKey{}).(*Engine)
	return e, ok
}
