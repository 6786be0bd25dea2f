package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/pkg/parse"
)

func newTestEngine(t *testing.T, tweak ...func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = NopLogger()
	for _, fn := range tweak {
		fn(&opts)
	}
	return New(symcore.NewTable(), opts)
}

func evalString(t *testing.T, e *Engine, src string) (symcore.Expr, error) {
	t.Helper()
	x, err := parse.ParseExpr(e.Table(), src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return e.Evaluate(context.Background(), x)
}

func mustEval(t *testing.T, e *Engine, src string) symcore.Expr {
	t.Helper()
	v, err := evalString(t, e, src)
	if err != nil {
		t.Fatalf("evaluate %q: %v", src, err)
	}
	return v
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Arithmetic
		{"integer sum", "1 + 2", "3"},
		{"precedence", "2 * 3 + 4", "10"},
		{"symbolic sum keeps the number first", "x + 1 + 2", "Plus[3,x]"},
		{"real arithmetic", "1.5 + 1", "2.5"},
		{"integer power", "2^10", "1024"},
		{"no exact rationals", "2^-1", "Power[2,-1]"},
		{"large exact power", "2^100", "1267650600228229401496703205376"},
		{"oversized power stays unevaluated", "2^(10^12)", "Power[2,1000000000000]"},
		{"unit base any exponent", "(-1)^(10^12 + 1)", "-1"},
		{"times zero", "0 * x", "0"},
		{"orderless sorts", "Plus[b, a]", "Plus[a,b]"},
		{"flat flattens", "Plus[a, Plus[b, c]]", "Plus[a,b,c]"},
		{"listable threads", "{1, 2} + {10, 20}", "List[11,22]"},
		{"listable with scalar", "{1, 2} + 1", "List[2,3]"},
		{"sequence splices", "f[Sequence[a, b], c]", "f[a,b,c]"},

		// Holding
		{"hold keeps arguments", "Hold[1 + 1]", "Hold[Plus[1,1]]"},
		{"if picks the branch", "If[1 < 2, a, b]", "a"},
		{"if undecided", "If[x, a, b]", "If[x,a,b]"},
		{"if without else", "If[False, a]", "Null"},

		// Logic and comparison
		{"not", "!True", "False"},
		{"and short circuit", "a && False", "False"},
		{"and identity", "True && a", "a"},
		{"or undecided", "a || b", "Or[a,b]"},
		{"numeric equal", "1 == 1.0", "True"},
		{"symbolic equal", "a == b", "Equal[a,b]"},
		{"sameq", "a === a", "True"},
		{"unsameq", "a =!= a", "False"},
		{"less chain", "1 < 2 < 3", "True"},
		{"greater fails", "3 > 5", "False"},
		{"unequal distinct", "Unequal[1, 2, 3]", "True"},
		{"unequal any pair equal", "1 != 2 != 1", "False"},
		{"unequal undecidable", "Unequal[a, b, 1]", "Unequal[a,b,1]"},
		{"unequal stops at first undecidable pair", "Unequal[a, 1, 1]", "Unequal[a,1,1]"},

		// Structure
		{"head of application", "Head[f[x]]", "f"},
		{"head of integer", "Head[1]", "Integer"},
		{"length", "Length[{1, 2, 3}]", "3"},
		{"length of atom", "Length[x]", "0"},
		{"matchq", "MatchQ[f[1, 2], f[x_, y_]]", "True"},
		{"matchq fails", "MatchQ[f[1], g[_]]", "False"},
		{"through", "Through[f[g, h][x]]", "f[g[x],h[x]]"},
		{"through with head", "Through[f[g, h][x], f]", "f[g[x],h[x]]"},
		{"through mismatched head", "Through[f[g, h][x], p]", "f[g,h][x]"},

		// Definitions
		{"set then read", "x = 5; x", "5"},
		{"set delayed", "sq[x_] := x^2; sq[3]", "9"},
		{"recursive definition", "fact[0] = 1; fact[n_] := n * fact[n - 1]; fact[10]", "3628800"},
		{"conditional rule", "pos[x_] := x /; x > 0; {pos[1], pos[-1]}", "List[1,pos[-1]]"},
		{"rules in registration order", "r[x_] := 1; r[2] := 2; r[2]", "1"},
		{"redefinition replaces", "q[x_] := 1; q[x_] := 2; q[0]", "2"},
		{"sequence pattern", "s[a__, b_] := {b, a}; s[1, 2, 3]", "List[3,1,2]"},
		{"trailing semicolon", "x = 1;", "Null"},
		{"set evaluates lhs arguments", "f[1 + 1] = 7; f[2]", "7"},
		{"set delayed evaluates lhs arguments", "x = 2; h[x] := 1; h[2]", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			got := mustEval(t, e, tt.input)
			if diff := cmp.Diff(tt.want, got.String()); diff != "" {
				t.Errorf("Evaluate(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestOrderlessUserHead(t *testing.T) {
	table := symcore.NewTable()
	if _, err := table.Declare("o", symcore.Orderless); err != nil {
		t.Fatal(err)
	}
	table.Seal()
	opts := DefaultOptions()
	opts.Logger = NopLogger()
	e := New(table, opts)

	mustEval(t, e, "o[x_, y_] := {x, y} /; x > y")
	tests := []struct {
		input string
		want  string
	}{
		{"o[2, 1]", "List[2,1]"},
		{"o[1, 2]", "List[2,1]"},
		{"o[3, 3]", "o[3,3]"},
		{"o[b, a]", "o[a,b]"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := mustEval(t, e, tt.input)
			if diff := cmp.Diff(tt.want, got.String()); diff != "" {
				t.Errorf("Evaluate(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	inputs := []string{
		"x + 1 + 2",
		"{1, a} + {b, 2}",
		"Hold[1 + 1]",
		"f[Sequence[a, b], Plus[c, Plus[d]]]",
		"Unequal[a, b, 1]",
		"Through[f[g, h][x]]",
	}
	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			e := newTestEngine(t)
			once := mustEval(t, e, src)
			twice, err := e.Evaluate(context.Background(), once)
			if err != nil {
				t.Fatal(err)
			}
			if !once.Equal(twice) {
				t.Errorf("evaluate is not idempotent: %s then %s", once, twice)
			}
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.RecursionLimit = 32 })
	mustEval(t, e, "g[n_] := 1 + g[n]")

	v, err := evalString(t, e, "g[0]")
	if v != nil {
		t.Errorf("expected no partial result, got %s", v)
	}
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("err = %v, want ErrRecursionLimit", err)
	}
	if KindOf(err) != RecursionLimitExceeded || !IsTerminal(err) {
		t.Errorf("KindOf = %s, IsTerminal = %v", KindOf(err), IsTerminal(err))
	}
	var ee *EvalError
	if !errors.As(err, &ee) || ee.Limit != 32 {
		t.Errorf("expected EvalError with limit 32, got %#v", err)
	}

	// The engine stays usable.
	if got := mustEval(t, e, "1 + 1"); !got.Equal(symcore.Int(2)) {
		t.Errorf("after failure got %s", got)
	}
}

func TestIterationLimit(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.IterationLimit = 20 })
	mustEval(t, e, "f[n_] := f[n + 1]")

	v, err := evalString(t, e, "f[0]")
	if err != nil {
		t.Fatalf("iteration limit must not be an error: %v", err)
	}
	a, ok := v.(*symcore.Apply)
	if !ok {
		t.Fatalf("expected the last f[...] value, got %s", v)
	}
	if h, _ := a.HeadSymbol(); h == nil || h.Name() != "f" {
		t.Errorf("expected the last f[...] value, got %s", v)
	}
	warnings := e.Warnings()
	if len(warnings) == 0 {
		t.Fatal("expected an iteration limit warning")
	}
	if !strings.Contains(warnings[0], "iteration limit exceeded (20)") {
		t.Errorf("warning = %q", warnings[0])
	}
}

func TestBlockRestoresOuterValues(t *testing.T) {
	e := newTestEngine(t)
	x := e.Table().Intern("x")

	got := mustEval(t, e, "Block[{x}, x = 5; undefinedSym[]]")
	if got.String() != "undefinedSym[]" {
		t.Errorf("Block result = %s", got)
	}
	if v, ok := x.Value(); ok {
		t.Errorf("x leaked out of Block: %s", v)
	}

	if got := mustEval(t, e, "Block[{x}, x = 5; x]"); !got.Equal(symcore.Int(5)) {
		t.Errorf("x inside Block = %s, want 5", got)
	}
	if _, ok := x.Value(); ok {
		t.Error("x leaked out of Block")
	}
	if n := e.locals.depth(); n != 0 {
		t.Errorf("%d local frames left", n)
	}
}

func TestBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"initializer sees outer value", "x = 1; Block[{x = x + 1}, x]", "2"},
		{"outer value restored", "x = 1; Block[{x = 7}, x]; x", "1"},
		{"nested shadowing", "Block[{x = 1}, Block[{x = 2}, x] + x]", "3"},
		{"dynamic scope", "g[] := y; Block[{y = 7}, g[]]", "7"},
		{"unset local evaluates to itself", "x = 1; Block[{x}, x === 1]", "False"},
		{"held unset local", "x = 1; Block[{x}, Hold[x]]", "Hold[x]"},
		{"result reevaluated after pop", "x = 1; Block[{x}, x]", "1"},
		{"not a list", "Block[x, x]", "Block[x,x]"},
		{"wrong arity", "Block[{x}]", "Block[List[x]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			got := mustEval(t, e, tt.input)
			if got.String() != tt.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if n := e.locals.depth(); n != 0 {
				t.Errorf("%d local frames left", n)
			}
		})
	}
}

func TestBlockErrors(t *testing.T) {
	t.Run("malformed specifier", func(t *testing.T) {
		for _, src := range []string{"Block[{1}, x]", "Block[{x, f[y] = 2}, x]", "Block[{x := 1}, x]"} {
			e := newTestEngine(t)
			v, err := evalString(t, e, src)
			if !errors.Is(err, ErrMalformedScope) {
				t.Errorf("%s: err = %v, want ErrMalformedScope", src, err)
			}
			if v != nil {
				t.Errorf("%s: expected no result, got %s", src, v)
			}
			if n := e.locals.depth(); n != 0 {
				t.Errorf("%s: %d local frames left", src, n)
			}
		}
	})

	t.Run("frames popped on failure", func(t *testing.T) {
		e := newTestEngine(t, func(o *Options) { o.RecursionLimit = 40 })
		x := e.Table().Intern("x")
		_, err := evalString(t, e, "Block[{x = 1}, g[n_] := 1 + g[n]; g[x]]")
		if !errors.Is(err, ErrRecursionLimit) {
			t.Fatalf("err = %v, want ErrRecursionLimit", err)
		}
		if _, ok := x.Value(); ok {
			t.Error("x leaked out of failed Block")
		}
		if n := e.locals.depth(); n != 0 {
			t.Errorf("%d local frames left", n)
		}
	})

	t.Run("failing condition is not terminal", func(t *testing.T) {
		e := newTestEngine(t)
		got := mustEval(t, e, "c[x_] := 1 /; Block[{1}, True]; c[2]")
		if got.String() != "c[2]" {
			t.Errorf("got %s, want c[2]", got)
		}
	})
}

func TestAssignmentFailure(t *testing.T) {
	e := newTestEngine(t)
	got := mustEval(t, e, "Set[Plus, 1]")
	if got != symcore.Expr(symcore.SymFailed) {
		t.Errorf("got %s, want $Failed", got)
	}
	w := e.Warnings()
	if len(w) != 1 || !strings.Contains(w[0], "protected") {
		t.Errorf("warnings = %v", w)
	}
}

func TestCancellation(t *testing.T) {
	t.Run("cancel flag", func(t *testing.T) {
		e := newTestEngine(t)
		e.Cancel()
		v, err := evalString(t, e, "1 + 1")
		if !errors.Is(err, ErrCancelled) || v != nil {
			t.Fatalf("got %v, %v; want no result and ErrCancelled", v, err)
		}
		if got := mustEval(t, e, "1 + 1"); !got.Equal(symcore.Int(2)) {
			t.Errorf("cancel flag was not reset: %s", got)
		}
	})

	t.Run("context", func(t *testing.T) {
		e := newTestEngine(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		x, _ := parse.ParseExpr(e.Table(), "1 + 1")
		_, err := e.Evaluate(ctx, x)
		if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("deadline", func(t *testing.T) {
		e := newTestEngine(t, func(o *Options) { o.IterationLimit = 1 << 30 })
		mustEval(t, e, "f[n_] := f[n + 1]")
		x, _ := parse.ParseExpr(e.Table(), "f[0]")

		res, err := RunConstrained(context.Background(), e, x, 20*time.Millisecond)
		if res != nil {
			t.Errorf("expected no partial result, got %v", res.Expr)
		}
		if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestTimeConstrained(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"finishes in time", "TimeConstrained[1 + 1, 5]", "2"},
		{"fallback", "TimeConstrained[loop[0], 0.02, \"slow\"]", `"slow"`},
		{"aborted", "TimeConstrained[loop[0], 0.02]", "$Aborted"},
		{"nested inner expires", "TimeConstrained[{TimeConstrained[loop[0], 0.02, a], b}, 5]", "List[a,b]"},
		{"bad limit", "TimeConstrained[1, -1]", "TimeConstrained[1,-1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(o *Options) { o.IterationLimit = 1 << 30 })
			mustEval(t, e, "loop[n_] := loop[n + 1]")
			got := mustEval(t, e, tt.input)
			if got.String() != tt.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeConstrainedRun(t *testing.T) {
	e := newTestEngine(t)
	tc := TimeConstrained{Engine: e, Timeout: Forever}
	x, _ := parse.ParseExpr(e.Table(), "x = 3; x^2")
	res, err := tc.Run(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Expr.Equal(symcore.Int(9)) || res.Void {
		t.Errorf("result = %+v", res)
	}

	x, _ = parse.ParseExpr(e.Table(), "y = 1;")
	res, err = tc.Run(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Void {
		t.Errorf("expected the void result, got %s", res.Expr)
	}
}

func TestEngineBusy(t *testing.T) {
	e := newTestEngine(t)
	e.inUse.Store(true)
	_, err := e.Evaluate(context.Background(), symcore.Int(1))
	if !errors.Is(err, ErrEngineBusy) {
		t.Errorf("err = %v, want ErrEngineBusy", err)
	}
	e.inUse.Store(false)
	if _, err := e.Evaluate(context.Background(), symcore.Int(1)); err != nil {
		t.Errorf("err = %v after release", err)
	}
}

func TestConcurrentEnginesIsolateLocals(t *testing.T) {
	table := symcore.NewTable()
	opts := DefaultOptions()
	opts.Logger = NopLogger()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := New(table, opts)
			for i := 0; i < 50; i++ {
				want := int64(w*1000 + i)
				src := fmt.Sprintf("Block[{x = %d}, Block[{y = x}, y + 0]]", want)
				x, err := parse.ParseExpr(table, src)
				if err != nil {
					errs <- err
					return
				}
				v, err := e.Evaluate(context.Background(), x)
				if err != nil {
					errs <- err
					return
				}
				if !v.Equal(symcore.Int(want)) {
					errs <- fmt.Errorf("worker %d saw %s, want %d", w, v, want)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if x, _ := table.Lookup("x"); x != nil {
		if _, ok := x.Value(); ok {
			t.Error("x has a global value after concurrent Blocks")
		}
	}
}

func TestContextEngine(t *testing.T) {
	e := newTestEngine(t)
	ctx := NewContext(context.Background(), e)
	got, ok := FromContext(ctx)
	if !ok || got != e {
		t.Error("FromContext did not return the engine")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext on a bare context should fail")
	}
}
