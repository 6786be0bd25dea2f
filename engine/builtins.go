package engine

import (
	"math"
	"math/big"

	"github.com/speakeasy-api/symcore"
	"github.com/speakeasy-api/symcore/match"
)

// builtinFunc evaluates an application whose arguments were prepared
// according to the head's attributes. It returns ok=false to leave the
// application to the downvalue rules (or unevaluated).
type builtinFunc func(e *Engine, a *symcore.Apply) (res symcore.Expr, ok bool, err error)

// builtinRegistry maps head names to their native evaluators.
var builtinRegistry = map[string]builtinFunc{
	// Assignment and control
	"Set":                builtinSet,
	"SetDelayed":         builtinSetDelayed,
	"CompoundExpression": builtinCompoundExpression,
	"Block":              builtinBlock,
	"If":                 builtinIf,
	"TimeConstrained":    builtinTimeConstrained,

	// Logic
	"And": builtinAnd,
	"Or":  builtinOr,
	"Not": builtinNot,

	// Arithmetic
	"Plus":  builtinPlus,
	"Times": builtinTimes,
	"Power": builtinPower,

	// Comparison
	"Equal":   builtinEqual,
	"Unequal": builtinUnequal,
	"Less":    builtinLess,
	"Greater": builtinGreater,
	"SameQ":   builtinSameQ,
	"UnsameQ": builtinUnsameQ,

	// Structure
	"MatchQ":  builtinMatchQ,
	"Head":    builtinHead,
	"Length":  builtinLength,
	"Through": builtinThrough,
}

// ============================================================================
// ASSIGNMENT
// ============================================================================

func builtinSet(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 {
		return nil, false, nil
	}
	lhs, err := e.evalLHS(a.Arg(0))
	if err != nil {
		return nil, false, err
	}
	rhs := a.Arg(1)
	if err := e.assign(lhs, nil, rhs); err != nil {
		e.addWarning("Set: %v", err)
		return symcore.SymFailed, true, nil
	}
	return rhs, true, nil
}

func builtinSetDelayed(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 {
		return nil, false, nil
	}
	lhs, rhs := a.Arg(0), a.Arg(1)
	var cond symcore.Expr
	if c, ok := symcore.AsApply(lhs, symcore.SymCondition); ok && c.Len() == 2 {
		lhs, cond = c.Arg(0), c.Arg(1)
	} else if c, ok := symcore.AsApply(rhs, symcore.SymCondition); ok && c.Len() == 2 {
		rhs, cond = c.Arg(0), c.Arg(1)
	}
	lhs, err := e.evalLHS(lhs)
	if err != nil {
		return nil, false, err
	}
	if err := e.assign(lhs, cond, rhs); err != nil {
		e.addWarning("SetDelayed: %v", err)
		return symcore.SymFailed, true, nil
	}
	return symcore.SymNull, true, nil
}

// evalLHS evaluates the arguments of an application on the left of an
// assignment, honoring the hold attributes of its head. The head itself
// and symbols are left alone.
func (e *Engine) evalLHS(lhs symcore.Expr) (symcore.Expr, error) {
	a, ok := lhs.(*symcore.Apply)
	if !ok {
		return lhs, nil
	}
	head, ok := a.HeadSymbol()
	if !ok {
		return lhs, nil
	}
	attrs := head.Attributes()
	args := a.Args()
	for i, arg := range args {
		if attrs.HoldsArg(i) {
			continue
		}
		v, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	args, _ = symcore.FlattenSequences(args)
	return a.WithArgs(args), nil
}

// assign stores rhs as the value of a symbol or as a downvalue of the
// head of an application. A symbol with a Block frame on this engine is
// assigned in that frame.
func (e *Engine) assign(lhs, cond, rhs symcore.Expr) error {
	switch l := lhs.(type) {
	case *symcore.Symbol:
		if cond != nil {
			return errNotAssignable(lhs)
		}
		if f, ok := e.locals.lookup(l); ok {
			f.value, f.set = rhs, true
			return nil
		}
		return l.SetValue(rhs)
	case *symcore.Apply:
		head, ok := l.HeadSymbol()
		if !ok {
			return errNotAssignable(lhs)
		}
		return head.AddRule(symcore.Rule{LHS: lhs, Condition: cond, RHS: rhs})
	default:
		return errNotAssignable(lhs)
	}
}

type notAssignableError struct{ lhs symcore.Expr }

func (e *notAssignableError) Error() string {
	return "cannot assign to " + preview(e.lhs, 40)
}

func errNotAssignable(lhs symcore.Expr) error { return &notAssignableError{lhs: lhs} }

// ============================================================================
// CONTROL
// ============================================================================

func builtinCompoundExpression(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	var last symcore.Expr = symcore.SymNull
	for i := 0; i < a.Len(); i++ {
		v, err := e.eval(a.Arg(i))
		if err != nil {
			return nil, false, err
		}
		last = v
	}
	return last, true, nil
}

func builtinIf(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() < 2 || a.Len() > 4 {
		return nil, false, nil
	}
	switch {
	case symcore.IsTrue(a.Arg(0)):
		return a.Arg(1), true, nil
	case symcore.IsFalse(a.Arg(0)):
		if a.Len() >= 3 {
			return a.Arg(2), true, nil
		}
		return symcore.SymNull, true, nil
	case a.Len() == 4:
		return a.Arg(3), true, nil
	}
	return nil, false, nil
}

// ============================================================================
// LOGIC
// ============================================================================

func builtinAnd(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	return shortCircuit(e, a, symcore.SymFalse, symcore.SymTrue)
}

func builtinOr(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	return shortCircuit(e, a, symcore.SymTrue, symcore.SymFalse)
}

// shortCircuit evaluates held arguments in order, stopping at stop and
// dropping identity. Undecided arguments are kept in evaluated form.
func shortCircuit(e *Engine, a *symcore.Apply, stop, identity *symcore.Symbol) (symcore.Expr, bool, error) {
	var rest []symcore.Expr
	for i := 0; i < a.Len(); i++ {
		v, err := e.eval(a.Arg(i))
		if err != nil {
			return nil, false, err
		}
		switch v {
		case symcore.Expr(stop):
			return stop, true, nil
		case symcore.Expr(identity):
			continue
		}
		rest = append(rest, v)
	}
	switch len(rest) {
	case 0:
		return identity, true, nil
	case 1:
		return rest[0], true, nil
	}
	res := symcore.NewApply(a.Head(), rest...)
	if res.Equal(a) {
		return nil, false, nil
	}
	return res, true, nil
}

func builtinNot(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 1 {
		return nil, false, nil
	}
	switch {
	case symcore.IsTrue(a.Arg(0)):
		return symcore.SymFalse, true, nil
	case symcore.IsFalse(a.Arg(0)):
		return symcore.SymTrue, true, nil
	}
	return nil, false, nil
}

// ============================================================================
// ARITHMETIC
// ============================================================================

// number is an exact integer or an inexact real accumulator.
type number struct {
	i     *big.Int
	f     float64
	exact bool
}

func toNumber(x symcore.Expr) (number, bool) {
	switch v := x.(type) {
	case symcore.Integer:
		return number{i: v.Big(), exact: true}, true
	case symcore.Real:
		return number{f: float64(v)}, true
	}
	return number{}, false
}

func (n number) float() float64 {
	if n.exact {
		f, _ := new(big.Float).SetInt(n.i).Float64()
		return f
	}
	return n.f
}

func (n number) expr() symcore.Expr {
	if n.exact {
		return symcore.NewBigInteger(n.i)
	}
	return symcore.Real(n.f)
}

func (n number) add(m number) number {
	if n.exact && m.exact {
		return number{i: new(big.Int).Add(n.i, m.i), exact: true}
	}
	return number{f: n.float() + m.float()}
}

func (n number) mul(m number) number {
	if n.exact && m.exact {
		return number{i: new(big.Int).Mul(n.i, m.i), exact: true}
	}
	return number{f: n.float() * m.float()}
}

func (n number) isInt(v int64) bool {
	return n.exact && n.i.IsInt64() && n.i.Int64() == v
}

func builtinPlus(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	return fold(a, number{i: big.NewInt(0), exact: true}, number.add)
}

func builtinTimes(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	for i := 0; i < a.Len(); i++ {
		if n, ok := toNumber(a.Arg(i)); ok && n.isInt(0) {
			return symcore.Int(0), true, nil
		}
	}
	return fold(a, number{i: big.NewInt(1), exact: true}, number.mul)
}

// fold combines the numeric arguments of a Flat Orderless application into
// one leading number, drops the identity and collapses single arguments.
func fold(a *symcore.Apply, identity number, op func(number, number) number) (symcore.Expr, bool, error) {
	acc := identity
	numeric := 0
	rest := make([]symcore.Expr, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		if n, ok := toNumber(a.Arg(i)); ok {
			acc = op(acc, n)
			numeric++
			continue
		}
		rest = append(rest, a.Arg(i))
	}
	if numeric == 0 && len(rest) > 1 {
		return nil, false, nil
	}
	args := rest
	if !(acc.exact && acc.i.Cmp(identity.i) == 0) {
		args = append([]symcore.Expr{acc.expr()}, rest...)
	}
	switch len(args) {
	case 0:
		return acc.expr(), true, nil
	case 1:
		return args[0], true, nil
	}
	res := symcore.NewApply(a.Head(), args...)
	if res.Equal(a) {
		return nil, false, nil
	}
	return res, true, nil
}

// maxPowerBits bounds the size of an exact power; larger ones stay
// unevaluated.
const maxPowerBits = 1 << 20

func builtinPower(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 {
		return nil, false, nil
	}
	base, exp := a.Arg(0), a.Arg(1)
	en, expNum := toNumber(exp)
	if expNum && en.isInt(1) {
		return base, true, nil
	}
	if expNum && en.isInt(0) {
		return symcore.Int(1), true, nil
	}
	bn, baseNum := toNumber(base)
	if !baseNum || !expNum {
		return nil, false, nil
	}
	if bn.exact && en.exact {
		if en.i.Sign() < 0 {
			// No exact rationals; only units have integer inverses.
			if bn.isInt(1) || bn.isInt(-1) {
				return symcore.NewBigInteger(new(big.Int).Exp(bn.i, new(big.Int).Neg(en.i), nil)), true, nil
			}
			return nil, false, nil
		}
		if !bn.isInt(0) && !bn.isInt(1) && !bn.isInt(-1) &&
			(!en.i.IsInt64() || en.i.Int64() > maxPowerBits ||
				int64(bn.i.BitLen())*en.i.Int64() > maxPowerBits) {
			return nil, false, nil
		}
		return symcore.NewBigInteger(new(big.Int).Exp(bn.i, en.i, nil)), true, nil
	}
	return symcore.Real(math.Pow(bn.float(), en.float())), true, nil
}

// ============================================================================
// COMPARISON
// ============================================================================

// decide reports whether x and y are provably equal or provably distinct.
// known is false when the relation depends on unevaluated symbols.
func decide(x, y symcore.Expr) (equal, known bool) {
	if x.Equal(y) {
		return true, true
	}
	xv, xNum := symcore.NumberValue(x)
	yv, yNum := symcore.NumberValue(y)
	if xNum && yNum {
		return xv.Cmp(yv) == 0, true
	}
	if x.Kind().IsAtom() && y.Kind().IsAtom() {
		// Numbers and strings are distinct from each other.
		return false, true
	}
	return false, false
}

func builtinEqual(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	for i := 1; i < a.Len(); i++ {
		eq, known := decide(a.Arg(i-1), a.Arg(i))
		if !known {
			return nil, false, nil
		}
		if !eq {
			return symcore.SymFalse, true, nil
		}
	}
	return symcore.SymTrue, true, nil
}

// builtinUnequal is True when all arguments are pairwise distinct, False
// when any pair is equal, and unevaluated when a pair is undecidable.
// builtinUnequal compares pairs in order. The first equal pair gives
// False and the first undecidable pair leaves the application unevaluated.
func builtinUnequal(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	for i := 0; i < a.Len(); i++ {
		for j := i + 1; j < a.Len(); j++ {
			eq, known := decide(a.Arg(i), a.Arg(j))
			if !known {
				return nil, false, nil
			}
			if eq {
				return symcore.SymFalse, true, nil
			}
		}
	}
	return symcore.SymTrue, true, nil
}

func builtinLess(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	return chain(a, func(c int) bool { return c < 0 })
}

func builtinGreater(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	return chain(a, func(c int) bool { return c > 0 })
}

func chain(a *symcore.Apply, holds func(int) bool) (symcore.Expr, bool, error) {
	vals := make([]*big.Float, a.Len())
	for i := range vals {
		v, ok := symcore.NumberValue(a.Arg(i))
		if !ok {
			return nil, false, nil
		}
		vals[i] = v
	}
	for i := 1; i < len(vals); i++ {
		if !holds(vals[i-1].Cmp(vals[i])) {
			return symcore.SymFalse, true, nil
		}
	}
	return symcore.SymTrue, true, nil
}

func builtinSameQ(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	for i := 1; i < a.Len(); i++ {
		if !a.Arg(i - 1).Equal(a.Arg(i)) {
			return symcore.SymFalse, true, nil
		}
	}
	return symcore.SymTrue, true, nil
}

func builtinUnsameQ(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	for i := 0; i < a.Len(); i++ {
		for j := i + 1; j < a.Len(); j++ {
			if a.Arg(i).Equal(a.Arg(j)) {
				return symcore.SymFalse, true, nil
			}
		}
	}
	return symcore.SymTrue, true, nil
}

// ============================================================================
// STRUCTURE
// ============================================================================

func builtinMatchQ(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 2 {
		return nil, false, nil
	}
	_, ok, err := match.Match(e, a.Arg(1), a.Arg(0), nil)
	if err != nil {
		return nil, false, err
	}
	return symcore.Bool(ok), true, nil
}

func builtinHead(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 1 {
		return nil, false, nil
	}
	return a.Arg(0).Head(), true, nil
}

func builtinLength(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 1 {
		return nil, false, nil
	}
	if x, ok := a.Arg(0).(*symcore.Apply); ok {
		return symcore.Int(int64(x.Len())), true, nil
	}
	return symcore.Int(0), true, nil
}

// builtinThrough distributes p[f, g][x] to p[f[x], g[x]]. With a second
// argument h, only applications whose inner head is h are distributed;
// anything else yields the first argument.
func builtinThrough(e *Engine, a *symcore.Apply) (symcore.Expr, bool, error) {
	if a.Len() != 1 && a.Len() != 2 {
		return nil, false, nil
	}
	outer, ok := a.Arg(0).(*symcore.Apply)
	if !ok {
		return a.Arg(0), true, nil
	}
	inner, ok := outer.Head().(*symcore.Apply)
	if !ok || (a.Len() == 2 && !inner.Head().Equal(a.Arg(1))) {
		return outer, true, nil
	}
	fs := make([]symcore.Expr, inner.Len())
	for i := range fs {
		fs[i] = symcore.NewApply(inner.Arg(i), outer.Args()...)
	}
	return symcore.NewApply(inner.Head(), fs...), true, nil
}
