// Package symcore is the expression model of a symbolic rewriting engine:
// atoms, interned symbols with evaluation attributes, and immutable
// function applications.
//
// Published nodes are never mutated. Rewrites build new nodes with the
// rebuild helpers (WithHead, WithArg, WithArgs), which share every child
// that did not change.
package symcore

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
)

// Expr is a node of an expression tree.
type Expr interface {
	Kind() Kind
	// Head returns the head of the expression. Atoms report the symbol
	// naming their type, symbols report Symbol, applications their head.
	Head() Expr
	// Equal reports structural equality.
	Equal(Expr) bool
	// String renders the expression in full form, e.g. f[a,b].
	String() string
}

// Integer is an arbitrary precision integer atom.
type Integer struct {
	v *big.Int
}

// Int returns an integer atom for n.
func Int(n int64) Integer {
	return Integer{v: big.NewInt(n)}
}

// NewBigInteger returns an integer atom holding a copy of b.
func NewBigInteger(b *big.Int) Integer {
	return Integer{v: new(big.Int).Set(b)}
}

func (i Integer) big() *big.Int {
	if i.v == nil {
		return new(big.Int)
	}
	return i.v
}

// Big returns a copy of the integer value.
func (i Integer) Big() *big.Int { return new(big.Int).Set(i.big()) }

// Int64 returns the value if it fits in an int64.
func (i Integer) Int64() (int64, bool) {
	b := i.big()
	if !b.IsInt64() {
		return 0, false
	}
	return b.Int64(), true
}

func (i Integer) Kind() Kind     { return KindInteger }
func (i Integer) Head() Expr     { return SymInteger }
func (i Integer) String() string { return i.big().String() }

func (i Integer) Equal(o Expr) bool {
	j, ok := o.(Integer)
	return ok && i.big().Cmp(j.big()) == 0
}

// Real is a machine precision floating point atom.
type Real float64

func (r Real) Kind() Kind { return KindReal }
func (r Real) Head() Expr { return SymReal }

func (r Real) Equal(o Expr) bool {
	s, ok := o.(Real)
	return ok && (r == s || (math.IsNaN(float64(r)) && math.IsNaN(float64(s))))
}

func (r Real) String() string {
	s := strconv.FormatFloat(float64(r), 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + "."
}

// Str is a string atom.
type Str string

func (s Str) Kind() Kind     { return KindString }
func (s Str) Head() Expr     { return SymString }
func (s Str) String() string { return strconv.Quote(string(s)) }

func (s Str) Equal(o Expr) bool {
	t, ok := o.(Str)
	return ok && s == t
}

// Apply is a function application head[args...].
type Apply struct {
	head Expr
	args []Expr
	hash atomic.Uint64
}

// NewApply builds head[args...]. The argument slice is copied.
func NewApply(head Expr, args ...Expr) *Apply {
	cp := make([]Expr, len(args))
	copy(cp, args)
	return &Apply{head: head, args: cp}
}

// newApplyOwned builds an application that takes ownership of args.
func newApplyOwned(head Expr, args []Expr) *Apply {
	return &Apply{head: head, args: args}
}

func (a *Apply) Kind() Kind { return KindApply }
func (a *Apply) Head() Expr { return a.head }

// Len returns the number of arguments.
func (a *Apply) Len() int { return len(a.args) }

// Arg returns the i-th argument, 0-based.
func (a *Apply) Arg(i int) Expr { return a.args[i] }

// Args returns a copy of the arguments.
func (a *Apply) Args() []Expr {
	cp := make([]Expr, len(a.args))
	copy(cp, a.args)
	return cp
}

// HeadSymbol returns the head if it is a symbol.
func (a *Apply) HeadSymbol() (*Symbol, bool) {
	s, ok := a.head.(*Symbol)
	return s, ok
}

// WithHead returns a copy of the application with a different head.
func (a *Apply) WithHead(h Expr) *Apply {
	if h == a.head {
		return a
	}
	return &Apply{head: h, args: a.args}
}

// WithArg returns a copy with argument i replaced.
func (a *Apply) WithArg(i int, e Expr) *Apply {
	if a.args[i] == e {
		return a
	}
	cp := make([]Expr, len(a.args))
	copy(cp, a.args)
	cp[i] = e
	return &Apply{head: a.head, args: cp}
}

// WithArgs returns a copy with a new argument list (copied).
func (a *Apply) WithArgs(args []Expr) *Apply {
	return NewApply(a.head, args...)
}

func (a *Apply) Equal(o Expr) bool {
	b, ok := o.(*Apply)
	if !ok {
		return false
	}
	if a == b {
		return true
	}
	if len(a.args) != len(b.args) {
		return false
	}
	if ha, hb := a.hash.Load(), b.hash.Load(); ha != 0 && hb != 0 && ha != hb {
		return false
	}
	if !a.head.Equal(b.head) {
		return false
	}
	for i := range a.args {
		if !a.args[i].Equal(b.args[i]) {
			return false
		}
	}
	return true
}

func (a *Apply) String() string {
	var b strings.Builder
	a.writeTo(&b)
	return b.String()
}

func (a *Apply) writeTo(b *strings.Builder) {
	writeExpr(b, a.head)
	b.WriteByte('[')
	for i, x := range a.args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeExpr(b, x)
	}
	b.WriteByte(']')
}

func writeExpr(b *strings.Builder, e Expr) {
	if a, ok := e.(*Apply); ok {
		a.writeTo(b)
		return
	}
	b.WriteString(e.String())
}

// Call is shorthand for NewApply with a symbol head.
func Call(head *Symbol, args ...Expr) *Apply {
	return NewApply(head, args...)
}

// List builds List[elems...].
func List(elems ...Expr) *Apply {
	return NewApply(SymList, elems...)
}

// AsApply returns e as an application whose head is sym.
func AsApply(e Expr, sym *Symbol) (*Apply, bool) {
	a, ok := e.(*Apply)
	if !ok || a.head != Expr(sym) {
		return nil, false
	}
	return a, true
}

// IsVoid reports whether e is the no-output sentinel.
func IsVoid(e Expr) bool {
	return e == nil || e == Expr(SymNull)
}

// Bool converts a Go boolean to True or False.
func Bool(b bool) *Symbol {
	if b {
		return SymTrue
	}
	return SymFalse
}

// IsTrue reports whether e is the symbol True.
func IsTrue(e Expr) bool { return e == Expr(SymTrue) }

// IsFalse reports whether e is the symbol False.
func IsFalse(e Expr) bool { return e == Expr(SymFalse) }

// FlattenSequences splices Sequence[...] arguments into the surrounding list.
// It returns args unchanged when no Sequence is present.
func FlattenSequences(args []Expr) ([]Expr, bool) {
	found := false
	for _, x := range args {
		if _, ok := AsApply(x, SymSequence); ok {
			found = true
			break
		}
	}
	if !found {
		return args, false
	}
	out := make([]Expr, 0, len(args))
	for _, x := range args {
		if s, ok := AsApply(x, SymSequence); ok {
			out = append(out, s.args...)
			continue
		}
		out = append(out, x)
	}
	return out, true
}
