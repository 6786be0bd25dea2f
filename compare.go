package symcore

import (
	"math/big"
	"sort"
	"strings"
)

// kindRank orders kinds for canonical sorting: numbers, strings, symbols,
// applications.
func kindRank(e Expr) int {
	switch e.Kind() {
	case KindInteger, KindReal:
		return 0
	case KindString:
		return 1
	case KindSymbol:
		return 2
	default:
		return 3
	}
}

// IsNumber reports whether e is an Integer or Real atom.
func IsNumber(e Expr) bool {
	k := e.Kind()
	return k == KindInteger || k == KindReal
}

// NumberValue returns a numeric atom as a big.Float.
func NumberValue(e Expr) (*big.Float, bool) {
	switch x := e.(type) {
	case Integer:
		return new(big.Float).SetInt(x.big()), true
	case Real:
		f := float64(x)
		if f != f {
			return nil, false
		}
		return big.NewFloat(f), true
	}
	return nil, false
}

// Compare defines the canonical order of expressions used to normalize the
// arguments of Orderless heads. It returns -1, 0 or 1.
func Compare(a, b Expr) int {
	if ra, rb := kindRank(a), kindRank(b); ra != rb {
		return cmpInt(ra, rb)
	}
	switch x := a.(type) {
	case Integer, Real:
		fa, oka := NumberValue(a)
		fb, okb := NumberValue(b)
		if oka && okb {
			if c := fa.Cmp(fb); c != 0 {
				return c
			}
		}
		// Equal values: integers sort before reals.
		return cmpInt(int(a.Kind()), int(b.Kind()))
	case Str:
		return strings.Compare(string(x), string(b.(Str)))
	case *Symbol:
		return strings.Compare(x.name, b.(*Symbol).name)
	case *Apply:
		y := b.(*Apply)
		if c := Compare(x.head, y.head); c != 0 {
			return c
		}
		for i := 0; i < len(x.args) && i < len(y.args); i++ {
			if c := Compare(x.args[i], y.args[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(x.args), len(y.args))
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortArgs returns the application with its arguments in canonical order,
// or a itself when they already are.
func SortArgs(a *Apply) *Apply {
	if sort.SliceIsSorted(a.args, func(i, j int) bool { return Compare(a.args[i], a.args[j]) < 0 }) {
		return a
	}
	args := a.Args()
	sort.SliceStable(args, func(i, j int) bool { return Compare(args[i], args[j]) < 0 })
	return newApplyOwned(a.head, args)
}

// Flatten splices nested applications of a's own head into a's arguments,
// one level deep per nested node, recursively.
func Flatten(a *Apply) *Apply {
	nested := false
	for _, x := range a.args {
		if b, ok := x.(*Apply); ok && b.head.Equal(a.head) {
			nested = true
			break
		}
	}
	if !nested {
		return a
	}
	args := make([]Expr, 0, len(a.args)+4)
	var walk func(xs []Expr)
	walk = func(xs []Expr) {
		for _, x := range xs {
			if b, ok := x.(*Apply); ok && b.head.Equal(a.head) {
				walk(b.args)
				continue
			}
			args = append(args, x)
		}
	}
	walk(a.args)
	return newApplyOwned(a.head, args)
}
