package match

import "github.com/speakeasy-api/symcore"

// Substitute replaces every symbol bound in b by its value. Bound
// Sequence[...] values used directly as arguments are spliced. Subtrees
// without bound symbols are shared with e.
func Substitute(e symcore.Expr, b *Bindings) symcore.Expr {
	if b.Len() == 0 {
		return e
	}
	return substitute(e, func(s *symcore.Symbol) (symcore.Expr, bool) {
		return b.Get(s.Name())
	})
}

func substitute(e symcore.Expr, lookup func(*symcore.Symbol) (symcore.Expr, bool)) symcore.Expr {
	switch x := e.(type) {
	case *symcore.Symbol:
		if v, ok := lookup(x); ok {
			return v
		}
		return x
	case *symcore.Apply:
		head := substitute(x.Head(), lookup)
		var args []symcore.Expr
		for i := 0; i < x.Len(); i++ {
			arg := x.Arg(i)
			sub := substitute(arg, lookup)
			if args == nil && sub == arg {
				continue
			}
			if args == nil {
				args = make([]symcore.Expr, 0, x.Len())
				for j := 0; j < i; j++ {
					args = append(args, x.Arg(j))
				}
			}
			if _, isSym := arg.(*symcore.Symbol); isSym {
				if seq, ok := symcore.AsApply(sub, symcore.SymSequence); ok {
					args = append(args, seq.Args()...)
					continue
				}
			}
			args = append(args, sub)
		}
		if args == nil {
			if head == x.Head() {
				return x
			}
			return x.WithHead(head)
		}
		return symcore.NewApply(head, args...)
	default:
		return e
	}
}

// Names returns the pattern variables of p in pre-order, without duplicates.
func Names(p symcore.Expr) []*symcore.Symbol {
	var names []*symcore.Symbol
	seen := make(map[*symcore.Symbol]bool)
	var walk func(e symcore.Expr)
	walk = func(e symcore.Expr) {
		a, ok := e.(*symcore.Apply)
		if !ok {
			return
		}
		if pa, ok := symcore.AsApply(a, symcore.SymPattern); ok && pa.Len() == 2 {
			if s, ok := pa.Arg(0).(*symcore.Symbol); ok && !seen[s] {
				seen[s] = true
				names = append(names, s)
			}
			walk(pa.Arg(1))
			return
		}
		walk(a.Head())
		for i := 0; i < a.Len(); i++ {
			walk(a.Arg(i))
		}
	}
	walk(p)
	return names
}

// HasPattern reports whether e contains any pattern construct.
func HasPattern(e symcore.Expr) bool {
	a, ok := e.(*symcore.Apply)
	if !ok {
		return false
	}
	switch a.Head() {
	case symcore.Expr(symcore.SymPattern), symcore.Expr(symcore.SymBlank),
		symcore.Expr(symcore.SymBlankSequence), symcore.Expr(symcore.SymBlankNullSequence),
		symcore.Expr(symcore.SymCondition):
		return true
	}
	if HasPattern(a.Head()) {
		return true
	}
	for i := 0; i < a.Len(); i++ {
		if HasPattern(a.Arg(i)) {
			return true
		}
	}
	return false
}
