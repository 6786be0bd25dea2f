// Package match implements structural pattern matching over symcore
// expressions: named and typed wildcards, sequence wildcards, commutative
// (Orderless) and associative (Flat) heads, and side conditions evaluated
// through an Evaluator with backtracking.
package match

import (
	"errors"

	"github.com/speakeasy-api/symcore"
)

// ErrNoEvaluator is returned when a condition must be tested but the
// matcher has no Evaluator.
var ErrNoEvaluator = errors.New("match: condition requires an evaluator")

// Evaluator is the engine side of matching.
type Evaluator interface {
	// Test evaluates cond and reports whether it reduced to True. Failures
	// that only reject the candidate are reported as false; a returned error
	// aborts the whole match.
	Test(cond symcore.Expr) (bool, error)
	// Checkpoint is called from every backtracking loop and returns an
	// error when matching must stop (e.g. cancellation).
	Checkpoint() error
}

// Matcher matches subjects against a fixed pattern and optional condition.
type Matcher struct {
	pattern   symcore.Expr
	condition symcore.Expr
	names     []*symcore.Symbol
}

// New returns a matcher for pattern.
func New(pattern symcore.Expr) *Matcher {
	return &Matcher{pattern: pattern, names: Names(pattern)}
}

// SetCondition sets the expression tested, with bindings substituted,
// after a structural match succeeds. A nil condition always passes.
func (m *Matcher) SetCondition(cond symcore.Expr) *Matcher {
	m.condition = cond
	return m
}

// Pattern returns the pattern.
func (m *Matcher) Pattern() symcore.Expr { return m.pattern }

// Match matches subject. It returns the bindings and true on success, or
// false when no assignment satisfies the pattern and condition. A non-nil
// error is always terminal.
func (m *Matcher) Match(ev Evaluator, subject symcore.Expr) (*Bindings, bool, error) {
	s := &state{ev: ev}
	ok, err := s.match(m.pattern, subject, func() (bool, error) {
		if m.condition == nil {
			return true, nil
		}
		return s.test(m.condition)
	})
	if err != nil || !ok {
		return nil, false, err
	}
	b := newBindings()
	for _, name := range m.names {
		if v, ok := s.lookup(name); ok {
			b.set(name.Name(), v)
		}
	}
	return b, true, nil
}

// Match is shorthand for New(pattern).SetCondition(condition).Match(ev, subject).
func Match(ev Evaluator, pattern, subject, condition symcore.Expr) (*Bindings, bool, error) {
	return New(pattern).SetCondition(condition).Match(ev, subject)
}

type binding struct {
	name  *symcore.Symbol
	value symcore.Expr
}

// cont is the rest of a match. It returns true when the whole match,
// including everything after the current element, succeeded.
type cont func() (bool, error)

type state struct {
	ev    Evaluator
	binds []binding
}

func (s *state) lookup(name *symcore.Symbol) (symcore.Expr, bool) {
	for i := len(s.binds) - 1; i >= 0; i-- {
		if s.binds[i].name == name {
			return s.binds[i].value, true
		}
	}
	return nil, false
}

func (s *state) checkpoint() error {
	if s.ev == nil {
		return nil
	}
	return s.ev.Checkpoint()
}

func (s *state) test(cond symcore.Expr) (bool, error) {
	if s.ev == nil {
		return false, ErrNoEvaluator
	}
	c := substitute(cond, s.lookup)
	return s.ev.Test(c)
}

// bind records name=v for the duration of k, keeping it on success.
func (s *state) bind(name *symcore.Symbol, v symcore.Expr, k cont) (bool, error) {
	if prev, ok := s.lookup(name); ok {
		if !prev.Equal(v) {
			return false, nil
		}
		return k()
	}
	s.binds = append(s.binds, binding{name: name, value: v})
	ok, err := k()
	if !ok || err != nil {
		s.binds = s.binds[:len(s.binds)-1]
	}
	return ok, err
}

func patternParts(a *symcore.Apply) (*symcore.Symbol, symcore.Expr, bool) {
	if a.Len() != 2 {
		return nil, nil, false
	}
	name, ok := a.Arg(0).(*symcore.Symbol)
	return name, a.Arg(1), ok
}

// headAllowed checks the optional head constraint of a Blank-like pattern.
func headAllowed(blank *symcore.Apply, e symcore.Expr) bool {
	if blank.Len() == 0 {
		return true
	}
	return blank.Arg(0).Equal(e.Head())
}

// match matches a single subject element.
func (s *state) match(p, subject symcore.Expr, k cont) (bool, error) {
	pa, ok := p.(*symcore.Apply)
	if !ok {
		if p.Equal(subject) {
			return k()
		}
		return false, nil
	}
	switch pa.Head() {
	case symcore.Expr(symcore.SymPattern):
		if name, sub, ok := patternParts(pa); ok {
			if prev, bound := s.lookup(name); bound {
				if !prev.Equal(subject) {
					return false, nil
				}
				return s.match(sub, subject, k)
			}
			return s.match(sub, subject, func() (bool, error) {
				return s.bind(name, subject, k)
			})
		}
	case symcore.Expr(symcore.SymBlank), symcore.Expr(symcore.SymBlankSequence),
		symcore.Expr(symcore.SymBlankNullSequence):
		if !headAllowed(pa, subject) {
			return false, nil
		}
		return k()
	case symcore.Expr(symcore.SymCondition):
		if pa.Len() == 2 {
			test := pa.Arg(1)
			return s.match(pa.Arg(0), subject, func() (bool, error) {
				ok, err := s.test(test)
				if err != nil || !ok {
					return false, err
				}
				return k()
			})
		}
	}

	sa, ok := subject.(*symcore.Apply)
	if !ok {
		return false, nil
	}
	return s.match(pa.Head(), sa.Head(), func() (bool, error) {
		return s.matchArgs(pa, sa, k)
	})
}

func (s *state) matchArgs(p, subject *symcore.Apply, k cont) (bool, error) {
	var attrs symcore.Attributes
	if hs, ok := subject.HeadSymbol(); ok {
		attrs = hs.Attributes()
	}
	ps, ss := p.Args(), subject.Args()
	flat := attrs.Has(symcore.Flat)

	if !flat && !hasSequence(ps) && len(ps) != len(ss) {
		return false, nil
	}
	if minRequired(ps) > len(ss) {
		return false, nil
	}
	if attrs.Has(symcore.Orderless) {
		used := make([]bool, len(ss))
		return s.orderless(ps, ss, used, subject.Head(), flat, k)
	}
	return s.sequence(ps, ss, subject.Head(), flat, k)
}

// seqMin reports the minimum length absorbed by a sequence pattern, looking
// through Pattern and Condition wrappers.
func seqMin(p symcore.Expr) (int, bool) {
	for {
		pa, ok := p.(*symcore.Apply)
		if !ok {
			return 0, false
		}
		switch pa.Head() {
		case symcore.Expr(symcore.SymBlankSequence):
			return 1, true
		case symcore.Expr(symcore.SymBlankNullSequence):
			return 0, true
		case symcore.Expr(symcore.SymPattern), symcore.Expr(symcore.SymCondition):
			if pa.Len() != 2 {
				return 0, false
			}
			if pa.Head() == symcore.Expr(symcore.SymPattern) {
				p = pa.Arg(1)
			} else {
				p = pa.Arg(0)
			}
		default:
			return 0, false
		}
	}
}

func hasSequence(ps []symcore.Expr) bool {
	for _, p := range ps {
		if _, ok := seqMin(p); ok {
			return true
		}
	}
	return false
}

func minRequired(ps []symcore.Expr) int {
	n := 0
	for _, p := range ps {
		if m, ok := seqMin(p); ok {
			n += m
			continue
		}
		n++
	}
	return n
}

// matchSequence matches a sequence pattern against a run of elements.
func (s *state) matchSequence(p symcore.Expr, elems []symcore.Expr, k cont) (bool, error) {
	pa := p.(*symcore.Apply)
	switch pa.Head() {
	case symcore.Expr(symcore.SymBlankSequence), symcore.Expr(symcore.SymBlankNullSequence):
		for _, e := range elems {
			if !headAllowed(pa, e) {
				return false, nil
			}
		}
		return k()
	case symcore.Expr(symcore.SymPattern):
		name, sub, _ := patternParts(pa)
		seq := symcore.Call(symcore.SymSequence, elems...)
		return s.matchSequence(sub, elems, func() (bool, error) {
			return s.bind(name, seq, k)
		})
	case symcore.Expr(symcore.SymCondition):
		test := pa.Arg(1)
		return s.matchSequence(pa.Arg(0), elems, func() (bool, error) {
			ok, err := s.test(test)
			if err != nil || !ok {
				return false, err
			}
			return k()
		})
	}
	return false, nil
}

// sequence matches pattern arguments against subject arguments in order.
func (s *state) sequence(ps, ss []symcore.Expr, head symcore.Expr, flat bool, k cont) (bool, error) {
	if len(ps) == 0 {
		if len(ss) == 0 {
			return k()
		}
		return false, nil
	}
	if err := s.checkpoint(); err != nil {
		return false, err
	}
	p, rest := ps[0], ps[1:]
	maxN := len(ss) - minRequired(rest)

	if minN, ok := seqMin(p); ok {
		for n := minN; n <= maxN; n++ {
			if err := s.checkpoint(); err != nil {
				return false, err
			}
			tail := ss[n:]
			ok, err := s.matchSequence(p, ss[:n], func() (bool, error) {
				return s.sequence(rest, tail, head, flat, k)
			})
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	if maxN < 1 {
		return false, nil
	}
	if !flat {
		maxN = 1
	}
	for n := 1; n <= maxN; n++ {
		if err := s.checkpoint(); err != nil {
			return false, err
		}
		var cand symcore.Expr = ss[0]
		if n > 1 {
			cand = symcore.NewApply(head, ss[:n]...)
		}
		tail := ss[n:]
		ok, err := s.match(p, cand, func() (bool, error) {
			return s.sequence(rest, tail, head, flat, k)
		})
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// orderless assigns unused subject arguments to pattern arguments in any
// order, backtracking over the choices.
func (s *state) orderless(ps, ss []symcore.Expr, used []bool, head symcore.Expr, flat bool, k cont) (bool, error) {
	free := make([]int, 0, len(ss))
	for i, u := range used {
		if !u {
			free = append(free, i)
		}
	}
	if len(ps) == 0 {
		if len(free) == 0 {
			return k()
		}
		return false, nil
	}
	if err := s.checkpoint(); err != nil {
		return false, err
	}
	p, rest := ps[0], ps[1:]
	maxN := len(free) - minRequired(rest)
	next := func() (bool, error) {
		return s.orderless(rest, ss, used, head, flat, k)
	}

	if minN, ok := seqMin(p); ok {
		for n := minN; n <= maxN; n++ {
			ok, err := s.combinations(free, n, func(pick []int) (bool, error) {
				elems := s.take(ss, used, pick)
				defer release(used, pick)
				return s.matchSequence(p, elems, next)
			})
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	if maxN < 1 {
		return false, nil
	}
	if !flat {
		var tried []symcore.Expr
		for _, j := range free {
			if err := s.checkpoint(); err != nil {
				return false, err
			}
			if containsEqual(tried, ss[j]) {
				continue
			}
			tried = append(tried, ss[j])
			used[j] = true
			ok, err := s.match(p, ss[j], next)
			used[j] = false
			if err != nil || ok {
				if ok {
					used[j] = true
				}
				return ok, err
			}
		}
		return false, nil
	}

	for n := 1; n <= maxN; n++ {
		ok, err := s.combinations(free, n, func(pick []int) (bool, error) {
			elems := s.take(ss, used, pick)
			var cand symcore.Expr = elems[0]
			if n > 1 {
				cand = symcore.NewApply(head, elems...)
			}
			ok, err := s.match(p, cand, next)
			if !ok || err != nil {
				release(used, pick)
			}
			return ok, err
		})
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (s *state) take(ss []symcore.Expr, used []bool, pick []int) []symcore.Expr {
	elems := make([]symcore.Expr, len(pick))
	for i, j := range pick {
		used[j] = true
		elems[i] = ss[j]
	}
	return elems
}

func release(used []bool, pick []int) {
	for _, j := range pick {
		used[j] = false
	}
}

// combinations calls fn with every size-n subset of idx in lexicographic
// order until fn succeeds or fails terminally.
func (s *state) combinations(idx []int, n int, fn func([]int) (bool, error)) (bool, error) {
	pick := make([]int, 0, n)
	var rec func(start int) (bool, error)
	rec = func(start int) (bool, error) {
		if len(pick) == n {
			if err := s.checkpoint(); err != nil {
				return false, err
			}
			cp := make([]int, n)
			copy(cp, pick)
			return fn(cp)
		}
		for i := start; i <= len(idx)-(n-len(pick)); i++ {
			pick = append(pick, idx[i])
			ok, err := rec(i + 1)
			pick = pick[:len(pick)-1]
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return rec(0)
}

func containsEqual(xs []symcore.Expr, e symcore.Expr) bool {
	for _, x := range xs {
		if x.Equal(e) {
			return true
		}
	}
	return false
}
