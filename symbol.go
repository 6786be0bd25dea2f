package symcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrSealed is returned when attributes are redeclared after setup.
var ErrSealed = errors.New("symbol table is sealed")

// ErrProtected is returned when a definition targets a protected symbol.
var ErrProtected = errors.New("symbol is protected")

// Rule is a downvalue: when an application matches LHS and the optional
// Condition evaluates to True, it is rewritten to RHS.
type Rule struct {
	LHS       Expr
	Condition Expr
	RHS       Expr
}

func (r Rule) sameLeft(o Rule) bool {
	if !r.LHS.Equal(o.LHS) {
		return false
	}
	if r.Condition == nil || o.Condition == nil {
		return r.Condition == nil && o.Condition == nil
	}
	return r.Condition.Equal(o.Condition)
}

// Symbol is an interned name. Symbols are shared by every evaluation of a
// table; local (Block) values live in the evaluating engine, not here.
type Symbol struct {
	name   string
	attrs  Attributes
	system bool

	mu    sync.RWMutex
	value Expr
	rules []Rule
}

func newSymbol(name string, attrs Attributes, system bool) *Symbol {
	return &Symbol{name: name, attrs: attrs, system: system}
}

func (s *Symbol) Kind() Kind        { return KindSymbol }
func (s *Symbol) Head() Expr        { return SymSymbol }
func (s *Symbol) String() string    { return s.name }
func (s *Symbol) Equal(o Expr) bool { return o == Expr(s) }

// Name returns the symbol name.
func (s *Symbol) Name() string { return s.name }

// Attributes returns the evaluation attributes.
func (s *Symbol) Attributes() Attributes { return s.attrs }

// IsSystem reports whether the symbol is predefined by the package.
func (s *Symbol) IsSystem() bool { return s.system }

// Value returns the global value.
func (s *Symbol) Value() (Expr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.value != nil
}

// SetValue assigns the global value. A nil value clears it.
func (s *Symbol) SetValue(v Expr) error {
	if s.attrs.Has(Protected) {
		return fmt.Errorf("set %s: %w", s.name, ErrProtected)
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	return nil
}

// Rules returns a snapshot of the downvalue rules in registration order.
func (s *Symbol) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rules) == 0 {
		return nil
	}
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// AddRule registers a downvalue. A rule whose left side and condition equal
// an existing rule replaces it in place; otherwise it is appended.
func (s *Symbol) AddRule(r Rule) error {
	if s.attrs.Has(Protected) {
		return fmt.Errorf("define %s: %w", s.name, ErrProtected)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].sameLeft(r) {
			s.rules[i] = r
			return nil
		}
	}
	s.rules = append(s.rules, r)
	return nil
}

// Clear removes the global value and all rules.
func (s *Symbol) Clear() {
	s.mu.Lock()
	s.value = nil
	s.rules = nil
	s.mu.Unlock()
}

// Table interns symbols by name. It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	symbols map[string]*Symbol
	folded  map[string]*Symbol
	sealed  bool
}

// NewTable returns a table holding the system symbols.
func NewTable() *Table {
	t := &Table{
		symbols: make(map[string]*Symbol, len(systemSymbols)+64),
		folded:  make(map[string]*Symbol, len(systemSymbols)+64),
	}
	for _, s := range systemSymbols {
		t.add(s)
	}
	return t
}

func (t *Table) add(s *Symbol) {
	t.symbols[s.name] = s
	key := strings.ToLower(s.name)
	if prev, ok := t.folded[key]; !ok || (!prev.system && s.system) {
		t.folded[key] = s
	}
}

// Intern returns the symbol named name, creating it if needed.
func (t *Table) Intern(name string) *Symbol {
	t.mu.RLock()
	s, ok := t.symbols[name]
	t.mu.RUnlock()
	if ok {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.symbols[name]; ok {
		return s
	}
	s = newSymbol(name, NoAttributes, false)
	t.add(s)
	return s
}

// Lookup returns an existing symbol.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.symbols[name]
	return s, ok
}

// LookupFold returns an existing symbol matching name case-insensitively,
// preferring system symbols.
func (t *Table) LookupFold(name string) (*Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.symbols[name]; ok {
		return s, true
	}
	s, ok := t.folded[strings.ToLower(name)]
	return s, ok
}

// Declare creates a symbol with the given attributes. Redeclaring an
// existing symbol with identical attributes is a no-op. Changing them is
// only allowed during setup, before Seal and before any evaluation reads
// the symbol, and never for system symbols.
func (t *Table) Declare(name string, attrs ...Attributes) (*Symbol, error) {
	var a Attributes
	for _, x := range attrs {
		a |= x
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.symbols[name]; ok {
		if s.attrs == a {
			return s, nil
		}
		if t.sealed {
			return nil, fmt.Errorf("declare %s: %w", name, ErrSealed)
		}
		if s.system {
			return nil, fmt.Errorf("declare %s: %w", name, ErrProtected)
		}
		s.attrs = a
		return s, nil
	}
	if t.sealed {
		return nil, fmt.Errorf("declare %s: %w", name, ErrSealed)
	}
	s := newSymbol(name, a, false)
	t.add(s)
	return s, nil
}

// Seal freezes attribute declarations.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// Names returns all symbol names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.symbols))
	for n := range t.symbols {
		names = append(names, n)
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}
