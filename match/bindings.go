package match

import (
	"iter"
	"strings"

	"github.com/speakeasy-api/openapi/sequencedmap"

	"github.com/speakeasy-api/symcore"
)

// Bindings maps pattern variable names to the subjects they matched, in
// the order the variables first appear in a pre-order walk of the pattern.
type Bindings struct {
	m *sequencedmap.Map[string, symcore.Expr]
}

func newBindings() *Bindings {
	return &Bindings{m: sequencedmap.New[string, symcore.Expr]()}
}

// Get returns the value bound to name.
func (b *Bindings) Get(name string) (symcore.Expr, bool) {
	if b == nil {
		return nil, false
	}
	return b.m.Get(name)
}

// Len returns the number of bound variables.
func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return b.m.Len()
}

// All iterates over the bindings in pattern order.
func (b *Bindings) All() iter.Seq2[string, symcore.Expr] {
	return func(yield func(string, symcore.Expr) bool) {
		if b == nil {
			return
		}
		for k, v := range b.m.All() {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Names returns the bound variable names in pattern order.
func (b *Bindings) Names() []string {
	names := make([]string, 0, b.Len())
	for k := range b.All() {
		names = append(names, k)
	}
	return names
}

// Values returns the bound values in pattern order.
func (b *Bindings) Values() []symcore.Expr {
	vals := make([]symcore.Expr, 0, b.Len())
	for _, v := range b.All() {
		vals = append(vals, v)
	}
	return vals
}

// String renders the bindings as [x=2, y=a].
func (b *Bindings) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	i := 0
	for k, v := range b.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v.String())
		i++
	}
	sb.WriteByte(']')
	return sb.String()
}

func (b *Bindings) set(name string, v symcore.Expr) {
	b.m.Set(name, v)
}
