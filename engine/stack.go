package engine

import "github.com/speakeasy-api/symcore"

// localFrame is one Block-local binding of a symbol. A frame without a
// value makes the symbol evaluate to itself.
type localFrame struct {
	value symcore.Expr
	set   bool
}

// localStack implements a LIFO stack of local frames for one symbol.
type localStack struct {
	data []localFrame
}

// push adds a frame to the top of the stack.
func (s *localStack) push(f localFrame) {
	s.data = append(s.data, f)
}

// pop removes and returns the top frame.
// Panics if stack is empty.
func (s *localStack) pop() localFrame {
	if len(s.data) == 0 {
		panic("local stack underflow")
	}
	f := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return f
}

// top returns a pointer to the top frame so it can be assigned in place.
func (s *localStack) top() *localFrame {
	if len(s.data) == 0 {
		panic("local stack underflow")
	}
	return &s.data[len(s.data)-1]
}

// empty checks if the stack is empty.
func (s *localStack) empty() bool {
	return len(s.data) == 0
}

// len returns the number of frames on the stack.
func (s *localStack) len() int {
	return len(s.data)
}

// locals owns the local-value stacks of every symbol scoped by Block.
type locals map[*symcore.Symbol]*localStack

func (l locals) push(sym *symcore.Symbol, f localFrame) {
	st, ok := l[sym]
	if !ok {
		st = &localStack{}
		l[sym] = st
	}
	st.push(f)
}

func (l locals) pop(sym *symcore.Symbol) {
	st, ok := l[sym]
	if !ok {
		return
	}
	st.pop()
	if st.empty() {
		delete(l, sym)
	}
}

// lookup returns the innermost frame for sym, if any.
func (l locals) lookup(sym *symcore.Symbol) (*localFrame, bool) {
	st, ok := l[sym]
	if !ok || st.empty() {
		return nil, false
	}
	return st.top(), true
}

// depth returns the total number of pushed frames.
func (l locals) depth() int {
	n := 0
	for _, st := range l {
		n += st.len()
	}
	return n
}
