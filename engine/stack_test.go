package engine

import (
	"testing"

	"github.com/speakeasy-api/symcore"
)

func TestLocalsLIFO(t *testing.T) {
	tab := symcore.NewTable()
	x, y := tab.Intern("x"), tab.Intern("y")
	l := make(locals)

	l.push(x, localFrame{value: symcore.Int(1), set: true})
	l.push(y, localFrame{})
	l.push(x, localFrame{value: symcore.Int(2), set: true})

	if f, ok := l.lookup(x); !ok || !f.value.Equal(symcore.Int(2)) {
		t.Fatalf("lookup(x) = %+v, %v", f, ok)
	}
	if f, ok := l.lookup(y); !ok || f.set {
		t.Fatalf("lookup(y) = %+v, %v", f, ok)
	}
	if d := l.depth(); d != 3 {
		t.Errorf("depth = %d, want 3", d)
	}

	f, _ := l.lookup(x)
	f.value = symcore.Int(9)
	if g, _ := l.lookup(x); !g.value.Equal(symcore.Int(9)) {
		t.Error("frames must be assignable in place")
	}

	l.pop(x)
	if f, ok := l.lookup(x); !ok || !f.value.Equal(symcore.Int(1)) {
		t.Errorf("after pop lookup(x) = %+v, %v", f, ok)
	}
	l.pop(x)
	l.pop(y)
	if _, ok := l.lookup(x); ok {
		t.Error("x still has a frame")
	}
	if len(l) != 0 {
		t.Errorf("empty stacks were not removed: %d left", len(l))
	}
}

func TestLocalStackUnderflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic on underflow")
		}
	}()
	var s localStack
	s.pop()
}
