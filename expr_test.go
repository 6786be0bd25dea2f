package symcore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExprString(t *testing.T) {
	tab := NewTable()
	f, a, b := tab.Intern("f"), tab.Intern("a"), tab.Intern("b")
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"integer", Int(-42), "-42"},
		{"big integer", NewBigInteger(big1), "123456789012345678901234567890"},
		{"real", Real(2.5), "2.5"},
		{"whole real", Real(2), "2."},
		{"string", Str(`a"b`), `"a\"b"`},
		{"symbol", a, "a"},
		{"apply", Call(f, a, Int(1)), "f[a,1]"},
		{"nested head", NewApply(Call(f, a), b), "f[a][b]"},
		{"empty list", List(), "List[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExprEqual(t *testing.T) {
	tab := NewTable()
	f, g, x := tab.Intern("f"), tab.Intern("g"), tab.Intern("x")

	tests := []struct {
		name string
		a, b Expr
		want bool
	}{
		{"same integers", Int(3), Int(3), true},
		{"integer vs real", Int(3), Real(3), false},
		{"strings", Str("x"), Str("x"), true},
		{"string vs symbol", Str("x"), x, false},
		{"interned symbols", x, tab.Intern("x"), true},
		{"applications", Call(f, x, Int(1)), Call(f, x, Int(1)), true},
		{"different heads", Call(f, x), Call(g, x), false},
		{"different arity", Call(f, x), Call(f, x, x), false},
		{"different args", Call(f, Int(1)), Call(f, Int(2)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if tt.want && Hash(tt.a) != Hash(tt.b) {
				t.Errorf("equal expressions hash differently: %s, %s", tt.a, tt.b)
			}
		})
	}
}

func TestEqualUsesCachedHash(t *testing.T) {
	tab := NewTable()
	f := tab.Intern("f")
	a := Call(f, Int(1))
	b := Call(f, Int(2))
	Hash(a)
	Hash(b)
	if a.Equal(b) {
		t.Fatal("expected hashed applications with different args to differ")
	}
	if !a.Equal(Call(f, Int(1))) {
		t.Fatal("expected equal applications to compare equal after hashing")
	}
}

func TestRebuildSharesChildren(t *testing.T) {
	tab := NewTable()
	f, g := tab.Intern("f"), tab.Intern("g")
	inner := Call(g, Int(1))
	a := Call(f, inner, Int(2))

	if a.WithArg(0, inner) != a {
		t.Error("WithArg with the same child should return the receiver")
	}
	b := a.WithArg(1, Int(3))
	if b.Arg(0) != Expr(inner) {
		t.Error("WithArg should share unchanged children")
	}
	if a.Arg(1).(Integer).String() != "2" {
		t.Error("WithArg must not modify the original")
	}

	args := a.Args()
	args[0] = Int(0)
	if a.Arg(0) != Expr(inner) {
		t.Error("Args must return a copy")
	}
}

func TestFlattenSequences(t *testing.T) {
	tab := NewTable()
	a, b, c := tab.Intern("a"), tab.Intern("b"), tab.Intern("c")

	in := []Expr{a, Call(SymSequence, b, c), Call(SymSequence), a}
	got, changed := FlattenSequences(in)
	if !changed {
		t.Fatal("expected a change")
	}
	want := List(a, b, c, a)
	if !List(got...).Equal(want) {
		t.Errorf("got %s, want %s", List(got...), want)
	}

	same := []Expr{a, b}
	if _, changed := FlattenSequences(same); changed {
		t.Error("expected no change without Sequence")
	}
}

func TestCompareAndSort(t *testing.T) {
	tab := NewTable()
	f, a, b := tab.Intern("f"), tab.Intern("a"), tab.Intern("b")

	in := Call(SymPlus, Call(f, a), b, Str("s"), a, Real(1.5), Int(2), Int(1))
	got := SortArgs(in)
	want := Call(SymPlus, Int(1), Real(1.5), Int(2), Str("s"), a, b, Call(f, a))
	if !got.Equal(want) {
		t.Errorf("SortArgs = %s, want %s", got, want)
	}
	if SortArgs(want) != want {
		t.Error("SortArgs of sorted args should return the receiver")
	}
	if c := Compare(Int(1), Real(1)); c != -1 {
		t.Errorf("Compare(1, 1.) = %d, want -1", c)
	}
}

func TestFlatten(t *testing.T) {
	tab := NewTable()
	f, g, a, b, c := tab.Intern("f"), tab.Intern("g"), tab.Intern("a"), tab.Intern("b"), tab.Intern("c")

	in := Call(f, a, Call(f, b, Call(f, c)), Call(g, a))
	want := Call(f, a, b, c, Call(g, a))
	if got := Flatten(in); !got.Equal(want) {
		t.Errorf("Flatten = %s, want %s", got, want)
	}
}

func TestSymbolTable(t *testing.T) {
	tab := NewTable()

	if s, ok := tab.Lookup("Plus"); !ok || s != SymPlus {
		t.Fatal("expected system symbol Plus in a new table")
	}
	if tab.Intern("x") != tab.Intern("x") {
		t.Fatal("Intern must return the same symbol for the same name")
	}
	if s, ok := tab.LookupFold("block"); !ok || s != SymBlock {
		t.Errorf("LookupFold(block) = %v, want Block", s)
	}

	f, err := tab.Declare("f", Orderless, Flat)
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if !f.Attributes().Has(Orderless | Flat) {
		t.Errorf("attributes = %s", f.Attributes())
	}
	if _, err := tab.Declare("Plus", Listable); !errors.Is(err, ErrProtected) {
		t.Errorf("redeclaring a system symbol: err = %v, want ErrProtected", err)
	}

	tab.Seal()
	if _, err := tab.Declare("f", Orderless, Flat); err != nil {
		t.Errorf("identical redeclaration after Seal: %v", err)
	}
	if _, err := tab.Declare("f", Listable); !errors.Is(err, ErrSealed) {
		t.Errorf("changing attributes after Seal: err = %v, want ErrSealed", err)
	}
	if _, err := tab.Declare("g", Listable); !errors.Is(err, ErrSealed) {
		t.Errorf("new declaration after Seal: err = %v, want ErrSealed", err)
	}
}

func TestSymbolDefinitions(t *testing.T) {
	tab := NewTable()
	x, f := tab.Intern("x"), tab.Intern("f")

	if err := SymPlus.SetValue(Int(1)); !errors.Is(err, ErrProtected) {
		t.Errorf("SetValue on Plus: err = %v, want ErrProtected", err)
	}
	if err := x.SetValue(Int(5)); err != nil {
		t.Fatal(err)
	}
	if v, ok := x.Value(); !ok || !v.Equal(Int(5)) {
		t.Errorf("Value() = %v, %v", v, ok)
	}

	lhs := Call(f, Int(0))
	if err := f.AddRule(Rule{LHS: lhs, RHS: Int(1)}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddRule(Rule{LHS: Call(f, Int(1)), RHS: Int(1)}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddRule(Rule{LHS: lhs, RHS: Int(7)}); err != nil {
		t.Fatal(err)
	}
	rules := f.Rules()
	if len(rules) != 2 {
		t.Fatalf("len(Rules()) = %d, want 2", len(rules))
	}
	if !rules[0].RHS.Equal(Int(7)) {
		t.Errorf("redefinition should replace in place, got %s", rules[0].RHS)
	}

	f.Clear()
	x.Clear()
	if len(f.Rules()) != 0 {
		t.Error("Clear should remove rules")
	}
	if _, ok := x.Value(); ok {
		t.Error("Clear should remove the value")
	}
}

func TestAttributes(t *testing.T) {
	a := HoldAll | Orderless | Protected
	want := []string{"HoldAll", "Orderless", "Protected"}
	if diff := cmp.Diff(want, a.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if !HoldFirst.HoldsArg(0) || HoldFirst.HoldsArg(1) {
		t.Error("HoldFirst should hold only the first argument")
	}
	if HoldRest.HoldsArg(0) || !HoldRest.HoldsArg(3) {
		t.Error("HoldRest should hold all but the first argument")
	}
	got, err := ParseAttribute("orderless")
	if err != nil || got != Orderless {
		t.Errorf("ParseAttribute(orderless) = %v, %v", got, err)
	}
	if _, err := ParseAttribute("Sticky"); err == nil {
		t.Error("expected an error for an unknown attribute")
	}
}

func TestFingerprinter(t *testing.T) {
	tab := NewTable()
	f := tab.Intern("f")
	fp := NewFingerprinter(2)

	a := fp.Fingerprint(Call(f, Int(1)))
	b := fp.Fingerprint(Call(f, Int(1)))
	c := fp.Fingerprint(Call(f, Str("1")))
	if a != b {
		t.Errorf("equal expressions fingerprint differently:\n  %s\n  %s", a, b)
	}
	if a == c {
		t.Error("Integer 1 and String \"1\" must fingerprint differently")
	}
	if len(a) != 64 {
		t.Errorf("expected a sha256 hex digest, got %q", a)
	}
	if got := fp.Fingerprint(nil); got != "void" {
		t.Errorf("Fingerprint(nil) = %q", got)
	}
	fp.Reset()
	if got := fp.Fingerprint(Call(f, Int(1))); got != a {
		t.Error("fingerprint changed after Reset")
	}
}
