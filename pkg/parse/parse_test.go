package parse

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/speakeasy-api/symcore"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Atoms
		{"integer", "42", "42"},
		{"real", "1.5e3", "1.5e3"},
		{"string", `"a\"b"`, `"a\"b"`},
		{"dollar symbol", "$x", "$x"},
		{"comment", "(* c (* nested *) *) 1 + 1", "Plus[1,1]"},

		// Calls and lists
		{"call", "f[a, b]", "f[a,b]"},
		{"empty call", "f[]", "f[]"},
		{"curried call", "f[g][x]", "f[g][x]"},
		{"list", `{1, 2.5, "s"}`, `List[1,2.5,"s"]`},

		// Operators
		{"precedence", "a + b * c", "Plus[a,Times[b,c]]"},
		{"n-ary plus", "a + b + c", "Plus[a,b,c]"},
		{"grouping stops merging", "(a + b) + c", "Plus[Plus[a,b],c]"},
		{"subtraction", "a - b", "Plus[a,Times[-1,b]]"},
		{"subtract literal", "a - 2", "Plus[a,-2]"},
		{"division", "a / b", "Times[a,Power[b,-1]]"},
		{"negation", "-x", "Times[-1,x]"},
		{"negative literal", "-3", "-3"},
		{"power is right associative", "a ^ b ^ c", "Power[a,Power[b,c]]"},
		{"negative exponent", "2^-1", "Power[2,-1]"},
		{"comparison chain", "a == b == c", "Equal[a,b,c]"},
		{"sameq", "a === b", "SameQ[a,b]"},
		{"unsameq", "a =!= b", "UnsameQ[a,b]"},
		{"not binds tighter than and", "!a && b", "And[Not[a],b]"},
		{"and binds tighter than or", "a || b && c", "Or[a,And[b,c]]"},
		{"set is right associative", "x = y = 1", "Set[x,Set[y,1]]"},
		{"compound", "a; b", "CompoundExpression[a,b]"},
		{"trailing semicolon", "a; b;", "CompoundExpression[a,b,Null]"},

		// Patterns
		{"named blank", "x_", "Pattern[x,Blank[]]"},
		{"typed blank", "x_Integer", "Pattern[x,Blank[Integer]]"},
		{"anonymous blank", "_h", "Blank[h]"},
		{"blank sequence", "__", "BlankSequence[]"},
		{"null sequence", "y___", "Pattern[y,BlankNullSequence[]]"},
		{
			"definition with condition",
			"f[x_] := x /; x > 0",
			"SetDelayed[f[Pattern[x,Blank[]]],Condition[x,Greater[x,0]]]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, n.String()); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseRelaxed(t *testing.T) {
	n, err := Parse("f(a, g(b))", Options{Relaxed: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := n.String(); got != "f[a,g[b]]" {
		t.Errorf("got %s", got)
	}

	if _, err := Parse("f(a)"); err == nil {
		t.Error("strict mode must reject f(a)")
	}
	if _, err := Parse("f (a)", Options{Relaxed: true}); err == nil {
		t.Error("a space must separate f from (a)")
	}

	tab := symcore.NewTable()
	x, err := ParseExpr(tab, "block[{x}, x]", Options{Relaxed: true})
	if err != nil {
		t.Fatal(err)
	}
	if h, _ := x.(*symcore.Apply).HeadSymbol(); h != symcore.SymBlock {
		t.Errorf("relaxed head = %v, want Block", h)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
		msg    string
	}{
		{"empty", "", 1, 1, "empty input"},
		{"only comment", "(* nothing *)", 1, 1, "empty input"},
		{"unclosed call", "f[a", 1, 4, `expected "]", found end of input`},
		{"dangling operator", "1 +", 1, 4, "unexpected end of input"},
		{"bad character", "a\n  @", 2, 3, `unexpected character '@'`},
		{"unterminated string", `"abc`, 1, 1, "unterminated string"},
		{"unterminated comment", "1 (* x", 1, 3, "unterminated comment"},
		{"too many blanks", "x____", 1, 1, "too many blanks in pattern"},
		{"trailing input", "a b", 1, 3, `unexpected "b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *Error, got %v", err)
			}
			got := struct {
				Line, Column int
				Msg          string
			}{pe.Line, pe.Column, pe.Msg}
			want := struct {
				Line, Column int
				Msg          string
			}{tt.line, tt.column, tt.msg}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
