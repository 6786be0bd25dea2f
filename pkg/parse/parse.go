// Package parse reads the surface syntax into symcore syntax trees.
//
// The grammar covers what the engine needs to be driven from text:
//
//	f[a, b]   {a, b}   (a)   "str"   12   1.5   x   $x
//	x_  x_h  _  _h  x__  x___         patterns
//	a + b   a - b   a * b   a / b   a ^ b   -a
//	a == b   a != b   a < b   a > b   a === b   a =!= b
//	!a   a && b   a || b   p /; cond   x = v   f[x_] := rhs   a; b
//	(* comments *)
//
// In relaxed mode f(a, b) is also accepted as a call.
package parse

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/symcore"
)

// Options configures parsing.
type Options struct {
	// Relaxed accepts f(a, b) call syntax in addition to f[a, b].
	Relaxed bool
}

// Error is a syntax error at a position of the source.
type Error struct {
	Offset int // Byte offset
	Line   int // 1-based
	Column int // 1-based, in bytes
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

func newError(src string, offset int, msg string) *Error {
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if i := strings.LastIndexByte(src[:offset], '\n'); i >= 0 {
		col = offset - i
	}
	return &Error{Offset: offset, Line: line, Column: col, Msg: msg}
}

// Parse parses src into a syntax tree.
func Parse(src string, opts ...Options) (*symcore.Node, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, opts: opt, grouped: make(map[*symcore.Node]bool)}
	if p.peek().kind == tokEOF {
		return nil, newError(src, 0, "empty input")
	}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return n, nil
}

// ParseExpr parses src and converts it into an expression interned in t.
// Relaxed mode also resolves symbol names case-insensitively.
func ParseExpr(t *symcore.Table, src string, opts ...Options) (symcore.Expr, error) {
	n, err := Parse(src, opts...)
	if err != nil {
		return nil, err
	}
	var relaxed bool
	if len(opts) > 0 {
		relaxed = opts[0].Relaxed
	}
	return symcore.Convert(t, n, symcore.ConvertOptions{Relaxed: relaxed})
}

type assoc int

const (
	assocLeft assoc = iota
	assocRight
)

type infixOp struct {
	bp    int
	assoc assoc
	head  string
	nary  bool // a op b op c builds one application
}

var infixOps = map[string]infixOp{
	";":   {bp: 10, head: "CompoundExpression", nary: true},
	"=":   {bp: 40, assoc: assocRight, head: "Set"},
	":=":  {bp: 40, assoc: assocRight, head: "SetDelayed"},
	"/;":  {bp: 130, head: "Condition"},
	"||":  {bp: 215, head: "Or", nary: true},
	"&&":  {bp: 220, head: "And", nary: true},
	"==":  {bp: 290, head: "Equal", nary: true},
	"!=":  {bp: 290, head: "Unequal", nary: true},
	"<":   {bp: 290, head: "Less", nary: true},
	">":   {bp: 290, head: "Greater", nary: true},
	"===": {bp: 290, head: "SameQ", nary: true},
	"=!=": {bp: 290, head: "UnsameQ", nary: true},
	"+":   {bp: 310, head: "Plus", nary: true},
	"-":   {bp: 310, head: "Plus", nary: true},
	"*":   {bp: 400, head: "Times", nary: true},
	"/":   {bp: 400, head: "Times", nary: true},
	"^":   {bp: 590, assoc: assocRight, head: "Power"},
}

const (
	bpNot    = 230
	bpNegate = 480
)

type parser struct {
	src  string
	toks []token
	pos  int
	opts Options

	// Nodes written in parentheses are never merged into an n-ary parent.
	grouped map[*symcore.Node]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return newError(p.src, t.pos, fmt.Sprintf(format, args...))
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) expect(text string) error {
	if !p.isOp(text) {
		t := p.peek()
		return p.errorf(t, "expected %q, found %s", text, t)
	}
	p.advance()
	return nil
}

// closes reports whether the next token ends an expression list.
func (p *parser) closes() bool {
	t := p.peek()
	if t.kind == tokEOF {
		return true
	}
	return t.kind == tokOp && (t.text == ")" || t.text == "]" || t.text == "}" || t.text == ",")
}

func (p *parser) expr(minBP int) (*symcore.Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		op, ok := infixOps[t.text]
		if !ok || op.bp <= minBP {
			return left, nil
		}
		p.advance()

		if t.text == ";" && p.closes() {
			left = p.merge(op.head, left, symcore.SymbolNode("Null"))
			continue
		}

		rbp := op.bp
		if op.assoc == assocRight {
			rbp--
		}
		right, err := p.expr(rbp)
		if err != nil {
			return nil, err
		}
		switch t.text {
		case "-":
			right = negate(right)
		case "/":
			right = symcore.CallNode("Power", right, symcore.IntegerNode("-1"))
		}
		if op.nary {
			left = p.merge(op.head, left, right)
		} else {
			left = symcore.CallNode(op.head, left, right)
		}
	}
}

// merge appends right to left when left is an ungrouped application of head.
func (p *parser) merge(head string, left, right *symcore.Node) *symcore.Node {
	if isCall(left, head) && !p.grouped[left] {
		children := append(append([]*symcore.Node(nil), left.Children...), right)
		return symcore.CallNode(head, children...)
	}
	return symcore.CallNode(head, left, right)
}

func isCall(n *symcore.Node, head string) bool {
	return n.Kind == symcore.NodeComposite && n.Head != nil &&
		n.Head.Kind == symcore.NodeSymbol && n.Head.Value == head
}

// negate folds the sign into numeric literals and wraps anything else in
// Times[-1, x].
func negate(n *symcore.Node) *symcore.Node {
	switch n.Kind {
	case symcore.NodeInteger, symcore.NodeReal:
		if strings.HasPrefix(n.Value, "-") {
			return &symcore.Node{Kind: n.Kind, Value: n.Value[1:]}
		}
		return &symcore.Node{Kind: n.Kind, Value: "-" + n.Value}
	}
	return symcore.CallNode("Times", symcore.IntegerNode("-1"), n)
}

func (p *parser) prefix() (*symcore.Node, error) {
	t := p.peek()
	if t.kind == tokOp {
		switch t.text {
		case "-":
			p.advance()
			n, err := p.expr(bpNegate)
			if err != nil {
				return nil, err
			}
			return negate(n), nil
		case "+":
			p.advance()
			return p.expr(bpNegate)
		case "!":
			p.advance()
			n, err := p.expr(bpNot)
			if err != nil {
				return nil, err
			}
			return symcore.CallNode("Not", n), nil
		}
	}
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	return p.postfix(n)
}

// postfix parses call brackets following an expression.
func (p *parser) postfix(n *symcore.Node) (*symcore.Node, error) {
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && t.text == "[":
			p.advance()
			args, err := p.list("]")
			if err != nil {
				return nil, err
			}
			n = symcore.CompositeNode(n, args...)
		case p.opts.Relaxed && t.kind == tokOp && t.text == "(" && !t.space && n.Kind == symcore.NodeSymbol:
			p.advance()
			args, err := p.list(")")
			if err != nil {
				return nil, err
			}
			n = symcore.CompositeNode(n, args...)
		default:
			return n, nil
		}
	}
}

// list parses comma-separated expressions up to and including closer.
func (p *parser) list(closer string) ([]*symcore.Node, error) {
	var items []*symcore.Node
	if p.isOp(closer) {
		p.advance()
		return items, nil
	}
	for {
		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if p.isOp(",") {
			p.advance()
			continue
		}
		if err := p.expect(closer); err != nil {
			return nil, err
		}
		return items, nil
	}
}

func (p *parser) primary() (*symcore.Node, error) {
	t := p.advance()
	switch t.kind {
	case tokInteger:
		return symcore.IntegerNode(t.text), nil
	case tokReal:
		return symcore.RealNode(t.text), nil
	case tokString:
		return symcore.StringNode(t.text), nil
	case tokIdent:
		return symcore.SymbolNode(t.text), nil
	case tokPattern:
		return patternNode(t), nil
	case tokOp:
		switch t.text {
		case "(":
			n, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			p.grouped[n] = true
			return n, nil
		case "{":
			items, err := p.list("}")
			if err != nil {
				return nil, err
			}
			return symcore.CallNode("List", items...), nil
		}
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of input")
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

var blankHeads = [...]string{1: "Blank", 2: "BlankSequence", 3: "BlankNullSequence"}

func patternNode(t token) *symcore.Node {
	blank := symcore.CallNode(blankHeads[t.blanks])
	if t.head != "" {
		blank = symcore.CallNode(blankHeads[t.blanks], symcore.SymbolNode(t.head))
	}
	if t.name == "" {
		return blank
	}
	return symcore.CallNode("Pattern", symcore.SymbolNode(t.name), blank)
}
