package symcore

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// NodeKind classifies parser output nodes.
type NodeKind int

const (
	NodeInteger NodeKind = iota
	NodeReal
	NodeString
	NodeSymbol
	NodeComposite
)

func (k NodeKind) String() string {
	switch k {
	case NodeInteger:
		return "integer"
	case NodeReal:
		return "real"
	case NodeString:
		return "string"
	case NodeSymbol:
		return "symbol"
	case NodeComposite:
		return "composite"
	default:
		panic(k)
	}
}

// Node is the syntax tree handed over by a surface parser. Literals and
// symbol references carry their text in Value; composite nodes carry a Head
// and ordered Children.
type Node struct {
	Kind     NodeKind
	Value    string
	Head     *Node
	Children []*Node
}

// IntegerNode returns an integer literal node.
func IntegerNode(text string) *Node { return &Node{Kind: NodeInteger, Value: text} }

// RealNode returns a real literal node.
func RealNode(text string) *Node { return &Node{Kind: NodeReal, Value: text} }

// StringNode returns a string literal node.
func StringNode(s string) *Node { return &Node{Kind: NodeString, Value: s} }

// SymbolNode returns a symbol reference node.
func SymbolNode(name string) *Node { return &Node{Kind: NodeSymbol, Value: name} }

// CompositeNode returns head[children...].
func CompositeNode(head *Node, children ...*Node) *Node {
	return &Node{Kind: NodeComposite, Head: head, Children: children}
}

// CallNode returns name[children...].
func CallNode(name string, children ...*Node) *Node {
	return CompositeNode(SymbolNode(name), children...)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NodeString:
		return strconv.Quote(n.Value)
	case NodeComposite:
		var b strings.Builder
		b.WriteString(n.Head.String())
		b.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return n.Value
	}
}

// ConvertOptions configures AST conversion.
type ConvertOptions struct {
	// Relaxed resolves symbol names case-insensitively against symbols that
	// already exist in the table, e.g. "block" names Block.
	Relaxed bool
}

// Convert turns a parser node into an expression, interning symbols in t.
func Convert(t *Table, n *Node, opts ConvertOptions) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("convert: nil node")
	}
	switch n.Kind {
	case NodeInteger:
		v, ok := new(big.Int).SetString(n.Value, 10)
		if !ok {
			return nil, fmt.Errorf("convert: invalid integer literal %q", n.Value)
		}
		return Integer{v: v}, nil
	case NodeReal:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("convert: invalid real literal %q: %w", n.Value, err)
		}
		return Real(f), nil
	case NodeString:
		return Str(n.Value), nil
	case NodeSymbol:
		if n.Value == "" {
			return nil, fmt.Errorf("convert: empty symbol name")
		}
		if opts.Relaxed {
			if s, ok := t.LookupFold(n.Value); ok {
				return s, nil
			}
		}
		return t.Intern(n.Value), nil
	case NodeComposite:
		head, err := Convert(t, n.Head, opts)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, len(n.Children))
		for i, c := range n.Children {
			if args[i], err = Convert(t, c, opts); err != nil {
				return nil, err
			}
		}
		return newApplyOwned(head, args), nil
	default:
		return nil, fmt.Errorf("convert: unknown node kind %d", n.Kind)
	}
}

// ToNode converts an expression back into a syntax tree.
func ToNode(e Expr) *Node {
	switch x := e.(type) {
	case Integer:
		return IntegerNode(x.String())
	case Real:
		return RealNode(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case Str:
		return StringNode(string(x))
	case *Symbol:
		return SymbolNode(x.name)
	case *Apply:
		children := make([]*Node, len(x.args))
		for i, a := range x.args {
			children[i] = ToNode(a)
		}
		return CompositeNode(ToNode(x.head), children...)
	}
	return nil
}
