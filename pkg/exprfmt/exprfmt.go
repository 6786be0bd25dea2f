// Package exprfmt renders evaluated expressions for people and tools.
package exprfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/itchyny/go-yaml"
	"github.com/mattn/go-runewidth"

	"github.com/speakeasy-api/symcore"
)

// Form names an output notation.
type Form string

const (
	// InputForm prints operators infix, e.g. a + 2*b.
	InputForm Form = "input"
	// FullForm prints every application as head[args], e.g. Plus[a, Times[2, b]].
	FullForm Form = "full"
	// TreeForm prints the expression tree as YAML.
	TreeForm Form = "tree"
)

var validForms = []Form{InputForm, FullForm, TreeForm}

// Config controls formatting.
type Config struct {
	Form   Form
	Width  int // Maximum line width for InputForm/FullForm; 0 disables wrapping
	Indent int // Indentation step for wrapped lines and TreeForm (default: 2)
}

// ValidateConfig normalizes cfg and rejects unknown forms.
func ValidateConfig(cfg Config) (Config, error) {
	if cfg.Form == "" {
		cfg.Form = InputForm
	}
	valid := false
	for _, f := range validForms {
		if strings.EqualFold(string(cfg.Form), string(f)) {
			cfg.Form = f
			valid = true
		}
	}
	if !valid {
		names := make([]string, len(validForms))
		for i, f := range validForms {
			names[i] = string(f)
		}
		return cfg, fmt.Errorf("invalid form %q; valid forms: %s", cfg.Form, strings.Join(names, ", "))
	}
	if cfg.Width < 0 {
		return cfg, fmt.Errorf("invalid width %d", cfg.Width)
	}
	if cfg.Indent <= 0 {
		cfg.Indent = 2
	}
	return cfg, nil
}

// Format renders e. A nil expression and Null render as the empty string.
func Format(e symcore.Expr, cfg Config) (string, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return "", err
	}
	if symcore.IsVoid(e) {
		return "", nil
	}
	switch cfg.Form {
	case TreeForm:
		var b strings.Builder
		enc := yaml.NewEncoder(&b)
		enc.SetIndent(cfg.Indent)
		if err := enc.Encode(tree(e)); err != nil {
			return "", fmt.Errorf("could not render tree: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("could not render tree: %w", err)
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	case FullForm:
		p := &printer{cfg: cfg, full: true}
		return p.layout(e, 0), nil
	default:
		p := &printer{cfg: cfg}
		return p.layout(e, 0), nil
	}
}

// String renders e in InputForm on one line.
func String(e symcore.Expr) string {
	if e == nil {
		return ""
	}
	p := &printer{}
	return p.flat(e)
}

// tree converts e into a YAML node tree. Mappings are built as nodes so
// "head" always precedes "args".
func tree(e symcore.Expr) *yaml.Node {
	switch x := e.(type) {
	case symcore.Integer:
		return scalar("!!int", x.String())
	case symcore.Real:
		return scalar("!!float", formatFloat(float64(x)))
	case symcore.Str:
		return mapping("string", scalar("!!str", string(x)))
	case *symcore.Symbol:
		return mapping("symbol", scalar("!!str", x.Name()))
	case *symcore.Apply:
		args := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < x.Len(); i++ {
			args.Content = append(args.Content, tree(x.Arg(i)))
		}
		return mapping("head", tree(x.Head()), "args", args)
	}
	return scalar("!!null", "null")
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// mapping builds a mapping from alternating keys and values.
func mapping(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, scalar("!!str", kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return m
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// printer lays out expressions, breaking applications across lines when
// they exceed the configured width.
type printer struct {
	cfg  Config
	full bool
}

func (p *printer) layout(e symcore.Expr, indent int) string {
	flat := p.flat(e)
	if p.cfg.Width == 0 || indent+runewidth.StringWidth(flat) <= p.cfg.Width {
		return flat
	}
	a, ok := e.(*symcore.Apply)
	if !ok || a.Len() == 0 {
		return flat
	}
	lbr, rbr := "[", "]"
	head := p.flat(a.Head())
	if _, isList := symcore.AsApply(a, symcore.SymList); isList && !p.full {
		lbr, rbr, head = "{", "}", ""
	}
	pad := strings.Repeat(" ", indent+p.cfg.Indent)
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(lbr)
	for i := 0; i < a.Len(); i++ {
		b.WriteByte('\n')
		b.WriteString(pad)
		b.WriteString(p.layout(a.Arg(i), indent+p.cfg.Indent))
		if i < a.Len()-1 {
			b.WriteByte(',')
		}
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString(rbr)
	return b.String()
}

func (p *printer) flat(e symcore.Expr) string {
	if p.full {
		return e.String()
	}
	var b strings.Builder
	p.write(&b, e, 0)
	return b.String()
}

// Operator precedences, loosest first.
const (
	precCompound = 10
	precSet      = 40
	precCond     = 130
	precOr       = 215
	precAnd      = 220
	precNot      = 230
	precCompare  = 290
	precPlus     = 310
	precTimes    = 400
	precNegate   = 480
	precPower    = 590
	precAtom     = 1000
)

var infix = map[*symcore.Symbol]struct {
	op   string
	prec int
}{
	symcore.SymCompoundExpression: {"; ", precCompound},
	symcore.SymSet:                {" = ", precSet},
	symcore.SymSetDelayed:         {" := ", precSet},
	symcore.SymCondition:          {" /; ", precCond},
	symcore.SymOr:                 {" || ", precOr},
	symcore.SymAnd:                {" && ", precAnd},
	symcore.SymEqual:              {" == ", precCompare},
	symcore.SymUnequal:            {" != ", precCompare},
	symcore.SymLess:               {" < ", precCompare},
	symcore.SymGreater:            {" > ", precCompare},
	symcore.SymSameQ:              {" === ", precCompare},
	symcore.SymUnsameQ:            {" =!= ", precCompare},
	symcore.SymPlus:               {" + ", precPlus},
	symcore.SymTimes:              {"*", precTimes},
	symcore.SymPower:              {"^", precPower},
}

var blanks = map[*symcore.Symbol]string{
	symcore.SymBlank:             "_",
	symcore.SymBlankSequence:     "__",
	symcore.SymBlankNullSequence: "___",
}

func headSymbol(e symcore.Expr) *symcore.Symbol {
	if a, ok := e.(*symcore.Apply); ok {
		s, _ := a.HeadSymbol()
		return s
	}
	return nil
}

// negated returns x for a term of the form -x.
func negated(e symcore.Expr) (symcore.Expr, bool) {
	if i, ok := e.(symcore.Integer); ok && i.Big().Sign() < 0 {
		return symcore.NewBigInteger(i.Big().Neg(i.Big())), true
	}
	if r, ok := e.(symcore.Real); ok && r < 0 {
		return -r, true
	}
	if a, ok := symcore.AsApply(e, symcore.SymTimes); ok && a.Len() == 2 && a.Arg(0).Equal(symcore.Int(-1)) {
		return a.Arg(1), true
	}
	return nil, false
}

func (p *printer) write(b *strings.Builder, e symcore.Expr, outer int) {
	a, ok := e.(*symcore.Apply)
	if !ok {
		if _, neg := negated(e); neg && outer > precPlus {
			b.WriteString("(" + e.String() + ")")
			return
		}
		b.WriteString(e.String())
		return
	}
	head, _ := a.HeadSymbol()

	switch {
	case head == symcore.SymList:
		b.WriteByte('{')
		p.args(b, a)
		b.WriteByte('}')
		return
	case blanks[head] != "" && a.Len() <= 1:
		b.WriteString(blanks[head])
		if a.Len() == 1 {
			p.write(b, a.Arg(0), precAtom)
		}
		return
	case head == symcore.SymPattern && a.Len() == 2 && blanks[headSymbol(a.Arg(1))] != "":
		p.write(b, a.Arg(0), precAtom)
		p.write(b, a.Arg(1), precAtom)
		return
	case head == symcore.SymNot && a.Len() == 1:
		p.paren(b, outer > precNot, func() {
			b.WriteByte('!')
			p.write(b, a.Arg(0), precNot+1)
		})
		return
	}
	if x, neg := negated(a); neg {
		p.paren(b, outer > precNegate, func() {
			b.WriteByte('-')
			p.write(b, x, precNegate+1)
		})
		return
	}
	if op, ok := infix[head]; ok && a.Len() >= 2 {
		p.paren(b, outer > op.prec, func() {
			for i := 0; i < a.Len(); i++ {
				arg := a.Arg(i)
				if i > 0 && head == symcore.SymPlus {
					if x, neg := negated(arg); neg {
						b.WriteString(" - ")
						p.write(b, x, precPlus+1)
						continue
					}
				}
				if i > 0 {
					b.WriteString(op.op)
				}
				p.write(b, arg, op.prec+1)
			}
		})
		return
	}

	p.write(b, a.Head(), precAtom)
	b.WriteByte('[')
	p.args(b, a)
	b.WriteByte(']')
}

func (p *printer) args(b *strings.Builder, a *symcore.Apply) {
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		p.write(b, a.Arg(i), 0)
	}
}

func (p *printer) paren(b *strings.Builder, needed bool, body func()) {
	if needed {
		b.WriteByte('(')
	}
	body()
	if needed {
		b.WriteByte(')')
	}
}
