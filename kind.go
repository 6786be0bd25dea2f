package symcore

// Kind classifies the variants of the expression model.
type Kind int

const (
	KindInteger Kind = iota
	KindReal
	KindString
	KindSymbol
	KindApply
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindApply:
		return "apply"
	default:
		panic(k)
	}
}

// IsAtom reports whether the kind is a leaf that evaluates to itself.
func (k Kind) IsAtom() bool {
	return k == KindInteger || k == KindReal || k == KindString
}
