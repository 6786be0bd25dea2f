package symcore

// System symbols shared by every table. They are protected, so neither
// values nor rules can be attached to them and sharing is safe.
var (
	SymSymbol  = sys("Symbol", 0)
	SymInteger = sys("Integer", 0)
	SymReal    = sys("Real", 0)
	SymString  = sys("String", 0)

	SymList     = sys("List", 0)
	SymTrue     = sys("True", 0)
	SymFalse    = sys("False", 0)
	SymNull     = sys("Null", 0)
	SymSequence = sys("Sequence", 0)
	SymAborted  = sys("$Aborted", 0)
	SymFailed   = sys("$Failed", 0)

	SymPattern           = sys("Pattern", HoldFirst)
	SymBlank             = sys("Blank", 0)
	SymBlankSequence     = sys("BlankSequence", 0)
	SymBlankNullSequence = sys("BlankNullSequence", 0)
	SymCondition         = sys("Condition", HoldAll)

	SymSet                = sys("Set", HoldFirst)
	SymSetDelayed         = sys("SetDelayed", HoldAll)
	SymCompoundExpression = sys("CompoundExpression", HoldAll)
	SymHold               = sys("Hold", HoldAll)
	SymBlock              = sys("Block", HoldAll)
	SymIf                 = sys("If", HoldRest)
	SymTimeConstrained    = sys("TimeConstrained", HoldAll)

	SymAnd = sys("And", HoldAll|Flat|OneIdentity)
	SymOr  = sys("Or", HoldAll|Flat|OneIdentity)
	SymNot = sys("Not", 0)

	SymPlus  = sys("Plus", Flat|Orderless|OneIdentity|Listable)
	SymTimes = sys("Times", Flat|Orderless|OneIdentity|Listable)
	SymPower = sys("Power", OneIdentity|Listable)

	SymEqual   = sys("Equal", 0)
	SymUnequal = sys("Unequal", 0)
	SymLess    = sys("Less", 0)
	SymGreater = sys("Greater", 0)
	SymSameQ   = sys("SameQ", 0)
	SymUnsameQ = sys("UnsameQ", 0)

	SymMatchQ  = sys("MatchQ", 0)
	SymHead    = sys("Head", 0)
	SymLength  = sys("Length", 0)
	SymThrough = sys("Through", 0)
)

var systemSymbols []*Symbol

func sys(name string, attrs Attributes) *Symbol {
	s := newSymbol(name, attrs|Protected, true)
	systemSymbols = append(systemSymbols, s)
	return s
}

// SystemSymbols returns the predefined symbols in declaration order.
func SystemSymbols() []*Symbol {
	out := make([]*Symbol, len(systemSymbols))
	copy(out, systemSymbols)
	return out
}
