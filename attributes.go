package symcore

import (
	"fmt"
	"strings"
)

// Attributes is the set of evaluation-order and normalization flags of a
// symbol. The set is closed; attributes are fixed once a symbol is set up.
type Attributes uint16

const (
	HoldFirst Attributes = 1 << iota
	HoldRest
	Orderless
	Flat
	OneIdentity
	Listable
	Protected

	HoldAll = HoldFirst | HoldRest

	NoAttributes Attributes = 0
)

var attributeNames = []struct {
	attr Attributes
	name string
}{
	{HoldAll, "HoldAll"},
	{HoldFirst, "HoldFirst"},
	{HoldRest, "HoldRest"},
	{Orderless, "Orderless"},
	{Flat, "Flat"},
	{OneIdentity, "OneIdentity"},
	{Listable, "Listable"},
	{Protected, "Protected"},
}

// Has reports whether every flag in f is set.
func (a Attributes) Has(f Attributes) bool { return a&f == f }

// HoldsArg reports whether the argument at 0-based position i of an
// application of a symbol with these attributes is held unevaluated.
func (a Attributes) HoldsArg(i int) bool {
	if i == 0 {
		return a.Has(HoldFirst)
	}
	return a.Has(HoldRest)
}

// Names lists the attribute names in canonical order. HoldAll is reported
// instead of HoldFirst and HoldRest when both are set.
func (a Attributes) Names() []string {
	var names []string
	rest := a
	for _, an := range attributeNames {
		if rest.Has(an.attr) {
			names = append(names, an.name)
			rest &^= an.attr
		}
	}
	return names
}

func (a Attributes) String() string {
	return "{" + strings.Join(a.Names(), ",") + "}"
}

// ParseAttribute resolves an attribute by name, case-insensitively.
func ParseAttribute(name string) (Attributes, error) {
	for _, an := range attributeNames {
		if strings.EqualFold(an.name, name) {
			return an.attr, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", name)
}
