package symcore

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeNode reads a syntax tree from a YAML (or JSON) document.
//
// Plain scalars are integers, reals or symbol names depending on their
// resolved tag; quoted scalars are strings. A mapping with "head" and
// optional "args" is a composite node (a string head always names a
// symbol, so JSON input works), and the single-key mappings
// {symbol: name} and {string: text} force a literal kind.
//
//	head: Block
//	args:
//	  - head: List
//	    args: [x]
//	  - head: Plus
//	    args: [x, 1]
func DecodeNode(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("decode ast: empty document")
	}
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	return &n, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	decoded, err := nodeFromYAML(value)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}

func nodeFromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) != 1 {
			return nil, fmt.Errorf("line %d: expected a single document", y.Line)
		}
		return nodeFromYAML(y.Content[0])
	case yaml.AliasNode:
		return nodeFromYAML(y.Alias)
	case yaml.ScalarNode:
		if y.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			return StringNode(y.Value), nil
		}
		switch y.Tag {
		case "!!int":
			return IntegerNode(y.Value), nil
		case "!!float":
			return RealNode(y.Value), nil
		case "!!str", "!!bool", "!!null":
			// true/false/null are read as the symbols of the same name.
			return SymbolNode(symbolForScalar(y.Value)), nil
		default:
			return nil, fmt.Errorf("line %d: unsupported scalar tag %s", y.Line, y.Tag)
		}
	case yaml.MappingNode:
		return compositeFromYAML(y)
	case yaml.SequenceNode:
		children := make([]*Node, 0, len(y.Content))
		for _, c := range y.Content {
			child, err := nodeFromYAML(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return CallNode("List", children...), nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", y.Line, y.Kind)
}

func symbolForScalar(v string) string {
	switch v {
	case "true":
		return "True"
	case "false":
		return "False"
	case "null", "~", "":
		return "Null"
	}
	return v
}

func compositeFromYAML(y *yaml.Node) (*Node, error) {
	var head *Node
	var args []*Node
	for i := 0; i+1 < len(y.Content); i += 2 {
		key, val := y.Content[i], y.Content[i+1]
		switch key.Value {
		case "symbol":
			return SymbolNode(val.Value), nil
		case "string":
			return StringNode(val.Value), nil
		case "head":
			if val.Kind == yaml.ScalarNode && val.Tag == "!!str" {
				head = SymbolNode(val.Value)
				continue
			}
			h, err := nodeFromYAML(val)
			if err != nil {
				return nil, err
			}
			head = h
		case "args":
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("line %d: args must be a sequence", val.Line)
			}
			for _, c := range val.Content {
				child, err := nodeFromYAML(c)
				if err != nil {
					return nil, err
				}
				args = append(args, child)
			}
		default:
			return nil, fmt.Errorf("line %d: unknown key %q", key.Line, key.Value)
		}
	}
	if head == nil {
		return nil, fmt.Errorf("line %d: composite node requires a head", y.Line)
	}
	return CompositeNode(head, args...), nil
}
