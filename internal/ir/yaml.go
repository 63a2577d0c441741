package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML mapping into Values, keeping document order.
// An empty document yields empty Values.
func ParseYAML(data []byte) (*Values, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	if doc.Kind == 0 {
		return &Values{}, nil
	}
	return FromYAML(&doc)
}

// FromYAML converts a decoded YAML mapping node into Values.
//
// Integers become int64, floats float64, booleans bool, strings string and
// nested mappings *Values. Sequences and nulls have no wire representation
// and are rejected.
func FromYAML(node *yaml.Node) (*Values, error) {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return &Values{}, nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", node.Line, kindName(node.Kind))
	}

	out := &Values{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		v, err := yamlValue(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		out.Set(key.Value, v)
	}
	return out, nil
}

func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return FromYAML(node)
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!int":
			var n int64
			if err := node.Decode(&n); err != nil {
				// Too large for int64: keep the full range for uint64 fields.
				var u uint64
				if uerr := node.Decode(&u); uerr != nil {
					return nil, fmt.Errorf("line %d: %w", node.Line, err)
				}
				return u, nil
			}
			return n, nil
		case "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return nil, fmt.Errorf("line %d: %w", node.Line, err)
			}
			return f, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, fmt.Errorf("line %d: %w", node.Line, err)
			}
			return b, nil
		case "!!null":
			return nil, fmt.Errorf("line %d: null has no wire representation", node.Line)
		default:
			return node.Value, nil
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML %s", node.Line, kindName(node.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}
