package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// columnAliases maps filter keys to message columns. Any other key is a
// decoded field path.
var columnAliases = map[string]Column{
	"session": ColumnSession,
	"topic":   ColumnTopic,
	"type":    ColumnType,
	"hash":    ColumnHash,
}

// ParseFilter builds the conjunction of filter expressions:
//
//	topic=/chatter      column comparison (session, topic, type, hash)
//	stamp.sec=12        decoded field comparison; the value is a YAML scalar
//	data='"42"'         quote to compare a field with a numeric-looking string
//	seq>10, seq<20      seq bounds; seq=N selects one message
func ParseFilter(exprs []string) (And, error) {
	and := And{Predicates: []Predicate{}}
	var seq SeqRange
	for _, expr := range exprs {
		if key, raw, ok := strings.Cut(expr, ">"); ok && strings.TrimSpace(key) == "seq" {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return And{}, fmt.Errorf("filter %q: %w", expr, err)
			}
			seq.After = n
			continue
		}
		if key, raw, ok := strings.Cut(expr, "<"); ok && strings.TrimSpace(key) == "seq" {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return And{}, fmt.Errorf("filter %q: %w", expr, err)
			}
			seq.Before = n
			continue
		}

		key, raw, ok := strings.Cut(expr, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return And{}, fmt.Errorf("filter %q: want key=value, seq>N or seq<N", expr)
		}
		if key == "seq" {
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return And{}, fmt.Errorf("filter %q: %w", expr, err)
			}
			seq = SeqRange{After: n - 1, Before: n + 1}
			continue
		}
		if col, ok := columnAliases[key]; ok {
			and.Predicates = append(and.Predicates, Equals{Column: col, Value: strings.TrimSpace(raw)})
			continue
		}
		v, err := scalar(raw)
		if err != nil {
			return And{}, fmt.Errorf("filter %q: %w", expr, err)
		}
		and.Predicates = append(and.Predicates, FieldEquals{Path: key, Value: v})
	}
	if seq != (SeqRange{}) {
		and.Predicates = append(and.Predicates, seq)
	}
	return and, nil
}

// scalar reads a YAML scalar into the value types FieldEquals accepts.
func scalar(raw string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return "", nil
	}
	n := doc.Content[0]
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("value must be a scalar")
	}
	switch n.Tag {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var u uint64
			if uerr := n.Decode(&u); uerr != nil {
				return nil, err
			}
			return u, nil
		}
		return i, nil
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!null":
		return nil, fmt.Errorf("null never matches a stored value")
	default:
		return n.Value, nil
	}
}
