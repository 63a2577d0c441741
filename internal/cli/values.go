package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rtmsg/internal/ir"
)

// readValues parses a --values argument: inline YAML, "@path" for a file,
// or "-" for stdin.
func readValues(arg string, stdin io.Reader) (*ir.Values, error) {
	var data []byte
	var err error
	switch {
	case arg == "-":
		data, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		data, err = os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		data = []byte(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return ir.ParseYAML(data)
}

// valuesYAML renders values as block YAML in field order. The output
// parses back into equal values with readValues.
func valuesYAML(v *ir.Values) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(valuesNode(v)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func valuesNode(v *ir.Values) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range v.Keys() {
		val, _ := v.Get(k)
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueNode(val),
		)
	}
	return n
}

func valueNode(val any) *yaml.Node {
	scalar := func(tag, s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}
	}
	switch x := val.(type) {
	case *ir.Values:
		return valuesNode(x)
	case ir.Time:
		return valuesNode(ir.NewValues(ir.V("sec", x.Sec), ir.V("nsec", x.Nsec)))
	case ir.Duration:
		return valuesNode(ir.NewValues(ir.V("sec", x.Sec), ir.V("nsec", x.Nsec)))
	case string:
		return scalar("!!str", x)
	case bool:
		return scalar("!!bool", strconv.FormatBool(x))
	case float32:
		return scalar("!!float", formatFloat(float64(x), 32))
	case float64:
		return scalar("!!float", formatFloat(x, 64))
	default:
		return scalar("!!int", fmt.Sprint(x))
	}
}

// formatFloat keeps a decimal point or exponent so YAML reads a float back.
func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	switch s {
	case "NaN":
		return ".nan"
	case "+Inf":
		return ".inf"
	case "-Inf":
		return "-.inf"
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
