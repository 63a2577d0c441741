package compiler

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// CompileCUE extracts message schemas declared under a top-level "messages"
// struct. Each entry maps a fully qualified type name to either a schema text
// or a list of declaration lines:
//
//	messages: {
//		"demo/Point": """
//			float64 x
//			float64 y
//			"""
//		"demo/Stamped": ["Header header", "demo/Point point"]
//	}
//
// The result maps type name to schema text, ready for ParseDecls.
func CompileCUE(v cue.Value) (map[string]string, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]string)
	msgs := v.LookupPath(cue.ParsePath("messages"))
	if !msgs.Exists() {
		return out, nil
	}

	iter, err := msgs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		text, err := schemaText(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("messages.%q: %w", name, err)
		}
		out[name] = text
	}
	return out, nil
}

func schemaText(v cue.Value) (string, error) {
	if s, err := v.String(); err == nil {
		return s, nil
	}

	lines, err := v.List()
	if err != nil {
		return "", &ParseError{
			Code:    ErrCodeCUE,
			Message: "schema must be a string or a list of declaration strings",
			Pos:     v.Pos(),
		}
	}
	var sb strings.Builder
	for lines.Next() {
		line, err := lines.Value().String()
		if err != nil {
			return "", formatCUEError(err)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// CompileCUEString compiles CUE source and extracts its message schemas.
func CompileCUEString(src string) (map[string]string, error) {
	ctx := cuecontext.New()
	return CompileCUE(ctx.CompileString(src))
}

// LoadCUEDir loads the CUE package in dir and extracts its message schemas.
func LoadCUEDir(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCUE(value)
}
