package compiler

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"
)

// Decl is one declaration line of a message schema.
type Decl struct {
	Line int    // 1-based source line
	Type string // type token as written, e.g. "uint32", "Header", "geometry_msgs/Point"
	Name string // field or constant name

	// Array is set when the type token carries a [] or [N] suffix.
	Array bool

	// Constant is set for NAME=value declarations; Value holds the literal.
	Constant bool
	Value    string
}

// ParseDecls lexes schema text into declarations, in source order.
//
// One declaration per line; blank lines and # comments are skipped. A
// constant's string value runs to the end of the line, so '#' inside it is
// kept. The first malformed line aborts parsing with a *ParseError.
func ParseDecls(text string) ([]Decl, error) {
	var decls []Decl
	seen := make(map[string]int)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		d, ok, err := parseLine(sc.Text(), lineNo)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if prev, dup := seen[d.Name]; dup {
			return nil, &ParseError{
				Code:    ErrCodeDuplicateField,
				Line:    lineNo,
				Message: fmt.Sprintf("%q already declared on line %d", d.Name, prev),
			}
		}
		seen[d.Name] = lineNo
		decls = append(decls, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return decls, nil
}

func parseLine(raw string, lineNo int) (Decl, bool, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return Decl{}, false, nil
	}

	typ, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		typ, rest = line[:i], strings.TrimSpace(line[i:])
	}

	// Constants: "<type> NAME=value". String constants keep '#'.
	if name, value, isConst := strings.Cut(rest, "="); isConst && !strings.Contains(name, "#") {
		name = strings.TrimSpace(name)
		if typ != "string" {
			value, _, _ = strings.Cut(value, "#")
		}
		d := Decl{Line: lineNo, Type: typ, Name: name, Constant: true, Value: strings.TrimSpace(value)}
		return d, true, validateName(d)
	}

	rest, _, _ = strings.Cut(rest, "#")
	fields := strings.Fields(rest)
	if typ == "" || len(fields) != 1 {
		return Decl{}, false, &ParseError{
			Code:    ErrCodeMalformed,
			Line:    lineNo,
			Message: fmt.Sprintf("expected \"<type> <name>\", got %q", line),
		}
	}

	d := Decl{Line: lineNo, Type: typ, Name: fields[0]}
	if i := strings.IndexByte(typ, '['); i >= 0 && strings.HasSuffix(typ, "]") {
		d.Type = typ[:i]
		d.Array = true
	}
	return d, true, validateName(d)
}

func validateName(d Decl) error {
	if !isIdentifier(d.Name) {
		return &ParseError{
			Code:    ErrCodeInvalidName,
			Line:    d.Line,
			Message: fmt.Sprintf("%q is not a valid field name", d.Name),
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '_' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
