package msgdef

import (
	"fmt"
	"strings"

	"github.com/roach88/rtmsg/internal/ir"
)

// Constant is a NAME=value declaration. Constants are part of the schema
// text but carry no wire bytes.
type Constant struct {
	Type  string
	Name  string
	Value string
}

// Definition is a parsed message schema: its type name and ordered fields.
//
// Definitions are built by a Registry and never mutated afterwards, so a
// *Definition is safe to share between goroutines.
type Definition struct {
	typeName  string
	fields    []Field
	constants []Constant

	err error // non-nil iff the schema failed to parse

	ts    TypeSupport
	alloc Allocator
}

// TypeName returns the fully qualified "package/Type" name.
func (d *Definition) TypeName() string { return d.typeName }

// IsValid reports whether the schema parsed successfully.
func (d *Definition) IsValid() bool { return d.err == nil }

// Err returns the parse failure of an invalid definition, or nil.
func (d *Definition) Err() error { return d.err }

// Fields returns the fields in declaration order.
func (d *Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Field returns the field with the given name.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Constants returns the constant declarations in declaration order.
func (d *Definition) Constants() []Constant {
	out := make([]Constant, len(d.constants))
	copy(out, d.constants)
	return out
}

// TypeSupport returns the layout descriptor of a valid definition.
func (d *Definition) TypeSupport() TypeSupport { return d.ts }

// Zero returns a value with every field set to its zero value, nested
// messages included.
func (d *Definition) Zero() *ir.Values {
	v := ir.NewValues()
	for _, f := range d.fields {
		v.Set(f.name, f.zeroValue())
	}
	return v
}

// Describe renders the definition as indented schema text with nested
// message fields expanded.
func (d *Definition) Describe() string {
	var b strings.Builder
	b.WriteString(d.typeName)
	b.WriteByte('\n')
	if d.err != nil {
		fmt.Fprintf(&b, "  <invalid: %v>\n", d.err)
		return b.String()
	}
	d.describe(&b, 1)
	return b.String()
}

func (d *Definition) describe(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range d.constants {
		fmt.Fprintf(b, "%s%s %s=%s\n", indent, c.Type, c.Name, c.Value)
	}
	for _, f := range d.fields {
		fmt.Fprintf(b, "%s%s %s\n", indent, f.TypeName(), f.name)
		if f.typ == Message {
			f.def.describe(b, depth+1)
		}
	}
}

// invalid builds a cached placeholder for a schema that failed to parse.
func invalid(typeName string, err error) *Definition {
	return &Definition{typeName: typeName, err: err}
}
