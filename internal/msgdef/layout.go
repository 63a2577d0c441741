package msgdef

import "fmt"

// TypeSupport describes how a message type is laid out for the transport:
// the size of its zero-initialised buffer and the alignment that buffer
// needs.
type TypeSupport interface {
	TypeName() string
	Size() int
	Align() int
}

// TypeSupportProvider derives a TypeSupport for a freshly parsed definition.
// All of the definition's nested message fields are already resolved when
// it is called.
type TypeSupportProvider interface {
	TypeSupport(def *Definition) (TypeSupport, error)
}

// TypeSupportFunc adapts a function to TypeSupportProvider.
type TypeSupportFunc func(def *Definition) (TypeSupport, error)

func (f TypeSupportFunc) TypeSupport(def *Definition) (TypeSupport, error) { return f(def) }

// Layout is a plain TypeSupport value.
type Layout struct {
	Name      string
	SizeBytes int
	AlignTo   int
}

func (l Layout) TypeName() string { return l.Name }
func (l Layout) Size() int        { return l.SizeBytes }
func (l Layout) Align() int       { return l.AlignTo }

// PackedLayout is the default provider. Size is the encoded length of the
// zero message (an empty string costs its 4-byte length prefix), and Align
// is the widest primitive in the message, capped at 8.
type PackedLayout struct{}

func (PackedLayout) TypeSupport(def *Definition) (TypeSupport, error) {
	size, align := packed(def)
	if align == 0 {
		align = 1
	}
	return Layout{Name: def.TypeName(), SizeBytes: size, AlignTo: align}, nil
}

func packed(def *Definition) (size, align int) {
	for _, f := range def.fields {
		var w, a int
		switch f.typ {
		case String:
			w, a = 4, 4
		case Message:
			w, a = packed(f.def)
		case Time, Duration:
			w, a = 8, 4
		default:
			var ok bool
			w, ok = f.typ.fixedWidth()
			if !ok {
				panic(fmt.Sprintf("msgdef: unhandled field type %v", f.typ))
			}
			a = w
		}
		size += w
		align = max(align, a)
	}
	return size, align
}
