package msgdef

import (
	"fmt"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/wire"
)

// Field is one named, typed member of a Definition.
type Field struct {
	name string
	typ  FieldType
	// def is the shared nested definition for Message fields, nil otherwise.
	def *Definition
}

// Name returns the field name as declared.
func (f Field) Name() string { return f.name }

// Type returns the field's type tag.
func (f Field) Type() FieldType { return f.typ }

// Definition returns the nested message definition, or nil for primitives.
func (f Field) Definition() *Definition { return f.def }

// TypeName returns the schema spelling of the field type: the primitive
// keyword, or the fully qualified nested type name.
func (f Field) TypeName() string {
	if f.typ == Message {
		return f.def.TypeName()
	}
	return f.typ.String()
}

// decode reads one value of the field's type.
func (f Field) decode(r *wire.Reader) (any, error) {
	switch f.typ {
	case Bool:
		return r.ReadBool()
	case Int8:
		return r.ReadInt8()
	case UInt8:
		return r.ReadUint8()
	case Int16:
		return r.ReadInt16()
	case UInt16:
		return r.ReadUint16()
	case Int32:
		return r.ReadInt32()
	case UInt32:
		return r.ReadUint32()
	case Int64:
		return r.ReadInt64()
	case UInt64:
		return r.ReadUint64()
	case Float32:
		return r.ReadFloat32()
	case Float64:
		return r.ReadFloat64()
	case String:
		return r.ReadString()
	case Time:
		sec, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		nsec, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return ir.Time{Sec: sec, Nsec: nsec}, nil
	case Duration:
		sec, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		nsec, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return ir.Duration{Sec: sec, Nsec: nsec}, nil
	case Message:
		return f.def.decode(r)
	}
	panic(fmt.Sprintf("msgdef: unhandled field type %v", f.typ))
}

// encode writes v at the writer's cursor.
func (f Field) encode(w *wire.Writer, v any) error {
	switch f.typ {
	case Bool:
		b, err := boolIn(v)
		if err != nil {
			return err
		}
		return w.WriteBool(b)
	case Int8:
		n, err := signedIn(v, 8)
		if err != nil {
			return err
		}
		return w.WriteInt8(int8(n))
	case UInt8:
		n, err := unsignedIn(v, 8)
		if err != nil {
			return err
		}
		return w.WriteUint8(uint8(n))
	case Int16:
		n, err := signedIn(v, 16)
		if err != nil {
			return err
		}
		return w.WriteInt16(int16(n))
	case UInt16:
		n, err := unsignedIn(v, 16)
		if err != nil {
			return err
		}
		return w.WriteUint16(uint16(n))
	case Int32:
		n, err := signedIn(v, 32)
		if err != nil {
			return err
		}
		return w.WriteInt32(int32(n))
	case UInt32:
		n, err := unsignedIn(v, 32)
		if err != nil {
			return err
		}
		return w.WriteUint32(uint32(n))
	case Int64:
		n, err := signedIn(v, 64)
		if err != nil {
			return err
		}
		return w.WriteInt64(n)
	case UInt64:
		n, err := unsignedIn(v, 64)
		if err != nil {
			return err
		}
		return w.WriteUint64(n)
	case Float32:
		x, err := floatIn(v, 32)
		if err != nil {
			return err
		}
		return w.WriteFloat32(float32(x))
	case Float64:
		x, err := floatIn(v, 64)
		if err != nil {
			return err
		}
		return w.WriteFloat64(x)
	case String:
		s, err := stringIn(v)
		if err != nil {
			return err
		}
		return w.WriteString(s)
	case Time:
		t, err := timeIn(v)
		if err != nil {
			return err
		}
		if err := w.WriteUint32(t.Sec); err != nil {
			return err
		}
		return w.WriteUint32(t.Nsec)
	case Duration:
		d, err := durationIn(v)
		if err != nil {
			return err
		}
		if err := w.WriteInt32(d.Sec); err != nil {
			return err
		}
		return w.WriteInt32(d.Nsec)
	case Message:
		m, err := messageIn(v)
		if err != nil {
			return err
		}
		return f.def.encode(w, m)
	}
	panic(fmt.Sprintf("msgdef: unhandled field type %v", f.typ))
}

// measure adds the encoded size of v to s. It validates v the same way
// encode does, so a value that measures cleanly also encodes cleanly.
func (f Field) measure(s *wire.Sizer, v any) error {
	switch f.typ {
	case String:
		str, err := stringIn(v)
		if err != nil {
			return err
		}
		return s.String(str)
	case Message:
		m, err := messageIn(v)
		if err != nil {
			return err
		}
		return f.def.measure(s, m)
	}
	width, ok := f.typ.fixedWidth()
	if !ok {
		panic(fmt.Sprintf("msgdef: unhandled field type %v", f.typ))
	}
	if err := f.check(v); err != nil {
		return err
	}
	s.Fixed(width)
	return nil
}

// check runs the fixed-width coercion without writing.
func (f Field) check(v any) error {
	var err error
	switch f.typ {
	case Bool:
		_, err = boolIn(v)
	case Int8:
		_, err = signedIn(v, 8)
	case UInt8:
		_, err = unsignedIn(v, 8)
	case Int16:
		_, err = signedIn(v, 16)
	case UInt16:
		_, err = unsignedIn(v, 16)
	case Int32:
		_, err = signedIn(v, 32)
	case UInt32:
		_, err = unsignedIn(v, 32)
	case Int64:
		_, err = signedIn(v, 64)
	case UInt64:
		_, err = unsignedIn(v, 64)
	case Float32:
		_, err = floatIn(v, 32)
	case Float64:
		_, err = floatIn(v, 64)
	case Time:
		_, err = timeIn(v)
	case Duration:
		_, err = durationIn(v)
	}
	return err
}

// zeroValue returns the value a zero-initialised buffer decodes to.
func (f Field) zeroValue() any {
	switch f.typ {
	case Bool:
		return false
	case Int8:
		return int8(0)
	case UInt8:
		return uint8(0)
	case Int16:
		return int16(0)
	case UInt16:
		return uint16(0)
	case Int32:
		return int32(0)
	case UInt32:
		return uint32(0)
	case Int64:
		return int64(0)
	case UInt64:
		return uint64(0)
	case Float32:
		return float32(0)
	case Float64:
		return float64(0)
	case String:
		return ""
	case Time:
		return ir.Time{}
	case Duration:
		return ir.Duration{}
	case Message:
		return f.def.Zero()
	}
	panic(fmt.Sprintf("msgdef: unhandled field type %v", f.typ))
}
