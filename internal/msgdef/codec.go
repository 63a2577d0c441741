package msgdef

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/wire"
)

// SerializedLength returns the number of bytes v encodes to.
//
// Every declared field must be present in v; keys not declared by the
// schema are ignored.
func (d *Definition) SerializedLength(v *ir.Values) (int, error) {
	if d.err != nil {
		return 0, d.invalidErr()
	}
	var s wire.Sizer
	if err := d.measure(&s, v); err != nil {
		return 0, err
	}
	if s.Len() > math.MaxInt {
		return 0, codecErr(d.typeName, "", ErrOutOfRange, "message of %d bytes", s.Len())
	}
	return int(s.Len()), nil
}

// SerializeMessage encodes v into a newly allocated Buffer sized exactly to
// the message. The caller owns the buffer and releases it with Disallocate.
// On error no buffer is left allocated.
func (d *Definition) SerializeMessage(v *ir.Values) (*Buffer, error) {
	n, err := d.SerializedLength(v)
	if err != nil {
		return nil, err
	}
	buf, err := d.allocate(n)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(buf.data)
	if err := d.encode(w, v); err != nil {
		_ = d.Disallocate(buf)
		return nil, err
	}
	if w.Pos() != n {
		_ = d.Disallocate(buf)
		return nil, fmt.Errorf("msgdef: %s encoded %d bytes, measured %d", d.typeName, w.Pos(), n)
	}
	return buf, nil
}

// DeserializeMessage decodes data into a fresh Values holding every field in
// declaration order. data must contain exactly one message.
func (d *Definition) DeserializeMessage(data []byte) (*ir.Values, error) {
	if d.err != nil {
		return nil, d.invalidErr()
	}
	r := wire.NewReader(data)
	v, err := d.decode(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, codecErr(d.typeName, "", ErrTrailingBytes, "%d of %d bytes unread", r.Remaining(), len(data))
	}
	return v, nil
}

// AllocateZeroInitialised returns a buffer of the definition's zero-message
// size with every byte zero. It decodes to Zero().
func (d *Definition) AllocateZeroInitialised() (*Buffer, error) {
	if d.err != nil {
		return nil, d.invalidErr()
	}
	return d.allocate(d.ts.Size())
}

// Disallocate releases a buffer obtained from this definition. Releasing the
// same buffer twice returns ErrDoubleFree.
func (d *Definition) Disallocate(b *Buffer) error {
	if b == nil {
		return nil
	}
	if b.owner != d {
		return fmt.Errorf("%s: %w", d.typeName, ErrForeignBuffer)
	}
	if !b.freed.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", d.typeName, ErrDoubleFree)
	}
	data := b.data
	b.data = nil
	return d.alloc.Free(data)
}

func (d *Definition) allocate(n int) (*Buffer, error) {
	data, err := d.alloc.Allocate(n, d.ts.Align())
	if err != nil {
		return nil, fmt.Errorf("allocate %d bytes for %s: %w", n, d.typeName, err)
	}
	return &Buffer{data: data, owner: d}, nil
}

func (d *Definition) invalidErr() error {
	return &CodecError{Type: d.typeName, Err: ErrInvalidDefinition, Detail: d.err.Error()}
}

func (d *Definition) measure(s *wire.Sizer, v *ir.Values) error {
	for _, f := range d.fields {
		raw, ok := v.Get(f.name)
		if !ok {
			return codecErr(d.typeName, f.name, ErrMissingField, "no value for %s %s", f.TypeName(), f.name)
		}
		if err := f.measure(s, raw); err != nil {
			return d.fieldErr(f, err)
		}
	}
	return nil
}

func (d *Definition) encode(w *wire.Writer, v *ir.Values) error {
	for _, f := range d.fields {
		raw, ok := v.Get(f.name)
		if !ok {
			return codecErr(d.typeName, f.name, ErrMissingField, "no value for %s %s", f.TypeName(), f.name)
		}
		if err := f.encode(w, raw); err != nil {
			return d.fieldErr(f, err)
		}
	}
	return nil
}

func (d *Definition) decode(r *wire.Reader) (*ir.Values, error) {
	v := ir.NewValues()
	for _, f := range d.fields {
		val, err := f.decode(r)
		if err != nil {
			return nil, d.fieldErr(f, err)
		}
		v.Set(f.name, val)
	}
	return v, nil
}

// fieldErr attributes err to field f. Nested CodecErrors get the field name
// prefixed; plain coercion and wire errors become CodecErrors.
func (d *Definition) fieldErr(f Field, err error) error {
	var ce *CodecError
	if errors.As(err, &ce) {
		return prefixField(err, d.typeName, f.name)
	}
	for _, m := range []struct{ cause, kind error }{
		{wire.ErrShortBuffer, ErrShortBuffer},
		{wire.ErrStringTooLong, ErrOutOfRange},
		{ErrOutOfRange, ErrOutOfRange},
		{ErrTypeMismatch, ErrTypeMismatch},
	} {
		if errors.Is(err, m.cause) {
			detail := strings.TrimPrefix(err.Error(), m.cause.Error()+": ")
			return &CodecError{Type: d.typeName, Field: f.name, Err: m.kind, Detail: detail}
		}
	}
	return fmt.Errorf("%s.%s: %w", d.typeName, f.name, err)
}
