package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer encodes primitives into a caller-provided buffer.
//
// The buffer is never grown: callers size it with a Sizer first. Writing past
// the end returns ErrShortBuffer and leaves the cursor where it was.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer that fills buf from the start.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int { return w.pos }

func (w *Writer) next(n int) ([]byte, error) {
	if len(w.buf)-w.pos < n {
		return nil, fmt.Errorf("write %d bytes at offset %d of %d: %w", n, w.pos, len(w.buf), ErrShortBuffer)
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b, nil
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

func (w *Writer) WriteUint8(v uint8) error {
	b, err := w.next(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) WriteInt8(v int8) error { return w.WriteUint8(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) error {
	b, err := w.next(2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) error {
	b, err := w.next(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) error {
	b, err := w.next(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) error { return w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(math.Float64bits(v)) }

// WriteString writes a uint32 length prefix followed by the raw bytes of s.
func (w *Writer) WriteString(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return ErrStringTooLong
	}
	if len(w.buf)-w.pos < 4+len(s) {
		return fmt.Errorf("write string of %d bytes at offset %d of %d: %w", len(s), w.pos, len(w.buf), ErrShortBuffer)
	}
	if err := w.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	b, err := w.next(len(s))
	if err != nil {
		return err
	}
	copy(b, s)
	return nil
}
