package wire

import "math"

// Sizer accumulates the encoded size of a value without writing it.
type Sizer struct {
	n uint64
}

// Len returns the accumulated size in bytes.
func (s *Sizer) Len() uint64 { return s.n }

// Fixed adds a fixed-width primitive of n bytes.
func (s *Sizer) Fixed(n int) { s.n += uint64(n) }

// String adds the length prefix and payload of str.
func (s *Sizer) String(str string) error {
	if uint64(len(str)) > math.MaxUint32 {
		return ErrStringTooLong
	}
	s.n += 4 + uint64(len(str))
	return nil
}
