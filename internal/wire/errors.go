package wire

import "errors"

var (
	// ErrShortBuffer is returned when a read or write would cross the end of the buffer.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrStringTooLong is returned when a string length does not fit the uint32 prefix.
	ErrStringTooLong = errors.New("wire: string too long")
)
