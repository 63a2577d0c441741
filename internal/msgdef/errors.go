package msgdef

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition is returned by codec operations on a definition
	// whose schema failed to parse.
	ErrInvalidDefinition = errors.New("invalid message definition")

	// ErrTypeNotFound is returned by a Source that has no schema for a name.
	ErrTypeNotFound = errors.New("message type not found")

	// ErrUnknownType marks a type token that is neither a primitive nor a
	// resolvable message type.
	ErrUnknownType = errors.New("unknown field type")

	// ErrSchemaCycle marks a definition that contains itself through nesting.
	ErrSchemaCycle = errors.New("schema cycle")

	// ErrUnsupportedArray marks a declaration using array syntax.
	ErrUnsupportedArray = errors.New("array fields are not supported")

	ErrMissingField  = errors.New("missing field")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrOutOfRange    = errors.New("value out of range")
	ErrShortBuffer   = errors.New("short buffer")
	ErrTrailingBytes = errors.New("trailing bytes after message")

	// ErrDoubleFree is returned when a buffer is disallocated twice.
	ErrDoubleFree = errors.New("buffer already disallocated")

	// ErrForeignBuffer is returned when a buffer is handed to a definition
	// that did not allocate it.
	ErrForeignBuffer = errors.New("buffer belongs to another definition")
)

// CodecError reports an encode or decode contract violation.
//
// Field is the dotted path of the offending field (e.g. "pose.position.x")
// and is empty for whole-message errors such as trailing bytes. Err is one of
// the package sentinels, so errors.Is(err, ErrMissingField) works through a
// CodecError.
type CodecError struct {
	Type   string
	Field  string
	Err    error
	Detail string
}

func (e *CodecError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

func (e *CodecError) Unwrap() error { return e.Err }

func codecErr(typeName, field string, err error, format string, args ...any) *CodecError {
	return &CodecError{Type: typeName, Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// prefixField nests a child error under the parent field name.
func prefixField(err error, typeName, field string) error {
	var ce *CodecError
	if errors.As(err, &ce) {
		out := *ce
		out.Type = typeName
		if out.Field == "" {
			out.Field = field
		} else {
			out.Field = field + "." + out.Field
		}
		return &out
	}
	return err
}
