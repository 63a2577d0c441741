package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrorCode categorizes schema errors.
type ErrorCode string

const (
	// ErrCodeMalformed indicates a line that is not "<type> <name>".
	ErrCodeMalformed ErrorCode = "MALFORMED_DECLARATION"

	// ErrCodeInvalidName indicates a field name that is not an identifier.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeDuplicateField indicates the same field name declared twice.
	ErrCodeDuplicateField ErrorCode = "DUPLICATE_FIELD"

	// ErrCodeCUE indicates a CUE evaluation error.
	ErrCodeCUE ErrorCode = "CUE_ERROR"
)

// ParseError is a schema error with its source position.
// Line is 1-based; zero means the position is unknown.
type ParseError struct {
	Code    ErrorCode
	Line    int
	Message string
	Pos     token.Pos
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	pe := &ParseError{Code: ErrCodeCUE, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}
