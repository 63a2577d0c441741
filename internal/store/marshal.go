package store

import (
	"fmt"

	"github.com/roach88/rtmsg/internal/ir"
)

// marshalValues converts decoded values to canonical JSON TEXT for storage.
// A nil value tree is stored as an empty object.
func marshalValues(v *ir.Values) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}
