package msgdef

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/rtmsg/internal/ir"
)

// Value coercion for encoding. A field accepts its exact Go type and any
// other numeric type that converts to it without changing the value, so
// values parsed from YAML or JSON (int64, float64) encode into narrower
// fields. Anything else is a type mismatch.

// integer widens v to int64 or uint64. Floats qualify only when integral.
func integer(v any) (i int64, u uint64, unsigned bool, err error) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, false, nil
	case int8:
		return int64(n), 0, false, nil
	case int16:
		return int64(n), 0, false, nil
	case int32:
		return int64(n), 0, false, nil
	case int64:
		return n, 0, false, nil
	case uint:
		return 0, uint64(n), true, nil
	case uint8:
		return 0, uint64(n), true, nil
	case uint16:
		return 0, uint64(n), true, nil
	case uint32:
		return 0, uint64(n), true, nil
	case uint64:
		return 0, n, true, nil
	case float32:
		return floatInteger(float64(n))
	case float64:
		return floatInteger(n)
	}
	return 0, 0, false, fmt.Errorf("%w: got %T, want integer", ErrTypeMismatch, v)
}

func floatInteger(f float64) (int64, uint64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, 0, false, fmt.Errorf("%w: %v is not an integer", ErrTypeMismatch, f)
	}
	if f >= 0 && f >= math.MaxInt64 {
		if f >= math.MaxUint64 {
			return 0, 0, false, fmt.Errorf("%w: %v exceeds uint64", ErrOutOfRange, f)
		}
		return 0, uint64(f), true, nil
	}
	if f < math.MinInt64 {
		return 0, 0, false, fmt.Errorf("%w: %v below int64", ErrOutOfRange, f)
	}
	return int64(f), 0, false, nil
}

// signedIn checks that v fits a signed integer of the given bit width.
func signedIn(v any, bits int) (int64, error) {
	i, u, unsigned, err := integer(v)
	if err != nil {
		return 0, err
	}
	maxV := int64(1)<<(bits-1) - 1
	minV := -maxV - 1
	if unsigned {
		if u > uint64(maxV) {
			return 0, fmt.Errorf("%w: %d does not fit int%d", ErrOutOfRange, u, bits)
		}
		return int64(u), nil
	}
	if i < minV || i > maxV {
		return 0, fmt.Errorf("%w: %d does not fit int%d", ErrOutOfRange, i, bits)
	}
	return i, nil
}

// unsignedIn checks that v fits an unsigned integer of the given bit width.
func unsignedIn(v any, bits int) (uint64, error) {
	i, u, unsigned, err := integer(v)
	if err != nil {
		return 0, err
	}
	if !unsigned {
		if i < 0 {
			return 0, fmt.Errorf("%w: %d does not fit uint%d", ErrOutOfRange, i, bits)
		}
		u = uint64(i)
	}
	if bits < 64 && u > uint64(1)<<bits-1 {
		return 0, fmt.Errorf("%w: %d does not fit uint%d", ErrOutOfRange, u, bits)
	}
	return u, nil
}

// floatIn converts v to float64. float32 targets reject finite values
// beyond the float32 range; precision narrowing is accepted.
func floatIn(v any, bits int) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		i, u, unsigned, err := integer(v)
		if err != nil {
			return 0, fmt.Errorf("%w: got %T, want float", ErrTypeMismatch, v)
		}
		if unsigned {
			f = float64(u)
		} else {
			f = float64(i)
		}
	}
	if bits == 32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%w: %v does not fit float32", ErrOutOfRange, f)
	}
	return f, nil
}

func stringIn(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("%w: got %T, want string", ErrTypeMismatch, v)
}

func boolIn(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%w: got %T, want bool", ErrTypeMismatch, v)
}

// secNsec reads a {sec, nsec} mapping, the form times and durations take
// when they come from YAML or JSON.
func secNsec(v *ir.Values, signed bool) (int64, int64, error) {
	if v.Len() != 2 {
		return 0, 0, fmt.Errorf("%w: want exactly sec and nsec keys", ErrTypeMismatch)
	}
	bits := 32
	read := func(key string) (int64, error) {
		raw, ok := v.Get(key)
		if !ok {
			return 0, fmt.Errorf("%w: missing %q", ErrTypeMismatch, key)
		}
		if signed {
			return signedIn(raw, bits)
		}
		n, err := unsignedIn(raw, bits)
		return int64(n), err
	}
	sec, err := read("sec")
	if err != nil {
		return 0, 0, err
	}
	nsec, err := read("nsec")
	if err != nil {
		return 0, 0, err
	}
	return sec, nsec, nil
}

func timeIn(v any) (ir.Time, error) {
	switch t := v.(type) {
	case ir.Time:
		return t, nil
	case time.Time:
		sec := t.Unix()
		if sec < 0 || sec > math.MaxUint32 {
			return ir.Time{}, fmt.Errorf("%w: %s outside uint32 seconds", ErrOutOfRange, t)
		}
		return ir.NewTime(t), nil
	case *ir.Values:
		sec, nsec, err := secNsec(t, false)
		if err != nil {
			return ir.Time{}, err
		}
		return ir.Time{Sec: uint32(sec), Nsec: uint32(nsec)}, nil
	}
	return ir.Time{}, fmt.Errorf("%w: got %T, want time", ErrTypeMismatch, v)
}

func durationIn(v any) (ir.Duration, error) {
	switch d := v.(type) {
	case ir.Duration:
		return d, nil
	case time.Duration:
		if s := d / time.Second; s < math.MinInt32 || s > math.MaxInt32 {
			return ir.Duration{}, fmt.Errorf("%w: %s outside int32 seconds", ErrOutOfRange, d)
		}
		return ir.NewDuration(d), nil
	case *ir.Values:
		sec, nsec, err := secNsec(d, true)
		if err != nil {
			return ir.Duration{}, err
		}
		return ir.Duration{Sec: int32(sec), Nsec: int32(nsec)}, nil
	}
	return ir.Duration{}, fmt.Errorf("%w: got %T, want duration", ErrTypeMismatch, v)
}

func messageIn(v any) (*ir.Values, error) {
	switch m := v.(type) {
	case *ir.Values:
		if m == nil {
			return nil, fmt.Errorf("%w: nil message", ErrTypeMismatch)
		}
		return m, nil
	case map[string]any:
		return ir.FromMap(m), nil
	}
	return nil, fmt.Errorf("%w: got %T, want message", ErrTypeMismatch, v)
}
