package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON for a value tree.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units, not insertion order
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats use the shortest round-trip representation; NaN and Inf are rejected
//  5. Time and Duration are objects {"nsec":…,"sec":…}
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case *Values:
		return marshalCanonicalObject(buf, val)
	case string:
		return marshalCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint:
		fmt.Fprintf(buf, "%d", val)
	case float32:
		return marshalCanonicalFloat(buf, float64(val), 32)
	case float64:
		return marshalCanonicalFloat(buf, val, 64)
	case Time:
		fmt.Fprintf(buf, `{"nsec":%d,"sec":%d}`, val.Nsec, val.Sec)
	case Duration:
		fmt.Fprintf(buf, `{"nsec":%d,"sec":%d}`, val.Nsec, val.Sec)
	case map[string]any:
		return marshalCanonicalObject(buf, FromMap(val))
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func marshalCanonicalFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite float %v is not representable in canonical JSON", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// marshalCanonicalString writes s NFC normalized, escaping only quote,
// backslash and control characters.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})

	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters, as RFC 8785 requires. An escape
// preceded by an escaped backslash (\\u2028, literal text) is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if bytes.HasPrefix(data[i:], []byte(`\u2028`)) {
			out = append(out, "\u2028"...)
			i += 5
			continue
		}
		if bytes.HasPrefix(data[i:], []byte(`\u2029`)) {
			out = append(out, "\u2029"...)
			i += 5
			continue
		}
		// Any other escape is copied as a unit so its second byte is never
		// mistaken for the start of a new escape.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

func marshalCanonicalObject(buf *bytes.Buffer, obj *Values) error {
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		val, _ := obj.Get(k)
		if err := marshalCanonical(buf, val); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
