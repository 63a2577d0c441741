package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
	"unicode/utf16"
)

// Values is an ordered mapping from field name to value.
//
// Insertion order is kept so decoded messages iterate in wire order. Order
// carries no meaning when Values is used as codec input: fields are always
// looked up by name. The zero value is an empty mapping ready to use.
type Values struct {
	keys []string
	m    map[string]any
}

// Pair is a key-value pair for ordered Values construction.
type Pair struct {
	Key   string
	Value any
}

// V is a shorthand for Pair.
// Example: NewValues(V("x", 1.5), V("label", "origin"))
func V(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

// NewValues builds Values from pairs, in the order given.
// A repeated key overwrites the earlier value and keeps its position.
func NewValues(pairs ...Pair) *Values {
	v := &Values{m: make(map[string]any, len(pairs))}
	for _, p := range pairs {
		v.Set(p.Key, p.Value)
	}
	return v
}

// FromMap builds Values from an unordered map. Keys are sorted so the result
// is deterministic; nested map[string]any values are converted recursively.
func FromMap(m map[string]any) *Values {
	v := &Values{m: make(map[string]any, len(m))}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		val := m[k]
		if nested, ok := val.(map[string]any); ok {
			val = FromMap(nested)
		}
		v.Set(k, val)
	}
	return v
}

// Set stores value under key, appending key if it is new.
func (v *Values) Set(key string, value any) {
	if v.m == nil {
		v.m = make(map[string]any)
	}
	if _, ok := v.m[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.m[key] = value
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	if v == nil || v.m == nil {
		return nil, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Keys returns the keys in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	return slices.Clone(v.keys)
}

// Len returns the number of entries.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}

// Clone returns a deep copy. Nested *Values are cloned; scalars are copied.
func (v *Values) Clone() *Values {
	if v == nil {
		return nil
	}
	out := &Values{keys: slices.Clone(v.keys), m: make(map[string]any, len(v.m))}
	for k, val := range v.m {
		if nested, ok := val.(*Values); ok {
			val = nested.Clone()
		}
		out.m[k] = val
	}
	return out
}

// Equal reports whether v and other hold the same keys with equal values,
// ignoring insertion order at every nesting level.
func (v *Values) Equal(other *Values) bool {
	if v.Len() != other.Len() {
		return false
	}
	for _, k := range v.Keys() {
		a, _ := v.Get(k)
		b, ok := other.Get(k)
		if !ok {
			return false
		}
		na, aNested := a.(*Values)
		nb, bNested := b.(*Values)
		if aNested || bNested {
			if !aNested || !bNested || !na.Equal(nb) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// String renders v as JSON in insertion order.
func (v *Values) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid values: %v>", err)
	}
	return string(b)
}

// MarshalJSON writes v as a JSON object in insertion order.
// This is a display encoding; use MarshalCanonical for hashing.
func (v *Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		val, _ := v.Get(k)
		vb, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Time is a wire time point: unsigned seconds and nanoseconds since the epoch.
type Time struct {
	Sec  uint32 `json:"sec"`
	Nsec uint32 `json:"nsec"`
}

// NewTime converts a time.Time. Instants outside the uint32 seconds range wrap.
func NewTime(t time.Time) Time {
	return Time{Sec: uint32(t.Unix()), Nsec: uint32(t.Nanosecond())}
}

// Time returns the instant as a time.Time in UTC.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nsec)).UTC()
}

// Duration is a wire duration: signed seconds and nanoseconds.
type Duration struct {
	Sec  int32 `json:"sec"`
	Nsec int32 `json:"nsec"`
}

// NewDuration converts a time.Duration, splitting it into whole seconds and
// the nanosecond remainder (both carrying the sign of d).
func NewDuration(d time.Duration) Duration {
	return Duration{Sec: int32(d / time.Second), Nsec: int32(d % time.Second)}
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Sec)*time.Second + time.Duration(d.Nsec)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's native string comparison uses UTF-8 bytes, which orders differently
// for characters outside the BMP.
func (v *Values) SortedKeys() []string {
	keys := v.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
