package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_InsertionOrder(t *testing.T) {
	v := NewValues(V("b", int32(1)), V("a", "x"), V("c", true))
	assert.Equal(t, []string{"b", "a", "c"}, v.Keys())

	v.Set("a", "y")
	assert.Equal(t, []string{"b", "a", "c"}, v.Keys(), "overwrite keeps position")
	got, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, "y", got)
}

func TestValues_ZeroValueUsable(t *testing.T) {
	var v Values
	_, ok := v.Get("missing")
	assert.False(t, ok)
	v.Set("k", uint8(1))
	assert.Equal(t, 1, v.Len())
}

func TestValues_EqualIgnoresOrder(t *testing.T) {
	a := NewValues(V("x", 1.0), V("n", NewValues(V("p", "q"), V("r", int8(1)))))
	b := NewValues(V("n", NewValues(V("r", int8(1)), V("p", "q"))), V("x", 1.0))
	assert.True(t, a.Equal(b))

	c := NewValues(V("x", 1.0), V("n", NewValues(V("p", "q"), V("r", int8(2)))))
	assert.False(t, a.Equal(c))
}

func TestValues_EqualIsTypeStrict(t *testing.T) {
	a := NewValues(V("x", int32(1)))
	b := NewValues(V("x", int64(1)))
	assert.False(t, a.Equal(b))
}

func TestValues_CloneIsDeep(t *testing.T) {
	orig := NewValues(V("n", NewValues(V("p", "q"))))
	cp := orig.Clone()

	nested, _ := cp.Get("n")
	nested.(*Values).Set("p", "changed")

	origNested, _ := orig.Get("n")
	p, _ := origNested.(*Values).Get("p")
	assert.Equal(t, "q", p)
}

func TestFromMap_SortsAndNests(t *testing.T) {
	v := FromMap(map[string]any{"z": 1, "a": map[string]any{"y": 2}})
	assert.Equal(t, []string{"a", "z"}, v.Keys())
	nested, _ := v.Get("a")
	assert.IsType(t, &Values{}, nested)
}

func TestValues_MarshalJSONKeepsOrder(t *testing.T) {
	v := NewValues(V("b", 2), V("a", NewValues(V("x", "y"))))
	b, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":{"x":"y"}}`, string(b))
}

func TestTime_Conversion(t *testing.T) {
	at := time.Unix(1700000000, 250).UTC()
	wt := NewTime(at)
	assert.Equal(t, Time{Sec: 1700000000, Nsec: 250}, wt)
	assert.True(t, at.Equal(wt.Time()))
}

func TestDuration_Conversion(t *testing.T) {
	d := -(1500 * time.Millisecond)
	wd := NewDuration(d)
	assert.Equal(t, Duration{Sec: -1, Nsec: -500000000}, wd)
	assert.Equal(t, d, wd.Std())
}
