package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML_OrderAndTypes(t *testing.T) {
	v, err := ParseYAML([]byte(`
fieldA: 7
fieldB: hi
fieldC:
  x: 3.5
flag: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"fieldA", "fieldB", "fieldC", "flag"}, v.Keys())

	a, _ := v.Get("fieldA")
	assert.Equal(t, int64(7), a)
	b, _ := v.Get("fieldB")
	assert.Equal(t, "hi", b)
	c, _ := v.Get("fieldC")
	x, _ := c.(*Values).Get("x")
	assert.Equal(t, 3.5, x)
	f, _ := v.Get("flag")
	assert.Equal(t, true, f)
}

func TestParseYAML_LargeUnsigned(t *testing.T) {
	v, err := ParseYAML([]byte("big: 18446744073709551615\n"))
	require.NoError(t, err)
	big, _ := v.Get("big")
	assert.Equal(t, uint64(18446744073709551615), big)
}

func TestParseYAML_Empty(t *testing.T) {
	v, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestParseYAML_RejectsSequencesAndNull(t *testing.T) {
	_, err := ParseYAML([]byte("xs: [1, 2]\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("x: null\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("- 1\n"))
	assert.Error(t, err)
}

func TestParseYAML_QuotedNumberStaysString(t *testing.T) {
	v, err := ParseYAML([]byte(`s: "42"`))
	require.NoError(t, err)
	s, _ := v.Get("s")
	assert.Equal(t, "42", s)
}
