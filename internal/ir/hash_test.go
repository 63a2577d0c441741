package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageHash_Deterministic(t *testing.T) {
	a := MessageHash("demo/Point", []byte{1, 2, 3})
	b := MessageHash("demo/Point", []byte{1, 2, 3})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestMessageHash_TypeSeparated(t *testing.T) {
	a := MessageHash("demo/A", []byte{1})
	b := MessageHash("demo/B", []byte{1})
	assert.NotEqual(t, a, b)

	// The separator keeps name/payload boundaries unambiguous.
	c := MessageHash("demo/A1", nil)
	d := MessageHash("demo/A", []byte("1"))
	assert.NotEqual(t, c, d)
}
