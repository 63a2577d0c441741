package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCUEString_TextAndList(t *testing.T) {
	schemas, err := CompileCUEString(`
messages: {
	"demo/Point": """
		float64 x
		float64 y
		"""
	"demo/Named": ["string name", "demo/Point where"]
}
`)
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	decls, err := ParseDecls(schemas["demo/Point"])
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "x", decls[0].Name)
	assert.Equal(t, "y", decls[1].Name)

	decls, err = ParseDecls(schemas["demo/Named"])
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "demo/Point", decls[1].Type)
}

func TestCompileCUEString_NoMessages(t *testing.T) {
	schemas, err := CompileCUEString(`other: 1`)
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestCompileCUEString_WrongKind(t *testing.T) {
	_, err := CompileCUEString(`messages: { "demo/Bad": 42 }`)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeCUE, pe.Code)
}

func TestCompileCUEString_EvalError(t *testing.T) {
	_, err := CompileCUEString(`messages: { "demo/X": "a" & "b" }`)
	require.Error(t, err)
}

func TestLoadCUEDir(t *testing.T) {
	dir := t.TempDir()
	src := `package schemas

messages: "demo/Flag": "bool on\n"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas.cue"), []byte(src), 0o644))

	schemas, err := LoadCUEDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "bool on\n", schemas["demo/Flag"])
}

func TestLoadCUEDir_Missing(t *testing.T) {
	_, err := LoadCUEDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
