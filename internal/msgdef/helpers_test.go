package msgdef

import (
	"io"
	"log/slog"
	"testing"
)

const (
	outerSchema = `
uint32 fieldA
string fieldB
NestedType fieldC
`
	nestedSchema = "float64 x\n"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry returns a registry over msgs layered on the builtin schemas.
func newTestRegistry(t *testing.T, msgs map[string]string, opts ...Option) *Registry {
	t.Helper()
	src := MultiSource{MapSource{Messages: msgs}, BuiltinSource()}
	return NewRegistry(append([]Option{WithSource(src), WithLogger(quietLogger())}, opts...)...)
}

func demoRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	return newTestRegistry(t, map[string]string{
		"demo/Outer":      outerSchema,
		"demo/NestedType": nestedSchema,
	}, opts...)
}
