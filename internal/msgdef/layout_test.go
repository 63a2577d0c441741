package msgdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedLayout(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"demo/Bytes": "uint8 a\nint8 b\n",
		"demo/Mixed": "uint8 a\nstring s\ntime t\n",
		"demo/Wide":  "bool flag\nBytes inner\nfloat64 v\n",
	})

	tests := []struct {
		name  string
		size  int
		align int
	}{
		{"demo/Bytes", 2, 1},
		{"demo/Mixed", 1 + 4 + 8, 4},
		{"demo/Wide", 1 + 2 + 8, 8},
		{"std_msgs/Header", 4 + 8 + 4, 4},
		{"std_msgs/Empty", 0, 1},
		{"geometry_msgs/Pose", 7 * 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := reg.Get(tt.name)
			require.True(t, def.IsValid(), "%v", def.Err())
			ts := def.TypeSupport()
			assert.Equal(t, tt.name, ts.TypeName())
			assert.Equal(t, tt.size, ts.Size())
			assert.Equal(t, tt.align, ts.Align())
		})
	}
}

func TestHeapAllocator(t *testing.T) {
	a := NewHeapAllocator()

	b, err := a.Allocate(12, 8)
	require.NoError(t, err)
	assert.Len(t, b, 12)
	assert.Equal(t, int64(1), a.Live())
	require.NoError(t, a.Free(b))
	assert.Equal(t, int64(0), a.Live())

	_, err = a.Allocate(4, 16)
	assert.Error(t, err)
	_, err = a.Allocate(-1, 1)
	assert.Error(t, err)
}
