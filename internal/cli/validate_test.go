package cli

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"demo/msg/Counter.msg": "uint64 count\nstring label\n",
		"demo/msg/Stamped.msg": "std_msgs/Header header\nCounter counter\n",
		"demo/srv/Reset.srv":   "uint64 to\n---\nbool ok\n",
	})

	out, _, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Equal(t, "✓ All schemas valid (2 messages, 1 services)\n", out)
}

func TestValidate_ValidJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"demo/Flat.msg": "int8 a\n",
	})

	out, _, err := execute(t, "--format", "json", "validate", dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Messages)
}

func TestValidate_Cycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"demo/msg/A.msg": "B b\n",
		"demo/msg/B.msg": "A a\n",
		"demo/msg/C.msg": "int32 ok\n",
	})

	out, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "✗ Validation failed:")
	assert.Contains(t, out, "[E301] demo/A")
	assert.NotContains(t, out, "demo/C")
	assert.NotContains(t, out, "[E102]")
}

func TestValidate_InvalidSchemas(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"demo/msg/Bad.msg":      "int32\n",
		"demo/msg/Dangling.msg": "demo/Nowhere x\n",
		"demo/srv/Half.srv":     "int32 a\n---\nfloat99 b\n",
	})

	out, _, err := execute(t, "--format", "json", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Error.Details.Valid)

	var types []string
	for _, e := range resp.Error.Details.Errors {
		assert.Equal(t, ErrCodeInvalidType, e.Code)
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"demo/Bad", "demo/Dangling", "demo/Half"}, types)
}

func TestValidate_CommandErrors(t *testing.T) {
	_, _, err := execute(t, "validate", "/nonexistent/msgs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	empty := t.TempDir()
	out, _, err := execute(t, "validate", empty)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no schemas found")
}
