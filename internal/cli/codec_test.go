package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerHex = "0300000001000000f4010000030000006d6170"

func TestEncode_Inline(t *testing.T) {
	out, _, err := execute(t, "encode", "std_msgs/String", "--values", "{data: hello}")
	require.NoError(t, err)
	assert.Equal(t, "0500000068656c6c6f\n", out)
}

func TestEncode_NestedJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "encode", "std_msgs/Header",
		"--values", "{seq: 3, stamp: {sec: 1, nsec: 500}, frame_id: map}")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, EncodeResult{Type: "std_msgs/Header", Length: 19, Hex: headerHex}, resp.Data)
}

func TestEncode_Allocator(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mmap allocator needs unix")
	}
	dir := writeFiles(t, map[string]string{
		"mmap.yaml":  "allocator: mmap\n",
		"arena.yaml": "allocator: arena\n",
	})

	out, _, err := execute(t, "--config", filepath.Join(dir, "mmap.yaml"),
		"encode", "std_msgs/Header", "--values", "{seq: 3, stamp: {sec: 1, nsec: 500}, frame_id: map}")
	require.NoError(t, err)
	assert.Equal(t, headerHex+"\n", out)

	out, _, err = execute(t, "--config", filepath.Join(dir, "mmap.yaml"), "decode", "std_msgs/Header", headerHex)
	require.NoError(t, err)
	assert.Contains(t, out, "frame_id: map")

	_, _, err = execute(t, "--config", filepath.Join(dir, "arena.yaml"), "encode", "std_msgs/String")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `allocator "arena"`)
}

func TestEncode_FromFileAndStdin(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(file, []byte("data: hello\n"), 0o644))

	out, _, err := execute(t, "encode", "std_msgs/String", "--values", "@"+file)
	require.NoError(t, err)
	assert.Equal(t, "0500000068656c6c6f\n", out)

	cmd := NewRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("data: hello\n"))
	cmd.SetArgs([]string{"encode", "std_msgs/String", "--values", "-"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "0500000068656c6c6f\n", stdout.String())
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"unknown type", []string{"encode", "demo/Missing"}, ExitCommandError, "E101"},
		{"bad yaml", []string{"encode", "std_msgs/String", "--values", "{data: [1"}, ExitCommandError, "E201"},
		{"missing file", []string{"encode", "std_msgs/String", "--values", "@/nonexistent.yaml"}, ExitCommandError, "E201"},
		{"missing field", []string{"encode", "std_msgs/String", "--values", "{}"}, ExitFailure, "E201"},
		{"out of range", []string{"encode", "std_msgs/UInt32", "--values", "{data: -1}"}, ExitFailure, "E201"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestDecode_Text(t *testing.T) {
	out, _, err := execute(t, "decode", "std_msgs/Header", headerHex)
	require.NoError(t, err)
	assert.Equal(t, "seq: 3\nstamp:\n  sec: 1\n  nsec: 500\nframe_id: map\n", out)
}

func TestDecode_IgnoresWhitespace(t *testing.T) {
	out, _, err := execute(t, "decode", "std_msgs/String", "05000000 68656c6c6f")
	require.NoError(t, err)
	assert.Equal(t, "data: hello\n", out)
}

func TestDecode_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "decode", "std_msgs/Header", headerHex)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "ok",
		"data": {
			"type": "std_msgs/Header",
			"values": {"seq": 3, "stamp": {"sec": 1, "nsec": 500}, "frame_id": "map"}
		}
	}`, out)
}

func TestDecode_OutputEncodesBack(t *testing.T) {
	tests := []struct {
		typeName string
		hex      string
	}{
		{"std_msgs/Header", headerHex},
		{"geometry_msgs/Point", "000000000000f83f00000000000000c00000000000000000"},
		{"std_msgs/String", "03000000313233"},
		{"std_msgs/Bool", "01"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			yamlOut, _, err := execute(t, "decode", tt.typeName, tt.hex)
			require.NoError(t, err)

			hexOut, _, err := execute(t, "encode", tt.typeName, "--values", yamlOut)
			require.NoError(t, err)
			assert.Equal(t, tt.hex+"\n", hexOut)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"unknown type", []string{"decode", "demo/Missing", "00"}, ExitCommandError, "E101"},
		{"bad hex", []string{"decode", "std_msgs/String", "zz"}, ExitCommandError, "E202"},
		{"short buffer", []string{"decode", "std_msgs/String", "05000000"}, ExitFailure, "E202"},
		{"trailing bytes", []string{"decode", "std_msgs/Bool", "0100"}, ExitFailure, "E202"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
