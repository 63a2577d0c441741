package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtmsg/internal/config"
	"github.com/roach88/rtmsg/internal/ir"
)

// execute runs the root command with args and returns what it wrote.
// Environment overrides are cleared so the defaults apply.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{config.EnvName, config.EnvNamespace, config.EnvArguments} {
		t.Setenv(k, "")
	}

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "rtmsg", cmd.Use)
	assert.Contains(t, cmd.Long, "schemas loaded at runtime")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "rtmsg version "+ir.Version+"\n", out)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"show", "encode", "decode", "validate", "run", "query"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("schema-path"))
}

func TestEncodeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	encodeCmd, _, err := cmd.Find([]string{"encode"})
	require.NoError(t, err)

	valuesFlag := encodeCmd.Flags().Lookup("values")
	require.NotNil(t, valuesFlag)
	assert.Equal(t, "{}", valuesFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	dbFlag := runCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	require.NotNil(t, runCmd.Flags().Lookup("trace"))
	parallelFlag := runCmd.Flags().Lookup("parallel")
	require.NotNil(t, parallelFlag)
	assert.Equal(t, "p", parallelFlag.Shorthand)
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "invalid", "show", "std_msgs/String")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", "/nonexistent/rtmsg.yaml", "show", "std_msgs/String")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, IsReported(err))
}

func TestMissingSchemaPath(t *testing.T) {
	_, _, err := execute(t, "--schema-path", "/nonexistent/msgs", "show", "std_msgs/String")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
