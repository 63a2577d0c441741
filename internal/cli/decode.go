package cli

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
)

// DecodeResult is the JSON payload of the decode command.
type DecodeResult struct {
	Type   string     `json:"type"`
	Values *ir.Values `json:"values"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <type> <hex>",
		Short: "Deserialize hex wire bytes into values",
		Long: `Deserialize wire bytes given as hex and print the values.

Text output is YAML in field order and can be passed back to encode.
Whitespace in the hex string is ignored.

Examples:
  rtmsg decode std_msgs/String 0500000068656c6c6f
  rtmsg decode std_msgs/Header "03000000 01000000 f4010000 00000000" --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runDecode(opts *RootOptions, typeName, hexArg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	reg, err := opts.registry()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	def := reg.Get(typeName)
	if !def.IsValid() {
		return typeError(f, def.Err())
	}

	data, err := hex.DecodeString(strings.Join(strings.Fields(hexArg), ""))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDecode, "invalid hex: "+err.Error(), nil)
	}

	v, err := def.DeserializeMessage(data)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeDecode, err.Error(), nil)
	}

	if f.Format == "json" {
		return f.Success(DecodeResult{Type: def.TypeName(), Values: v})
	}
	out, err := valuesYAML(v)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeDecode, err.Error(), nil)
	}
	_, err = f.Writer.Write(out)
	return err
}

// typeError reports an unusable definition: unknown types are command
// errors, broken schemas are failures.
func typeError(f *OutputFormatter, err error) error {
	if errors.Is(err, msgdef.ErrTypeNotFound) {
		return f.Fail(ExitCommandError, ErrCodeTypeNotFound, err.Error(), nil)
	}
	return f.Fail(ExitFailure, ErrCodeInvalidType, err.Error(), nil)
}
