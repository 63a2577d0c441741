package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

// EncodeResult is the JSON payload of the encode command.
type EncodeResult struct {
	Type   string `json:"type"`
	Length int    `json:"length"`
	Hex    string `json:"hex"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:   "encode <type>",
		Short: "Serialize YAML values to wire bytes",
		Long: `Serialize values given as a YAML mapping and print the wire bytes as hex.

--values takes inline YAML, @file to read a file, or - to read stdin.

Examples:
  rtmsg encode std_msgs/String --values '{data: hello}'
  rtmsg encode std_msgs/Header --values @header.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(rootOpts, args[0], values, cmd)
		},
	}

	cmd.Flags().StringVar(&values, "values", "{}", "values as YAML, @file, or - for stdin")
	return cmd
}

func runEncode(opts *RootOptions, typeName, valuesArg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	reg, err := opts.registry()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	def := reg.Get(typeName)
	if !def.IsValid() {
		return typeError(f, def.Err())
	}

	v, err := readValues(valuesArg, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeEncode, err.Error(), nil)
	}
	f.VerboseLog("encoding %s: %s", def.TypeName(), v)

	buf, err := def.SerializeMessage(v)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeEncode, err.Error(), nil)
	}
	defer func() { _ = def.Disallocate(buf) }()

	encoded := hex.EncodeToString(buf.Bytes())
	if f.Format == "json" {
		return f.Success(EncodeResult{Type: def.TypeName(), Length: buf.Len(), Hex: encoded})
	}
	fmt.Fprintln(f.Writer, encoded)
	return nil
}
