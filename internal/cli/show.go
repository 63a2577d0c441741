package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rtmsg/internal/msgdef"
)

// TypeInfo describes a message or service type.
type TypeInfo struct {
	Type      string         `json:"type"`
	Kind      string         `json:"kind"` // "message" | "service"
	Fields    []FieldInfo    `json:"fields,omitempty"`
	Constants []ConstantInfo `json:"constants,omitempty"`
	Size      int            `json:"size,omitempty"`
	Align     int            `json:"align,omitempty"`
	Request   *TypeInfo      `json:"request,omitempty"`
	Response  *TypeInfo      `json:"response,omitempty"`
}

// FieldInfo describes one field. Nested message fields carry their own.
type FieldInfo struct {
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Fields []FieldInfo `json:"fields,omitempty"`
}

// ConstantInfo describes one declared constant.
type ConstantInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <type>",
		Short: "Print the resolved definition of a message or service type",
		Long: `Resolve a message or service type and print its fields with nested
types expanded.

Examples:
  rtmsg show std_msgs/Header
  rtmsg show std_srvs/SetBool --format json
  rtmsg show demo/Outer --schema-path ./msgs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, typeName string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	reg, err := opts.registry()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	def := reg.Get(typeName)
	if def.IsValid() {
		if f.Format == "json" {
			return f.Success(messageInfo(def))
		}
		fmt.Fprint(f.Writer, def.Describe())
		return nil
	}
	if !errors.Is(def.Err(), msgdef.ErrTypeNotFound) {
		return f.Fail(ExitFailure, ErrCodeInvalidType, def.Err().Error(), nil)
	}

	svc := reg.GetService(typeName)
	if !svc.IsValid() {
		if errors.Is(svc.Err(), msgdef.ErrTypeNotFound) {
			return f.Fail(ExitCommandError, ErrCodeTypeNotFound, fmt.Sprintf("unknown type %s", typeName), nil)
		}
		return f.Fail(ExitFailure, ErrCodeInvalidType, svc.Err().Error(), nil)
	}
	if f.Format == "json" {
		return f.Success(TypeInfo{
			Type:     svc.TypeName(),
			Kind:     "service",
			Request:  messageInfo(svc.Request()),
			Response: messageInfo(svc.Response()),
		})
	}
	fmt.Fprint(f.Writer, describeService(svc))
	return nil
}

func messageInfo(def *msgdef.Definition) *TypeInfo {
	info := &TypeInfo{
		Type:   def.TypeName(),
		Kind:   "message",
		Fields: fieldInfos(def),
	}
	for _, c := range def.Constants() {
		info.Constants = append(info.Constants, ConstantInfo{Name: c.Name, Type: c.Type, Value: c.Value})
	}
	if ts := def.TypeSupport(); ts != nil {
		info.Size = ts.Size()
		info.Align = ts.Align()
	}
	return info
}

func fieldInfos(def *msgdef.Definition) []FieldInfo {
	fields := def.Fields()
	out := make([]FieldInfo, 0, len(fields))
	for _, fld := range fields {
		fi := FieldInfo{Name: fld.Name(), Type: fld.TypeName()}
		if nested := fld.Definition(); nested != nil {
			fi.Fields = fieldInfos(nested)
		}
		out = append(out, fi)
	}
	return out
}

func describeService(svc *msgdef.ServiceDefinition) string {
	var b strings.Builder
	b.WriteString(svc.TypeName())
	b.WriteString(" (service)\n")
	b.WriteString(svc.Request().Describe())
	b.WriteString("---\n")
	b.WriteString(svc.Response().Describe())
	return b.String()
}
