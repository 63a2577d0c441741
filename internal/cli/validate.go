package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rtmsg/internal/compiler"
	"github.com/roach88/rtmsg/internal/msgdef"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Messages int               `json:"messages"`
	Services int               `json:"services"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one unusable schema.
type ValidationIssue struct {
	Type    string   `json:"type"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Check every schema in a directory",
		Long: `Parse and resolve every .msg, .srv and CUE schema under a directory.

Nested types may come from the directory itself or the built-in schemas.
Cycles between message types are reported with their path.

Examples:
  rtmsg validate ./msgs
  rtmsg validate ./msgs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	src, err := schemaSource(dir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	messages, err := src.List(msgdef.KindMessage)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	services, err := src.List(msgdef.KindService)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if len(messages)+len(services) == 0 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("no schemas found in %s", dir), nil)
	}
	f.VerboseLog("found %d message(s) and %d service(s) in %s", len(messages), len(services), dir)

	result := ValidationResult{Valid: true, Messages: len(messages), Services: len(services)}

	// A schema that does not lex stops cycle analysis; the registry below
	// still reports it and every type on a cycle.
	inCycle := make(map[string]bool)
	if graph, err := msgdef.DependencyGraph(src); err != nil {
		f.VerboseLog("skipping cycle analysis: %v", err)
	} else {
		for _, c := range compiler.AnalyzeCycles(graph) {
			for _, name := range c.Members {
				inCycle[name] = true
			}
			result.Errors = append(result.Errors, ValidationIssue{
				Type:    c.Members[0],
				Code:    ErrCodeCycle,
				Message: c.Message,
				Path:    c.Path,
			})
		}
	}

	reg := msgdef.NewRegistry(
		msgdef.WithSource(append(src, msgdef.BuiltinSource())),
		msgdef.WithLogger(opts.Logger),
		msgdef.WithAllocator(opts.Allocator),
	)
	for _, name := range messages {
		if inCycle[name] {
			continue
		}
		f.VerboseLog("checking message %s", name)
		if def := reg.Get(name); !def.IsValid() {
			result.Errors = append(result.Errors, issue(name, def.Err()))
		}
	}
	for _, name := range services {
		f.VerboseLog("checking service %s", name)
		if svc := reg.GetService(name); !svc.IsValid() {
			result.Errors = append(result.Errors, issue(name, svc.Err()))
		}
	}

	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(f, result)
	}
	if f.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ All schemas valid (%d messages, %d services)\n", result.Messages, result.Services)
	return nil
}

func issue(name string, err error) ValidationIssue {
	return ValidationIssue{Type: name, Code: ErrCodeInvalidType, Message: err.Error()}
}

// outputValidationErrors outputs every issue and returns exit code 1.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	slices.SortStableFunc(result.Errors, func(a, b ValidationIssue) int {
		switch {
		case a.Type < b.Type:
			return -1
		case a.Type > b.Type:
			return 1
		}
		return 0
	})
	if f.Format == "json" {
		_ = f.Error(ErrCodeInvalidType, "schema validation failed", result)
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed:")
		for _, e := range result.Errors {
			fmt.Fprintf(f.Writer, "  [%s] %s: %s\n", e.Code, e.Type, e.Message)
		}
	}
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d schema error(s)", len(result.Errors)), Reported: true}
}
