package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rtmsg/internal/config"
	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/msgdef"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger built from them before a subcommand runs.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	SchemaPaths []string

	Config    *config.Config
	Logger    *slog.Logger
	Allocator msgdef.Allocator
	closeLog  func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rtmsg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "rtmsg",
		Version: ir.Version,
		Short:   "rtmsg - runtime message schemas",
		Long: `Inspect, encode and decode messages against schemas loaded at runtime,
and run message exchange scenarios on an in-memory middleware.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog != nil {
				return opts.closeLog()
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.SchemaPaths, "schema-path", nil, "additional schema directory (repeatable)")

	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger. Logs go to stderr
// unless the configuration names a file.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	cfg.SchemaPaths = append(cfg.SchemaPaths, o.SchemaPaths...)
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	alloc, err := msgdef.NewAllocator(cfg.Allocator)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure allocator", err)
	}

	logger, closeLog, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	o.Config = cfg
	o.Logger = logger
	o.Allocator = alloc
	o.closeLog = closeLog
	return nil
}

// formatter builds an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// nodeName is the configured node's fully qualified name.
func (o *RootOptions) nodeName() string {
	return path.Join(o.Config.Namespace, o.Config.NodeName)
}

// registry builds a definition registry over the built-in schemas followed
// by every configured schema path.
func (o *RootOptions) registry() (*msgdef.Registry, error) {
	src := msgdef.MultiSource{msgdef.BuiltinSource()}
	for _, dir := range o.Config.SchemaPaths {
		s, err := schemaSource(dir)
		if err != nil {
			return nil, err
		}
		src = append(src, s...)
	}
	return msgdef.NewRegistry(
		msgdef.WithSource(src),
		msgdef.WithLogger(o.Logger),
		msgdef.WithAllocator(o.Allocator),
	), nil
}

// schemaSource reads .msg/.srv files under dir, plus the CUE package in
// dir when it holds .cue files.
func schemaSource(dir string) (msgdef.MultiSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema path %s is not a directory", dir)
	}

	src := msgdef.MultiSource{msgdef.NewFSSource(os.DirFS(dir))}
	cueFiles, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(cueFiles) > 0 {
		cs, err := msgdef.CUESource(dir)
		if err != nil {
			return nil, fmt.Errorf("load CUE schemas in %s: %w", dir, err)
		}
		src = append(src, cs)
	}
	return src, nil
}
