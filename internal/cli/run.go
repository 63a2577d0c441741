package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/rtmsg/internal/harness"
	"github.com/roach88/rtmsg/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	TraceDir string
	Parallel int
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	File    string   `json:"file"`
	Name    string   `json:"name,omitempty"`
	Pass    bool     `json:"pass"`
	Events  int      `json:"events"`
	Session string   `json:"session,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run message exchange scenarios",
		Long: `Run scenarios on an in-memory middleware and check their assertions.

Each scenario gets its own node and middleware, so scenarios run in
parallel. With --db every message a scenario's node sees is recorded in
a SQLite session. With --trace the canonical trace of each scenario is
written to <dir>/<name>.trace.

Examples:
  rtmsg run scenarios/*.yaml
  rtmsg run --db ./rtmsg.db --trace ./traces chatter.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record messages in this SQLite database")
	cmd.Flags().StringVar(&opts.TraceDir, "trace", "", "write canonical traces to this directory")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", runtime.GOMAXPROCS(0), "maximum scenarios run at once")

	return cmd
}

func runScenarios(opts *RunOptions, files []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.Logger

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}()
	}
	if opts.TraceDir != "" {
		if err := os.MkdirAll(opts.TraceDir, 0o755); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
	}

	if args := opts.Config.Arguments; len(args) > 0 {
		f.VerboseLog("node %s arguments: %s", opts.nodeName(), strings.Join(args, " "))
	}

	outcomes := make([]ScenarioOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = opts.runOne(gctx, st, file)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Pass {
			failed++
		}
	}

	if f.Format == "json" {
		if err := f.Success(outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			mark := "✓"
			if !o.Pass {
				mark = "✗"
			}
			fmt.Fprintf(f.Writer, "%s %s (%d events)\n", mark, o.label(), o.Events)
			for _, e := range o.Errors {
				fmt.Fprintf(f.Writer, "    %s\n", e)
			}
		}
		fmt.Fprintf(f.Writer, "%d passed, %d failed\n", len(outcomes)-failed, failed)
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%s: %d scenario(s) failed", ErrCodeScenario, failed), Reported: true}
	}
	return nil
}

// runOne loads and runs a single scenario file. Load and execution errors
// are reported as a failed outcome.
func (opts *RunOptions) runOne(ctx context.Context, st *store.Store, file string) ScenarioOutcome {
	out := ScenarioOutcome{File: file}
	fail := func(err error) ScenarioOutcome {
		out.Errors = append(out.Errors, err.Error())
		return out
	}

	sc, err := harness.LoadScenario(file)
	if err != nil {
		return fail(err)
	}
	out.Name = sc.Name
	sc.Schemas.Dirs = append(sc.Schemas.Dirs, opts.Config.SchemaPaths...)

	hopts := []harness.Option{
		harness.WithLogger(opts.Logger.With("scenario", sc.Name)),
		harness.WithAllocator(opts.Allocator),
	}
	if st != nil {
		sess, err := st.StartSession(ctx, opts.nodeName())
		if err != nil {
			return fail(fmt.Errorf("start session: %w", err))
		}
		out.Session = sess.ID
		hopts = append(hopts, harness.WithRecorder(sess))
	}

	opts.Logger.Debug("running scenario", "file", file, "name", sc.Name)
	result, err := harness.Run(ctx, sc, hopts...)
	if err != nil {
		return fail(err)
	}
	out.Pass = result.Pass
	out.Events = len(result.Trace)
	out.Errors = append(out.Errors, result.Errors...)

	if opts.TraceDir != "" {
		data, err := harness.Render(sc.Name, result.Trace)
		if err == nil {
			err = os.WriteFile(filepath.Join(opts.TraceDir, sc.Name+".trace"), data, 0o644)
		}
		if err != nil {
			out.Pass = false
			return fail(fmt.Errorf("write trace: %w", err))
		}
	}
	return out
}

func (o ScenarioOutcome) label() string {
	if o.Name == "" {
		return o.File
	}
	return fmt.Sprintf("%s [%s]", o.Name, o.File)
}
