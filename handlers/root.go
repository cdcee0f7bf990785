// handlers/root.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// started is set once flags and arguments were accepted.
	started bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ulsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ulsync",
		Short: "Mirror the FCC ULS amateur license database",
		Long: `ulsync keeps a local copy of the FCC Universal Licensing System amateur
license archive. It downloads the weekly archive when it changes, merges it
into a SQLite (or MySQL) store and answers call sign and name lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.started = true
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ulsync.yaml or $ULSYNC_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and hints")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewPruneCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	// Errors raised before any command ran are usage mistakes.
	if !opts.started {
		fmt.Fprintf(stderr, "Error: %v\nRun 'ulsync --help' for usage.\n", err)
		return ExitCommandError
	}
	opts.formatter(stdout, stderr).Error(err)
	return GetExitCode(err)
}

func (o *RootOptions) formatter(out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: out, ErrWriter: errOut, Verbose: o.Verbose}
}

// app is what a command works with once configuration is loaded.
type app struct {
	cfg   *config.Config
	store *database.Store
	out   *OutputFormatter
}

// open loads configuration, configures logging and opens the store.
func (o *RootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	logging.SetupWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)

	store, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &app{cfg: cfg, store: store, out: o.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr())}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.out.VerboseLog("failed to close store: %v", err)
	}
}

// finish writes result, or the failure with whatever partial result exists.
func (a *app) finish(result any, err error, text func(w io.Writer)) error {
	if err != nil {
		return a.out.Failure(result, err, text)
	}
	return a.out.Success(result, text)
}
