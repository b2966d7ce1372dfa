// Package cli implements the quarry command line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "text" | "json"
	Dialect   string // overrides the configured dialect
	ConfigDir string

	// Fs is the filesystem definitions and configuration are read from.
	Fs     afero.Fs
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quarry CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "quarry",
		Short: "quarry compiles SQL statements from query definitions",
		Long: `quarry compiles YAML query definitions into dialect-specific SQL
statements with named bind placeholders, and checks the output with a SQL parser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect (ansi|mysql|postgres|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", ".", "directory holding quarry.yaml and .env files")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// setup validates the global flags, loads the configuration and builds the
// logger.
func (o *RootOptions) setup(stderr io.Writer) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	cfg, err := (&config.Loader{Fs: o.Fs, Dir: o.ConfigDir}).Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if o.Dialect != "" {
		if _, err := sql.GrammarFor(o.Dialect); err != nil {
			return WrapExitError(ExitCommandError, "invalid --dialect", err)
		}
		cfg.Dialect = o.Dialect
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if o.Verbose {
		lvl = slog.LevelDebug
	}
	o.Config = cfg
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))
	return nil
}

// grammar returns the grammar selected by the configuration.
func (o *RootOptions) grammar() sql.Grammar {
	return o.Config.Grammar()
}
