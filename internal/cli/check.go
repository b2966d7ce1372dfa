package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/quarry/internal/lint"
)

// CheckResult is the outcome of checking one query.
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok" | "failed" | "skipped"
	Error  string `json:"error,omitempty"`
}

// Check statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <definitions.yaml>",
		Short: "Compile query definitions and parse the resulting SQL",
		Long: `Compile every query of a definitions file and parse the statements with the
TiDB SQL parser. Statements outside the MySQL grammar, such as ON CONFLICT
upserts, are reported as skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := compileFile(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			return writeChecks(cmd.OutOrStdout(), opts, checkResults(opts, results))
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Queries, "query", "q", nil, "check only the named queries")

	return cmd
}

func checkResults(opts *CompileOptions, results []result) []CheckResult {
	g := opts.grammar()
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Query.Name, Status: StatusOK}
		err := r.Err
		if err == nil {
			err = lint.Check(r.Stmt, g)
		}
		switch {
		case errors.Is(err, lint.ErrUnsupported):
			out[i].Status = StatusSkipped
			out[i].Error = err.Error()
		case err != nil:
			out[i].Status = StatusFailed
			out[i].Error = err.Error()
		}
	}
	return out
}

func writeChecks(w io.Writer, opts *CompileOptions, checks []CheckResult) error {
	var ok, failed, skipped int
	for _, c := range checks {
		switch c.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	if opts.Format == "json" {
		if err := writeJSON(w, checks); err != nil {
			return err
		}
	} else {
		for _, c := range checks {
			switch c.Status {
			case StatusOK:
				fmt.Fprintf(w, "%s %s\n", okMark("✓"), c.Name)
			case StatusFailed:
				fmt.Fprintf(w, "%s %s: %s\n", failMark("✗"), c.Name, c.Error)
			case StatusSkipped:
				fmt.Fprintf(w, "%s %s: %s\n", skipMark("-"), c.Name, c.Error)
			}
		}
		fmt.Fprintf(w, "\n%d queries: %d ok, %d failed, %d skipped\n", len(checks), ok, failed, skipped)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d queries failed the check", failed, len(checks)))
	}
	return nil
}
