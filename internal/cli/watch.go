package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// debounce is the quiet period after the last write before recompiling.
const debounce = 200 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <definitions.yaml>",
		Short: "Recompile query definitions whenever the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			run := func() {
				results, err := compileFile(cmd.Context(), opts, path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", failMark("✗"), err)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), dim(fmt.Sprintf("-- %s compiled at %s", path, time.Now().Format(time.TimeOnly))))
				if err := writeResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, results); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", failMark("✗"), err)
				}
			}
			return watchFile(cmd.Context(), path, run, func(err error) {
				opts.Logger.Warn("watch error", "error", err)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Literal, "literal", false, "inline bound values into the SQL")
	cmd.Flags().BoolVar(&opts.Binds, "binds", false, "print the bindings of each statement")

	return cmd
}

// watchFile calls onChange once and again after every debounced write to
// file, until ctx is done. The parent directory is watched so that editors
// replacing the file are noticed.
func watchFile(ctx context.Context, file string, onChange func(), onError func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	onChange()

	timer := time.NewTimer(debounce)
	timer.Stop()
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if p, err := filepath.Abs(ev.Name); err == nil && p == abs {
				timer.Reset(debounce)
				fire = timer.C
			}
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onError(err)
		case <-ctx.Done():
			return nil
		}
	}
}
