package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/internal/querydef"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Literal bool     // inline values instead of placeholders
	Binds   bool     // print a bindings table under each statement
	Cache   bool     // reuse statements from the configured cache
	Queries []string // compile only the named queries
}

// result is the outcome of compiling one query.
type result struct {
	Query querydef.Query
	Stmt  *sql.Statement
	Err   error
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <definitions.yaml>",
		Short: "Compile query definitions to SQL",
		Long: `Compile every query of a YAML definitions file to SQL for the configured
dialect. Statements use :name: placeholders unless --literal is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := compileFile(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, results)
		},
	}

	cmd.Flags().BoolVar(&opts.Literal, "literal", false, "inline bound values into the SQL")
	cmd.Flags().BoolVar(&opts.Binds, "binds", false, "print the bindings of each statement")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "reuse compiled statements from the configured cache")
	cmd.Flags().StringSliceVarP(&opts.Queries, "query", "q", nil, "compile only the named queries")

	return cmd
}

// compileFile reads the definitions file and compiles the selected queries
// concurrently. Compile errors are reported per query.
func compileFile(ctx context.Context, opts *CompileOptions, path string) ([]result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := querydef.ReadFile(opts.Fs, path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading definitions", err)
	}
	queries := f.Queries
	if len(opts.Queries) > 0 {
		queries = queries[:0:0]
		for _, name := range opts.Queries {
			q, ok := f.Lookup(name)
			if !ok {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown query %q", name))
			}
			queries = append(queries, q)
		}
	}
	var sc *sql.StatementCache
	if opts.Cache {
		c, err := opts.Config.OpenCache()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "opening cache", err)
		}
		sc = sql.NewStatementCache(c, opts.Config.Cache.TTL)
	}
	g := opts.grammar()
	bopts := opts.Config.BuilderOptions(opts.Logger)
	if opts.Literal {
		bopts = append(bopts, sql.WithTestMode())
	}
	results := make([]result, len(queries))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range queries {
		eg.Go(func() error {
			compile := func() (*sql.Statement, error) { return q.Compile(g, bopts...) }
			var (
				stmt *sql.Statement
				err  error
			)
			if sc != nil {
				stmt, err = sc.GetOrCompile(ctx, cacheKey(g, q, opts.Config.Prefix, opts.Literal), compile)
			} else {
				stmt, err = compile()
			}
			results[i] = result{Query: q, Stmt: stmt, Err: err}
			opts.Logger.Debug("compiled query", "name", q.Name, "kind", q.Kind, "error", err)
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// cacheKey derives the cache key of q from its definition and the builder
// settings, so an edited query never hits the entry of its previous version.
func cacheKey(g sql.Grammar, q querydef.Query, prefix string, literal bool) quarry.CacheKey {
	data, _ := yaml.Marshal(q)
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "\x00%s\x00%t", prefix, literal)
	return quarry.CacheKey{Dialect: g.Name(), Table: q.Table, Name: q.Name + "@" + hex.EncodeToString(h.Sum(nil)[:8])}
}

func writeResults(w, errw io.Writer, opts *CompileOptions, results []result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if opts.Format == "json" {
		out := make([]CompiledQuery, len(results))
		for i, r := range results {
			out[i] = CompiledQuery{Name: r.Query.Name, Kind: r.Query.Kind, Dialect: opts.grammar().Name()}
			if r.Err != nil {
				out[i].Error = r.Err.Error()
				continue
			}
			out[i].Kind = r.Stmt.Kind
			out[i].SQL = r.Stmt.SQL
			if !r.Stmt.Literal {
				out[i].Binds = r.Stmt.Binds.Map()
			}
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		printed := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(errw, "%s %s: %v\n", failMark("✗"), r.Query.Name, r.Err)
				continue
			}
			if printed > 0 {
				fmt.Fprintln(w)
			}
			printed++
			fmt.Fprintf(w, "%s\n%s;\n", dim(fmt.Sprintf("-- %s (%s)", r.Query.Name, r.Stmt.Kind)), r.Stmt.SQL)
			if opts.Binds && !r.Stmt.Literal {
				writeBinds(w, r.Stmt)
			}
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d queries failed to compile", failed, len(results)))
	}
	return nil
}
