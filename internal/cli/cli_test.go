package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/dialect/sql"
	"github.com/syssam/quarry/internal/querydef"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// run executes the root command with the testdata configuration directory.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config-dir", "testdata"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "quarry", cmd.Use)
	for _, name := range []string{"compile", "check", "watch", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestCompileGolden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "compile_named", args: []string{"compile", "testdata/queries.yaml"}},
		{name: "compile_literal", args: []string{"compile", "--literal", "testdata/queries.yaml"}},
		{name: "compile_mysql", args: []string{"compile", "-d", "mysql", "-q", "add_user,tag", "testdata/queries.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			newGoldie(t).Assert(t, tt.name, []byte(out))
		})
	}
}

func TestCheckGolden(t *testing.T) {
	out, _, err := run(t, "check", "--dialect", "postgres", "testdata/queries.yaml")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "check_postgres", []byte(out))
}

func TestCompileJSON(t *testing.T) {
	out, _, err := run(t, "compile", "--format", "json", "-q", "active_users", "testdata/queries.yaml")
	require.NoError(t, err)
	var got []CompiledQuery
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "active_users", got[0].Name)
	assert.Equal(t, sql.KindSelect, got[0].Kind)
	assert.Equal(t, "ansi", got[0].Dialect)
	assert.Equal(t, map[string]any{"status": "active", "age": float64(18)}, got[0].Binds)
}

func TestCompileBinds(t *testing.T) {
	out, _, err := run(t, "compile", "--binds", "-q", "active_users", "testdata/queries.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "BIND")
	assert.Contains(t, out, ":status:")
	assert.Contains(t, out, "active")
}

func TestCompileCache(t *testing.T) {
	first, _, err := run(t, "compile", "--cache", "testdata/queries.yaml")
	require.NoError(t, err)
	plain, _, err := run(t, "compile", "testdata/queries.yaml")
	require.NoError(t, err)
	assert.Equal(t, plain, first)
}

func TestCompileFailures(t *testing.T) {
	out, errOut, err := run(t, "compile", "testdata/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 queries failed to compile")
	assert.Contains(t, errOut, "✗ purge_all: quarry: compiling delete:")
	assert.Contains(t, errOut, "✗ empty_insert:")
	assert.Equal(t, "-- everyone (select)\nSELECT * FROM \"user\";\n", out)

	out, _, err = run(t, "check", "--format", "json", "testdata/broken.yaml")
	require.Error(t, err)
	var checks []CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	require.Len(t, checks, 3)
	assert.Equal(t, StatusFailed, checks[0].Status)
	assert.Equal(t, StatusFailed, checks[1].Status)
	assert.Equal(t, StatusOK, checks[2].Status)
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "format", args: []string{"--format", "xml", "compile", "testdata/queries.yaml"}, msg: `invalid format "xml"`},
		{name: "dialect", args: []string{"--dialect", "oracle", "compile", "testdata/queries.yaml"}, msg: "invalid --dialect"},
		{name: "missing file", args: []string{"compile", "testdata/missing.yaml"}, msg: "reading definitions"},
		{name: "unknown query", args: []string{"compile", "-q", "nope", "testdata/queries.yaml"}, msg: `unknown query "nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "quarry ")
	assert.Contains(t, out, "default dialect ansi")

	Version = "v1.2.3"
	t.Cleanup(func() { Version = "" })
	out, _, err = run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "v1.2.3", info["version"])
}

func TestVerboseLogging(t *testing.T) {
	_, errOut, err := run(t, "compile", "-v", "-q", "add_user", "testdata/queries.yaml")
	require.NoError(t, err)
	assert.Contains(t, errOut, `msg="compiled statement"`)
	assert.Contains(t, errOut, `msg="compiled query" name=add_user`)
}

func TestCacheKey(t *testing.T) {
	q := querydef.Query{Name: "a", Table: "t", Where: []querydef.Cond{{Key: "id", Value: 1}}}
	k := cacheKey(sql.ANSI, q, "", false)
	assert.Equal(t, k, cacheKey(sql.ANSI, q, "", false))
	assert.Equal(t, "t", k.Table)
	assert.Equal(t, "ansi", k.Dialect)
	assert.NotEqual(t, k, cacheKey(sql.ANSI, q, "", true))
	assert.NotEqual(t, k, cacheKey(sql.ANSI, q, "app_", false))
	q.Where[0].Value = 2
	assert.NotEqual(t, k, cacheKey(sql.ANSI, q, "", false))
}

func TestWatchFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(file, []byte("queries: []\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, file, func() { changes <- struct{}{} }, func(err error) { t.Log(err) })
	}()

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("initial run not called")
	}
	// Rewrite until the debounced change arrives.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case <-changes:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(file, []byte("queries: []\n# edit\n"), 0o644))
		case <-deadline:
			t.Fatal("change not observed")
		}
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
