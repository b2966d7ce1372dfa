package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/quarry/dialect"
)

func openSQLite(t *testing.T) *Driver {
	t.Helper()
	drv, err := OpenDriver(dialect.SQLite, "sqlite", ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = drv.Close() })
	ctx := context.Background()
	require.NoError(t, drv.Exec(ctx, `CREATE TABLE "jobs" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL, "priority" INTEGER NOT NULL DEFAULT 0)`, []any{}, nil))
	require.NoError(t, drv.Exec(ctx, `CREATE TABLE "tags" ("name" TEXT PRIMARY KEY)`, []any{}, nil))
	return drv
}

func queryMaps(t *testing.T, drv *Driver, b *Builder) []map[string]any {
	t.Helper()
	stmt, err := b.Get()
	require.NoError(t, err)
	rows, err := drv.QueryStatement(context.Background(), stmt)
	require.NoError(t, err)
	maps, err := ScanMaps(rows)
	require.NoError(t, err)
	return maps
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)
	jobs := func() *Builder { return NewBuilder(SQLite, "jobs") }

	stmt, err := jobs().InsertBatch([]Row{
		{"id": 1, "name": "build", "priority": 1},
		{"id": 2, "name": "test", "priority": 2},
		{"id": 3, "name": "deploy", "priority": 3},
	})
	require.NoError(t, err)
	res, err := drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	maps := queryMaps(t, drv, jobs().Select("id, name").Where("priority >", 1).OrderBy("id", Desc))
	assert.Equal(t, []map[string]any{
		{"id": int64(3), "name": "deploy"},
		{"id": int64(2), "name": "test"},
	}, maps)

	maps = queryMaps(t, drv, jobs().Select("name").WhereIn("id", 1, 3).Like("name", "de", WithSide(SideAfter)))
	assert.Equal(t, []map[string]any{{"name": "deploy"}}, maps)

	stmt, err = jobs().UpdateBatch([]Row{
		{"id": 1, "name": "compile", "priority": 5},
		{"id": 2, "name": "verify", "priority": 4},
	}, "id")
	require.NoError(t, err)
	_, err = drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)

	maps = queryMaps(t, drv, jobs().Select("id, name, priority").OrderBy("priority", Desc).Limit(2))
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "compile", "priority": int64(5)},
		{"id": int64(2), "name": "verify", "priority": int64(4)},
	}, maps)

	stmt, err = jobs().Set("priority", Expr(`"priority" + 10`)).Update(nil, map[string]any{"id": 3})
	require.NoError(t, err)
	_, err = drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)

	stmt, err = jobs().Where("priority >=", 5).CountAllResults(true)
	require.NoError(t, err)
	rows, err := drv.QueryStatement(ctx, stmt)
	require.NoError(t, err)
	maps, err = ScanMaps(rows)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"numrows": int64(2)}}, maps)

	stmt, err = jobs().Insert(Row{"id": 1, "name": "dup"})
	require.NoError(t, err)
	_, err = drv.ExecStatement(ctx, stmt)
	require.Error(t, err)
	assert.True(t, IsUniqueConstraintError(err), err.Error())

	stmt, err = jobs().Delete(map[string]any{"id": 1})
	require.NoError(t, err)
	res, err = drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)
	n, err = res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stmt, err = jobs().EmptyTable()
	require.NoError(t, err)
	_, err = drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)
	assert.Empty(t, queryMaps(t, drv, jobs()))
}

func TestSQLiteUpsertAndTx(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)

	for range 2 {
		stmt, err := NewBuilder(SQLite, "tags").OnConstraint("name").Upsert(Row{"name": "go"})
		require.NoError(t, err)
		_, err = drv.ExecStatement(ctx, stmt)
		require.NoError(t, err)
	}
	assert.Len(t, queryMaps(t, drv, NewBuilder(SQLite, "tags")), 1)

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	stmt, err := NewBuilder(SQLite, "tags").Insert(Row{"name": "sql"})
	require.NoError(t, err)
	_, err = ExecStatement(ctx, tx, stmt)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Len(t, queryMaps(t, drv, NewBuilder(SQLite, "tags")), 1)

	stmt, err = NewBuilder(SQLite, "tags", WithTestMode()).Insert(Row{"name": "it's"})
	require.NoError(t, err)
	_, err = drv.ExecStatement(ctx, stmt)
	require.NoError(t, err)
	maps := queryMaps(t, drv, NewBuilder(SQLite, "tags").Where("name", "it's"))
	assert.Equal(t, []map[string]any{{"name": "it's"}}, maps)
}
