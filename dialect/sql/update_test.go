package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

func TestUpdate(t *testing.T) {
	tests := []struct {
		name  string
		run   func() (*Statement, error)
		sql   string
		binds map[string]any
	}{
		{
			name: "set before where",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "user").Update(Row{"name": "new"}, map[string]any{"name": "old"})
			},
			sql:   `UPDATE "user" SET "name" = :name: WHERE "name" = :name0:`,
			binds: map[string]any{"name": "new", "name0": "old"},
		},
		{
			name: "where added first",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "user").Where("id", 1).Set("id", 2).GetCompiledUpdate(true)
			},
			sql:   `UPDATE "user" SET "id" = :id: WHERE "id" = :id0:`,
			binds: map[string]any{"id": 2, "id0": 1},
		},
		{
			name: "raw value",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "user").Set("count", Expr(`"count" + 1`)).Update(nil, map[string]any{"id": 1})
			},
			sql:   `UPDATE "user" SET "count" = "count" + 1 WHERE "id" = :id:`,
			binds: map[string]any{"id": 1},
		},
		{
			name: "order and limit",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "t").Set("a", 1).OrderBy("id", Desc).Update(nil, nil, 5)
			},
			sql:   `UPDATE "t" SET "a" = :a: ORDER BY "id" DESC LIMIT 5`,
			binds: map[string]any{"a": 1},
		},
		{
			name: "offset ignored",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "t").Set("a", 1).Limit(5, 10).GetCompiledUpdate(true)
			},
			sql:   `UPDATE "t" SET "a" = :a: LIMIT 5`,
			binds: map[string]any{"a": 1},
		},
		{
			name: "subquery value",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "user").
					Set("total", func(b *Builder) *Builder {
						return b.SelectSum("amount").From("orders").WhereRaw(`"orders"."user_id" = "user"."id"`)
					}).
					GetCompiledUpdate(true)
			},
			sql:   `UPDATE "user" SET "total" = (SELECT SUM("amount") AS "amount" FROM "orders" WHERE "orders"."user_id" = "user"."id")`,
			binds: map[string]any{},
		},
		{
			name: "group",
			run: func() (*Statement, error) {
				return NewBuilder(ANSI, "t").
					Set("a", 1).
					GroupStart().Where("b", 1).OrWhere("c", 1).GroupEnd().
					GetCompiledUpdate(true)
			},
			sql:   `UPDATE "t" SET "a" = :a: WHERE ("b" = :b: OR "c" = :c:)`,
			binds: map[string]any{"a": 1, "b": 1, "c": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.binds, stmt.Binds.Map())
			assert.Equal(t, KindUpdate, stmt.Kind)
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	_, err := NewBuilder(ANSI, "t").Update(nil, map[string]any{"id": 1})
	assert.True(t, quarry.IsUsageError(err))

	_, err = NewBuilder(ANSI, "").Update(Row{"a": 1}, nil)
	assert.True(t, quarry.IsUsageError(err))
}

func TestUpdateLimit(t *testing.T) {
	tests := []struct {
		g   Grammar
		sql string
		err string
	}{
		{g: ANSI, sql: `UPDATE "users" SET "name" = :name: WHERE "id" = :id: LIMIT 5`},
		{g: MySQL, sql: "UPDATE `users` SET `name` = :name: WHERE `id` = :id: LIMIT 5"},
		{g: Postgres, err: "postgres does not allow LIMIT on UPDATE"},
		{g: SQLite, err: "sqlite does not allow LIMIT on UPDATE"},
	}
	for _, tt := range tests {
		t.Run(tt.g.Name(), func(t *testing.T) {
			stmt, err := NewBuilder(tt.g, "users").Update(Row{"name": "x"}, map[string]any{"id": 1}, 5)
			if tt.err != "" {
				assert.True(t, quarry.IsUsageError(err))
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
		})
	}

	// Without a limit every grammar compiles the statement.
	stmt, err := NewBuilder(Postgres, "users").Update(Row{"name": "x"}, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "name" = :name: WHERE "id" = :id:`, stmt.SQL)
}

func TestUpdateBatch(t *testing.T) {
	rows := []Row{
		{"id": 1, "name": "a", "age": 30},
		{"id": 2, "name": "b", "age": 40},
	}

	t.Run("rows", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").UpdateBatch(rows, "id")
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "user" SET `+
			`"age" = CASE WHEN "id" = :id0: THEN :age0: WHEN "id" = :id1: THEN :age1: ELSE "age" END, `+
			`"name" = CASE WHEN "id" = :id0: THEN :name0: WHEN "id" = :id1: THEN :name1: ELSE "name" END `+
			`WHERE "id" IN (:id0:,:id1:)`, stmt.SQL)
		assert.Equal(t, []string{"id0", "id1", "age0", "age1", "name0", "name1"}, stmt.Binds.Names())
		assert.Equal(t, KindUpdateBatch, stmt.Kind)
	})

	t.Run("branches per row", func(t *testing.T) {
		var many []Row
		for i := range 7 {
			many = append(many, Row{"id": i, "name": "n", "age": i})
		}
		stmt, err := NewBuilder(ANSI, "user").UpdateBatch(many, "id")
		require.NoError(t, err)
		assert.Equal(t, 14, strings.Count(stmt.SQL, " WHEN "))
		assert.Equal(t, 1, strings.Count(stmt.SQL, " IN ("))
		assert.Equal(t, 6, strings.Count(stmt.SQL[strings.Index(stmt.SQL, " IN ("):], ","))
	})

	t.Run("existing where", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").
			Where("active", 1).
			OrWhere("admin", 1).
			UpdateBatch([]Row{{"id": 1, "name": "a"}}, "id")
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "user" SET "name" = CASE WHEN "id" = :id0: THEN :name0: ELSE "name" END `+
			`WHERE ("active" = :active: OR "admin" = :admin:) AND "id" IN (:id0:)`, stmt.SQL)
	})

	t.Run("positional", func(t *testing.T) {
		stmt, err := NewBuilder(Postgres, "user").UpdateBatch([]Row{{"id": 1, "name": "a"}, {"id": 2, "name": "b"}}, "id")
		require.NoError(t, err)
		query, args, err := stmt.Positional(Postgres)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "user" SET "name" = CASE WHEN "id" = $1 THEN $2 WHEN "id" = $3 THEN $4 ELSE "name" END WHERE "id" IN ($5,$6)`, query)
		assert.Equal(t, []any{1, "a", 2, "b", 1, 2}, args)
	})

	t.Run("staged rows", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").SetBatch(rows...).UpdateBatch(nil, "id")
		require.NoError(t, err)
		assert.Equal(t, 6, stmt.Binds.Len())
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewBuilder(ANSI, "user").UpdateBatch(rows, "")
		assert.True(t, quarry.IsNoIndexError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch(nil, "")
		assert.True(t, quarry.IsNoIndexError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch(nil, "id")
		assert.True(t, quarry.IsUsageError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch([]Row{}, "id")
		assert.True(t, quarry.IsEmptyBatchError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch([]Row{{"id": 1}}, "id")
		assert.True(t, quarry.IsUsageError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch([]Row{{"id": 1, "name": "a"}, {"id": 2}}, "id")
		assert.True(t, quarry.IsUsageError(err))

		_, err = NewBuilder(ANSI, "user").UpdateBatch([]Row{{"id": 1, "name": "a"}, {"name": "b"}}, "id")
		var ie *quarry.NoIndexError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, 1, ie.Row)
	})
}
