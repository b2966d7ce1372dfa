package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

func TestDelete(t *testing.T) {
	t.Run("where map", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").Delete(map[string]any{"id": 1})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "user" WHERE "id" = :id:`, stmt.SQL)
		assert.Equal(t, KindDelete, stmt.Kind)
	})

	t.Run("conditions and limit", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").Where("age <", 18).WhereIn("role", "guest", "bot").Delete(nil, 10)
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "user" WHERE "age" < :age: AND "role" IN :role: LIMIT 10`, stmt.SQL)
	})

	t.Run("from table", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "user").From("logs").Where("level", "debug").GetCompiledDelete(true)
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "logs" WHERE "level" = :level:`, stmt.SQL)
	})

	t.Run("without where", func(t *testing.T) {
		_, err := NewBuilder(ANSI, "user").Delete(nil)
		assert.True(t, quarry.IsUsageError(err))
		assert.ErrorContains(t, err, "deletes are not allowed unless they contain a WHERE clause")

		// An empty group is no condition either.
		_, err = NewBuilder(ANSI, "user").GroupStart().GroupEnd().Delete(nil)
		assert.True(t, quarry.IsUsageError(err))
	})
}

func TestDeleteLimit(t *testing.T) {
	tests := []struct {
		g   Grammar
		sql string
		err string
	}{
		{g: ANSI, sql: `DELETE FROM "users" WHERE "id" = :id: LIMIT 5`},
		{g: MySQL, sql: "DELETE FROM `users` WHERE `id` = :id: LIMIT 5"},
		{g: Postgres, err: "postgres does not allow LIMIT on DELETE"},
		{g: SQLite, err: "sqlite does not allow LIMIT on DELETE"},
	}
	for _, tt := range tests {
		t.Run(tt.g.Name(), func(t *testing.T) {
			stmt, err := NewBuilder(tt.g, "users").Delete(map[string]any{"id": 1}, 5)
			if tt.err != "" {
				assert.True(t, quarry.IsUsageError(err))
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
		})
	}
}

func TestEmptyTable(t *testing.T) {
	stmt, err := NewBuilder(ANSI, "user").Where("ignored", 1).EmptyTable()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "user"`, stmt.SQL)
	assert.Equal(t, KindEmpty, stmt.Kind)
	assert.Zero(t, stmt.Binds.Len())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		g   Grammar
		sql string
	}{
		{ANSI, `TRUNCATE "user"`},
		{MySQL, "TRUNCATE `user`"},
		{Postgres, `TRUNCATE "user"`},
		{SQLite, `DELETE FROM "user"`},
	}
	for _, tt := range tests {
		t.Run(tt.g.Name(), func(t *testing.T) {
			stmt, err := NewBuilder(tt.g, "user").Truncate()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, KindTruncate, stmt.Kind)
		})
	}

	_, err := NewBuilder(ANSI, "").Truncate()
	assert.True(t, quarry.IsUsageError(err))
}
