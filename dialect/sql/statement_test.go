package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
)

func TestStatementPositional(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		stmt, err := NewBuilder(Postgres, "user").Where("id", 1).WhereIn("role", "a", "b").Get()
		require.NoError(t, err)
		query, args, err := stmt.Positional(Postgres)
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "user" WHERE "id" = $1 AND "role" IN ($2, $3)`, query)
		assert.Equal(t, []any{1, "a", "b"}, args)
	})

	t.Run("question marks", func(t *testing.T) {
		stmt, err := NewBuilder(MySQL, "user").Where("id >", 1).WhereIn("role", "a", "b").Limit(3).Get()
		require.NoError(t, err)
		query, args, err := stmt.Positional(MySQL)
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM `user` WHERE `id` > ? AND `role` IN (?, ?) LIMIT 3", query)
		assert.Equal(t, []any{1, "a", "b"}, args)
	})

	t.Run("unescaped values", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "t").Where("n >", NoEscape(5)).Set("a", NoEscape("b + 1")).GetCompiledUpdate(true)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "t" SET "a" = :a: WHERE n > :n:`, stmt.SQL)
		query, args, err := stmt.Positional(ANSI)
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "t" SET "a" = b + 1 WHERE n > 5`, query)
		assert.Empty(t, args)
	})

	t.Run("literal statement", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "t", WithTestMode()).Where("a", 1).Get()
		require.NoError(t, err)
		query, args, err := stmt.Positional(ANSI)
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "t" WHERE "a" = 1`, query)
		assert.Nil(t, args)
	})

	t.Run("empty list", func(t *testing.T) {
		binds := NewBindings()
		binds.Bind("ids", []any{}, true)
		stmt := &Statement{SQL: `"id" IN :ids:`, Binds: binds}
		_, _, err := stmt.Positional(ANSI)
		assert.True(t, quarry.IsUsageError(err))
	})

	t.Run("unknown placeholder", func(t *testing.T) {
		stmt, err := NewBuilder(ANSI, "t").WhereRaw("at > '12:30:45'").Where("a", 1).Get()
		require.NoError(t, err)
		query, args, err := stmt.Positional(ANSI)
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "t" WHERE at > '12:30:45' AND "a" = ?`, query)
		assert.Equal(t, []any{1}, args)
	})
}

func TestStatementQuotedPlaceholders(t *testing.T) {
	stmt, err := NewBuilder(ANSI, "t").WhereRaw("note = ':id:' OR note = 'it''s :id:'").Where("id", 1).Get()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE note = ':id:' OR note = 'it''s :id:' AND "id" = :id:`, stmt.SQL)

	query, args, err := stmt.Positional(Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE note = ':id:' OR note = 'it''s :id:' AND "id" = $1`, query)
	assert.Equal(t, []any{1}, args)
	assert.Equal(t, `SELECT * FROM "t" WHERE note = ':id:' OR note = 'it''s :id:' AND "id" = 1`, stmt.Interpolate(ANSI))

	// An unterminated literal is copied as is.
	assert.Equal(t, "x = 1 AND y = ':id:", replacePlaceholders("x = :id: AND y = ':id:", func(string) string { return "1" }))
}

func TestStatementInterpolate(t *testing.T) {
	stmt, err := NewBuilder(Postgres, "user").
		Where("name", "O'Brien").
		Where("active", true).
		Where("score", 1.5).
		Where("n", NoEscape("n + 1")).
		Get()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "user" WHERE "name" = 'O''Brien' AND "active" = TRUE AND "score" = 1.5 AND n = n + 1`, stmt.Interpolate(Postgres))
	assert.Equal(t, []any{"O'Brien", true, 1.5, "n + 1"}, stmt.Args())
	assert.Equal(t, stmt.SQL, stmt.String())

	lit := &Statement{SQL: "SELECT :a:", Literal: true}
	assert.Equal(t, "SELECT :a:", lit.Interpolate(ANSI))
}
