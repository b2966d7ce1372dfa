package sql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/dialect"
)

func TestGrammarFor(t *testing.T) {
	tests := []struct {
		name string
		want Grammar
	}{
		{"", ANSI},
		{dialect.ANSI, ANSI},
		{dialect.MySQL, MySQL},
		{"mysql8", MySQL},
		{dialect.Postgres, Postgres},
		{"postgresql", Postgres},
		{dialect.SQLite, SQLite},
		{"sqlite3", SQLite},
	}
	for _, tt := range tests {
		g, err := GrammarFor(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, g, tt.name)
	}
	_, err := GrammarFor("oracle")
	assert.Error(t, err)
}

func TestGrammarEscapeLiteral(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		g    Grammar
		v    any
		want string
	}{
		{"nil", ANSI, nil, "NULL"},
		{"int", ANSI, 42, "42"},
		{"int64", ANSI, int64(-7), "-7"},
		{"float", ANSI, 1.5, "1.5"},
		{"bool ansi", ANSI, true, "1"},
		{"bool postgres", Postgres, false, "FALSE"},
		{"string", ANSI, "O'Brien", "'O''Brien'"},
		{"string mysql", MySQL, `a\b'c`, `'a\\b''c'`},
		{"string mysql plain", MySQL, "abc", "'abc'"},
		{"backslash ansi", ANSI, `a\b`, `'a\b'`},
		{"string postgres", Postgres, "O'Brien", "'O''Brien'"},
		{"bytes", ANSI, []byte("x"), "'x'"},
		{"time", ANSI, ts, "'2024-01-02 03:04:05'"},
		{"list", ANSI, []any{1, "a"}, "(1,'a')"},
		{"expr", ANSI, Expr("NOW()"), "NOW()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.EscapeLiteral(tt.v))
		})
	}
}

func TestGrammarLimit(t *testing.T) {
	tests := []struct {
		g             Grammar
		limit, offset int
		want          string
	}{
		{ANSI, 0, 0, ""},
		{ANSI, 10, 0, "LIMIT 10"},
		{ANSI, 10, 20, "LIMIT 20, 10"},
		{MySQL, 0, 5, "LIMIT 5, 18446744073709551615"},
		{Postgres, 10, 0, "LIMIT 10"},
		{Postgres, 10, 20, "LIMIT 10 OFFSET 20"},
		{Postgres, 0, 20, "OFFSET 20"},
		{SQLite, 0, 20, "LIMIT -1 OFFSET 20"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.g.Limit(tt.limit, tt.offset), "%s %d %d", tt.g.Name(), tt.limit, tt.offset)
	}
}

func TestGrammarDialectForms(t *testing.T) {
	assert.Equal(t, "?", ANSI.Placeholder(3))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "RAND()", MySQL.Random(""))
	assert.Equal(t, "RAND(7)", MySQL.Random("7"))
	assert.Equal(t, "RANDOM()", Postgres.Random("7"))
	assert.Equal(t, `TRUNCATE "t"`, ANSI.Truncate(`"t"`))
	assert.Equal(t, `DELETE FROM "t"`, SQLite.Truncate(`"t"`))
	assert.Equal(t, UpsertDuplicateKey, MySQL.Upsert())
	assert.Equal(t, UpsertOnConflict, Postgres.Upsert())
	assert.False(t, Postgres.SupportsReplace())
	assert.True(t, SQLite.SupportsReplace())
	assert.True(t, ANSI.SupportsWriteLimit())
	assert.True(t, MySQL.SupportsWriteLimit())
	assert.False(t, Postgres.SupportsWriteLimit())
	assert.False(t, SQLite.SupportsWriteLimit())
}
