package sql

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/quarry/dialect"
)

// UpsertStyle selects how a grammar renders an UPSERT statement.
type UpsertStyle int

const (
	// UpsertDuplicateKey renders INSERT ... ON DUPLICATE KEY UPDATE.
	UpsertDuplicateKey UpsertStyle = iota
	// UpsertOnConflict renders INSERT ... ON CONFLICT (...) DO UPDATE SET.
	UpsertOnConflict
)

// likeEscapeChar escapes LIKE wildcards in bound match values.
const likeEscapeChar = '!'

// Grammar is the dialect policy consumed by the builder: identifier quoting,
// literal escaping, placeholder style and the few statement forms that
// differ between databases.
type Grammar interface {
	// Name returns the dialect name (see the dialect package constants).
	Name() string
	// Quote quotes a single identifier segment.
	Quote(segment string) string
	// EscapeLiteral renders v as an SQL literal.
	EscapeLiteral(v any) string
	// Placeholder returns the positional placeholder for the n-th (1-based) argument.
	Placeholder(n int) string
	// Random returns the random ordering function, seeded when seed is not empty.
	Random(seed string) string
	// Limit renders the LIMIT clause without a leading space. It returns ""
	// when limit and offset are both zero.
	Limit(limit, offset int) string
	// Upsert returns the UPSERT style of the dialect.
	Upsert() UpsertStyle
	// Truncate renders the statement that removes all rows of the escaped table.
	Truncate(table string) string
	// SupportsReplace reports whether REPLACE INTO is available.
	SupportsReplace() bool
	// SupportsWriteLimit reports whether UPDATE and DELETE accept a LIMIT.
	SupportsWriteLimit() bool
}

// grammar is the table-driven Grammar implementation shared by all dialects.
type grammar struct {
	name       string
	quote      byte
	positional bool // $1, $2 ... instead of ?
	random     string
	seeded     string
	limitStyle int
	upsert     UpsertStyle
	truncate   string
	replace    bool
	writeLimit bool // LIMIT on UPDATE and DELETE
	boolWords  bool // TRUE/FALSE instead of 1/0
	backslash  bool // backslashes are escape characters in string literals
}

const (
	limitOffsetComma = iota // LIMIT 20, 10
	limitOffsetWord         // LIMIT 10 OFFSET 20
)

var (
	// ANSI quotes identifiers with double quotes and uses named placeholders
	// converted to "?" for execution. It is the default grammar.
	ANSI Grammar = &grammar{
		name:       dialect.ANSI,
		quote:      '"',
		random:     "RAND()",
		seeded:     "RAND(%s)",
		limitStyle: limitOffsetComma,
		upsert:     UpsertDuplicateKey,
		truncate:   "TRUNCATE ",
		replace:    true,
		writeLimit: true,
	}
	// MySQL quotes identifiers with backticks.
	MySQL Grammar = &grammar{
		name:       dialect.MySQL,
		quote:      '`',
		random:     "RAND()",
		seeded:     "RAND(%s)",
		limitStyle: limitOffsetComma,
		upsert:     UpsertDuplicateKey,
		truncate:   "TRUNCATE ",
		replace:    true,
		writeLimit: true,
		backslash:  true,
	}
	// Postgres uses $n placeholders and ON CONFLICT upserts.
	Postgres Grammar = &postgres{grammar{
		name:       dialect.Postgres,
		quote:      '"',
		positional: true,
		random:     "RANDOM()",
		limitStyle: limitOffsetWord,
		upsert:     UpsertOnConflict,
		truncate:   "TRUNCATE ",
		boolWords:  true,
	}}
	// SQLite has no TRUNCATE; Truncate renders DELETE FROM. Stock SQLite
	// builds do not accept LIMIT on UPDATE and DELETE.
	SQLite Grammar = &grammar{
		name:       dialect.SQLite,
		quote:      '"',
		random:     "RANDOM()",
		limitStyle: limitOffsetWord,
		upsert:     UpsertOnConflict,
		truncate:   "DELETE FROM ",
		replace:    true,
	}
)

// GrammarFor returns the grammar registered for the dialect name.
func GrammarFor(name string) (Grammar, error) {
	switch {
	case name == "" || name == dialect.ANSI:
		return ANSI, nil
	case strings.HasPrefix(name, dialect.MySQL):
		return MySQL, nil
	case strings.HasPrefix(name, dialect.Postgres):
		return Postgres, nil
	case strings.HasPrefix(name, dialect.SQLite):
		return SQLite, nil
	default:
		return nil, fmt.Errorf("dialect/sql: unknown dialect %q", name)
	}
}

func (g *grammar) Name() string { return g.name }

func (g *grammar) Quote(s string) string {
	q := string(g.quote)
	if len(s) >= 2 && s[0] == g.quote && s[len(s)-1] == g.quote {
		return s
	}
	return q + strings.ReplaceAll(s, q, q+q) + q
}

func (g *grammar) Placeholder(n int) string {
	if g.positional {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (g *grammar) Random(seed string) string {
	if seed != "" && g.seeded != "" {
		return fmt.Sprintf(g.seeded, seed)
	}
	return g.random
}

func (g *grammar) Limit(limit, offset int) string {
	switch {
	case limit <= 0 && offset <= 0:
		return ""
	case g.limitStyle == limitOffsetWord && limit <= 0:
		if g.name == dialect.SQLite {
			return "LIMIT -1 OFFSET " + strconv.Itoa(offset)
		}
		return "OFFSET " + strconv.Itoa(offset)
	case g.limitStyle == limitOffsetWord && offset > 0:
		return "LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	case limit <= 0:
		// MySQL has no OFFSET without LIMIT; use the largest row count.
		return "LIMIT " + strconv.Itoa(offset) + ", 18446744073709551615"
	case offset > 0:
		return "LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
	default:
		return "LIMIT " + strconv.Itoa(limit)
	}
}

func (g *grammar) Upsert() UpsertStyle { return g.upsert }

func (g *grammar) Truncate(table string) string { return g.truncate + table }

func (g *grammar) SupportsReplace() bool { return g.replace }

func (g *grammar) SupportsWriteLimit() bool { return g.writeLimit }

func (g *grammar) EscapeLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case Expr:
		return string(v)
	case bool:
		if g.boolWords {
			return strings.ToUpper(strconv.FormatBool(v))
		}
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return g.quoteString(v)
	case []byte:
		return g.quoteString(string(v))
	case time.Time:
		return g.quoteString(v.Format("2006-01-02 15:04:05"))
	case []any:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = g.EscapeLiteral(v[i])
		}
		return "(" + strings.Join(parts, ",") + ")"
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return "NULL"
		}
		return g.EscapeLiteral(dv)
	case fmt.Stringer:
		return g.quoteString(v.String())
	default:
		return g.quoteString(fmt.Sprint(v))
	}
}

// quoteString wraps s in single quotes, doubling embedded quotes. Grammars
// reading backslashes as escapes get them doubled as well.
func (g *grammar) quoteString(s string) string {
	r := quoteReplacer
	if g.backslash {
		r = backslashQuoteReplacer
	}
	return "'" + r.Replace(s) + "'"
}

var (
	quoteReplacer          = strings.NewReplacer("'", "''")
	backslashQuoteReplacer = strings.NewReplacer("'", "''", `\`, `\\`)
)

// postgres overrides quoting with the lib/pq helpers.
type postgres struct{ grammar }

func (p *postgres) Quote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s
	}
	return pq.QuoteIdentifier(s)
}

func (p *postgres) EscapeLiteral(v any) string {
	switch v := v.(type) {
	case string:
		return pq.QuoteLiteral(v)
	case []byte:
		return pq.QuoteLiteral(string(v))
	case time.Time:
		return pq.QuoteLiteral(v.Format(time.RFC3339Nano))
	case []any:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = p.EscapeLiteral(v[i])
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return p.grammar.EscapeLiteral(v)
	}
}
