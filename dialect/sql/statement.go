package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/quarry"
)

// Expr is a raw SQL fragment. It is written verbatim wherever a value is
// accepted and never bound.
//
//	b.Set("count", sql.Expr(`"count" + 1`))
type Expr string

// Unescaped is a value bound with escape=false: it is inlined verbatim into
// the statement instead of being passed as an argument.
type Unescaped struct {
	Value any
}

// NoEscape marks v to be inlined verbatim.
func NoEscape(v any) Unescaped {
	return Unescaped{Value: v}
}

// SubqueryFunc builds a subquery on a fresh builder. Where, WhereIn, Union
// and FromSubquery accept it.
type SubqueryFunc = func(*Builder) *Builder

// Row is one row of column values for INSERT, UPDATE and their batch forms.
type Row = map[string]any

// Statement kinds.
const (
	KindSelect      = "select"
	KindInsert      = "insert"
	KindInsertBatch = "insert_batch"
	KindUpdate      = "update"
	KindUpdateBatch = "update_batch"
	KindDelete      = "delete"
	KindTruncate    = "truncate"
	KindEmpty       = "empty"
	KindReplace     = "replace"
	KindUpsert      = "upsert"
	KindUpsertBatch = "upsert_batch"
	KindCount       = "count"
)

// placeholderRe matches the named placeholders (:name:) of compiled SQL.
var placeholderRe = regexp.MustCompile(`:([A-Za-z0-9_.]+):`)

// Statement is a compiled statement: SQL text with named placeholders plus
// the ordered bindings, or SQL with inlined literals when Literal is set.
type Statement struct {
	Kind    string
	SQL     string
	Binds   *Bindings
	Literal bool
	Dialect string
}

// String implements the fmt.Stringer interface.
func (s *Statement) String() string {
	return s.SQL
}

// Args returns the bound values in assignment order.
func (s *Statement) Args() []any {
	all := s.Binds.All()
	args := make([]any, len(all))
	for i := range all {
		args[i] = all[i].Value
	}
	return args
}

// Positional rewrites the named placeholders into the positional form of g
// and returns the arguments in placeholder order. Slice bindings expand into
// one placeholder per element; unescaped bindings are inlined.
func (s *Statement) Positional(g Grammar) (string, []any, error) {
	if s.Literal {
		return s.SQL, nil, nil
	}
	var (
		args []any
		err  error
	)
	query := replacePlaceholders(s.SQL, func(m string) string {
		bd, ok := s.Binds.Get(m[1 : len(m)-1])
		if !ok {
			return m
		}
		if !bd.Escape {
			return fmt.Sprint(bd.Value)
		}
		if vs, ok := bd.Value.([]any); ok {
			if len(vs) == 0 {
				err = quarry.NewUsageError("positional", fmt.Sprintf("binding %q is an empty list", bd.Name))
				return m
			}
			ps := make([]string, len(vs))
			for i := range vs {
				args = append(args, vs[i])
				ps[i] = g.Placeholder(len(args))
			}
			return "(" + strings.Join(ps, ", ") + ")"
		}
		args = append(args, bd.Value)
		return g.Placeholder(len(args))
	})
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

// Interpolate replaces the named placeholders with escaped literals.
func (s *Statement) Interpolate(g Grammar) string {
	if s.Literal {
		return s.SQL
	}
	return interpolate(g, s.SQL, s.Binds)
}

func interpolate(g Grammar, query string, binds *Bindings) string {
	return replacePlaceholders(query, func(m string) string {
		bd, ok := binds.Get(m[1 : len(m)-1])
		if !ok {
			return m
		}
		if !bd.Escape {
			return fmt.Sprint(bd.Value)
		}
		return g.EscapeLiteral(bd.Value)
	})
}

// replacePlaceholders substitutes the named placeholders of query with the
// result of repl. Single-quoted string literals are copied unchanged; an
// unterminated literal runs to the end of query.
func replacePlaceholders(query string, repl func(string) string) string {
	if !strings.Contains(query, "'") {
		return placeholderRe.ReplaceAllStringFunc(query, repl)
	}
	var sb strings.Builder
	for query != "" {
		i := strings.IndexByte(query, '\'')
		if i < 0 {
			sb.WriteString(placeholderRe.ReplaceAllStringFunc(query, repl))
			break
		}
		sb.WriteString(placeholderRe.ReplaceAllStringFunc(query[:i], repl))
		j := strings.IndexByte(query[i+1:], '\'')
		if j < 0 {
			sb.WriteString(query[i:])
			break
		}
		end := i + j + 2
		sb.WriteString(query[i:end])
		query = query[end:]
	}
	return sb.String()
}
