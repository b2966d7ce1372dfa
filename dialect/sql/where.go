package sql

import (
	"strings"

	"github.com/syssam/quarry"
)

// Side controls where LIKE wildcards are placed around the match.
type Side int

const (
	SideBoth   Side = iota // %match%
	SideBefore             // %match
	SideAfter              // match%
	SideNone               // match, wildcards in the match are not escaped
)

// LikeOption configures a LIKE condition.
type LikeOption func(*likeCond)

// WithSide sets the wildcard placement.
func WithSide(s Side) LikeOption {
	return func(c *likeCond) {
		c.side = s
	}
}

// Insensitive compares both sides lowercased.
func Insensitive() LikeOption {
	return func(c *likeCond) {
		c.insensitive = true
	}
}

var (
	and    = attach{conn: connAnd}
	or     = attach{conn: connOr}
	andNot = attach{conn: connAnd, not: true}
	orNot  = attach{conn: connOr, not: true}
)

// Where adds a condition joined with AND. The key may end with an operator
// ("age >", "id !=", "deleted_at IS NOT"); it defaults to "=". A nil value
// renders IS NULL, an Expr value is written verbatim and a SubqueryFunc or
// *Builder value compiles as a subquery.
//
//	b.Where("status", "active").Where("age >=", 18)
func (b *Builder) Where(key string, value any) *Builder {
	return b.cond("where", b.state.where, and, key, value)
}

// OrWhere adds a condition joined with OR.
func (b *Builder) OrWhere(key string, value any) *Builder {
	return b.cond("orWhere", b.state.where, or, key, value)
}

// WhereNot adds a negated condition joined with AND.
func (b *Builder) WhereNot(key string, value any) *Builder {
	return b.cond("whereNot", b.state.where, andNot, key, value)
}

// OrWhereNot adds a negated condition joined with OR.
func (b *Builder) OrWhereNot(key string, value any) *Builder {
	return b.cond("orWhereNot", b.state.where, orNot, key, value)
}

// WhereMap adds one condition per entry, in sorted key order, all joined
// with AND.
func (b *Builder) WhereMap(m map[string]any) *Builder {
	return b.condMap("whereMap", b.state.where, and, m)
}

// OrWhereMap adds the entries of m as a group joined with OR.
func (b *Builder) OrWhereMap(m map[string]any) *Builder {
	return b.condMap("orWhereMap", b.state.where, or, m)
}

// WhereRaw adds an opaque condition joined with AND.
func (b *Builder) WhereRaw(cond string) *Builder {
	return b.raw("whereRaw", b.state.where, and, cond)
}

// OrWhereRaw adds an opaque condition joined with OR.
func (b *Builder) OrWhereRaw(cond string) *Builder {
	return b.raw("orWhereRaw", b.state.where, or, cond)
}

// WhereIn adds "key IN (values)" bound as a single list placeholder.
func (b *Builder) WhereIn(key string, values ...any) *Builder {
	return b.in("whereIn", b.state.where, and, false, key, values)
}

// OrWhereIn adds "key IN (values)" joined with OR.
func (b *Builder) OrWhereIn(key string, values ...any) *Builder {
	return b.in("orWhereIn", b.state.where, or, false, key, values)
}

// WhereNotIn adds "key NOT IN (values)".
func (b *Builder) WhereNotIn(key string, values ...any) *Builder {
	return b.in("whereNotIn", b.state.where, and, true, key, values)
}

// OrWhereNotIn adds "key NOT IN (values)" joined with OR.
func (b *Builder) OrWhereNotIn(key string, values ...any) *Builder {
	return b.in("orWhereNotIn", b.state.where, or, true, key, values)
}

// WhereInQuery adds "key IN (subquery)".
//
//	b.WhereInQuery("id", func(s *sql.Builder) *sql.Builder {
//		return s.Select("user_id").From("orders").Where("total >", 100)
//	})
func (b *Builder) WhereInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("whereInQuery", b.state.where, and, false, key, fn)
}

// OrWhereInQuery adds "key IN (subquery)" joined with OR.
func (b *Builder) OrWhereInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("orWhereInQuery", b.state.where, or, false, key, fn)
}

// WhereNotInQuery adds "key NOT IN (subquery)".
func (b *Builder) WhereNotInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("whereNotInQuery", b.state.where, and, true, key, fn)
}

// OrWhereNotInQuery adds "key NOT IN (subquery)" joined with OR.
func (b *Builder) OrWhereNotInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("orWhereNotInQuery", b.state.where, or, true, key, fn)
}

// WhereBetween adds "key BETWEEN lo AND hi".
func (b *Builder) WhereBetween(key string, lo, hi any) *Builder {
	return b.between("whereBetween", b.state.where, and, false, key, lo, hi)
}

// OrWhereBetween adds "key BETWEEN lo AND hi" joined with OR.
func (b *Builder) OrWhereBetween(key string, lo, hi any) *Builder {
	return b.between("orWhereBetween", b.state.where, or, false, key, lo, hi)
}

// WhereNotBetween adds "key NOT BETWEEN lo AND hi".
func (b *Builder) WhereNotBetween(key string, lo, hi any) *Builder {
	return b.between("whereNotBetween", b.state.where, and, true, key, lo, hi)
}

// Like adds "field LIKE match". Wildcards default to both sides.
func (b *Builder) Like(field, match string, opts ...LikeOption) *Builder {
	return b.like("like", b.state.where, and, false, field, match, opts)
}

// OrLike adds "field LIKE match" joined with OR.
func (b *Builder) OrLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("orLike", b.state.where, or, false, field, match, opts)
}

// NotLike adds "field NOT LIKE match".
func (b *Builder) NotLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("notLike", b.state.where, and, true, field, match, opts)
}

// OrNotLike adds "field NOT LIKE match" joined with OR.
func (b *Builder) OrNotLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("orNotLike", b.state.where, or, true, field, match, opts)
}

// GroupStart opens a parenthesised WHERE group joined with AND.
//
//	b.Where("a", 1).
//		GroupStart().
//			Where("b", 2).OrWhere("c", 3).
//		GroupEnd()
//
// compiles to `"a" = :a: AND ("b" = :b: OR "c" = :c:)`.
func (b *Builder) GroupStart() *Builder {
	b.state.where.open(and)
	return b
}

// OrGroupStart opens a WHERE group joined with OR.
func (b *Builder) OrGroupStart() *Builder {
	b.state.where.open(or)
	return b
}

// NotGroupStart opens a negated WHERE group joined with AND.
func (b *Builder) NotGroupStart() *Builder {
	b.state.where.open(andNot)
	return b
}

// OrNotGroupStart opens a negated WHERE group joined with OR.
func (b *Builder) OrNotGroupStart() *Builder {
	b.state.where.open(orNot)
	return b
}

// GroupEnd closes the innermost WHERE group.
func (b *Builder) GroupEnd() *Builder {
	if !b.state.where.close() {
		return b.usage("groupEnd", "no open group to end")
	}
	return b
}

func (b *Builder) cond(op string, t *condTree, a attach, key string, value any) *Builder {
	if strings.TrimSpace(key) == "" {
		return b.usage(op, "key is required")
	}
	col, operator := parseKey(key)
	escape := true
	switch v := value.(type) {
	case SubqueryFunc:
		if v == nil {
			return b.AddError(quarry.NewArgumentTypeError(op, "func(*Builder) *Builder", "nil"))
		}
	case *Builder:
		if v == nil {
			return b.AddError(quarry.NewArgumentTypeError(op, "*Builder", "nil"))
		}
	case Unescaped:
		escape = false
	}
	t.add(&compareCond{attach: a, col: col, op: operator, value: value, escape: escape})
	return b
}

func (b *Builder) condMap(op string, t *condTree, a attach, m map[string]any) *Builder {
	if len(m) == 0 {
		return b.usage(op, "no conditions given")
	}
	grouped := a.conn == connOr
	if grouped {
		t.open(a)
	}
	for _, k := range sortedKeys(m) {
		b.cond(op, t, and, k, m[k])
	}
	if grouped {
		t.close()
	}
	return b
}

func (b *Builder) raw(op string, t *condTree, a attach, cond string) *Builder {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return b.usage(op, "condition is required")
	}
	t.add(&rawCond{attach: a, sql: cond})
	return b
}

func (b *Builder) in(op string, t *condTree, a attach, negate bool, key string, values []any) *Builder {
	key = strings.TrimSpace(key)
	values = flatten(values)
	switch {
	case key == "":
		return b.usage(op, "key is required")
	case len(values) == 0:
		return b.usage(op, "values list is empty")
	}
	t.add(&inCond{attach: a, col: key, negate: negate, values: values})
	return b
}

func (b *Builder) inQuery(op string, t *condTree, a attach, negate bool, key string, fn SubqueryFunc) *Builder {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return b.usage(op, "key is required")
	case fn == nil:
		return b.AddError(quarry.NewArgumentTypeError(op, "func(*Builder) *Builder", "nil"))
	}
	t.add(&inCond{attach: a, col: key, negate: negate, sub: fn})
	return b
}

func (b *Builder) between(op string, t *condTree, a attach, negate bool, key string, lo, hi any) *Builder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b.usage(op, "key is required")
	}
	t.add(&betweenCond{attach: a, col: key, negate: negate, lo: lo, hi: hi})
	return b
}

func (b *Builder) like(op string, t *condTree, a attach, negate bool, field, match string, opts []LikeOption) *Builder {
	field = strings.TrimSpace(field)
	if field == "" {
		return b.usage(op, "field is required")
	}
	c := &likeCond{attach: a, col: field, match: match, negate: negate}
	for _, opt := range opts {
		opt(c)
	}
	t.add(c)
	return b
}

// flatten expands a single slice argument into its elements.
func flatten(values []any) []any {
	if len(values) != 1 {
		return values
	}
	switch v := values[0].(type) {
	case []any:
		return v
	case []string:
		return toAny(v)
	case []int:
		return toAny(v)
	case []int64:
		return toAny(v)
	case []int32:
		return toAny(v)
	case []uint:
		return toAny(v)
	case []uint64:
		return toAny(v)
	case []float64:
		return toAny(v)
	}
	return values
}

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}
