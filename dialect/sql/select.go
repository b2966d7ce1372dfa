package sql

import (
	"regexp"
	"strings"

	"github.com/syssam/quarry"
)

var (
	// joinSplitRe splits a join condition on its AND/OR connectors.
	joinSplitRe = regexp.MustCompile(`(?i)\s+(AND|OR)\s+`)
	// joinCmpRe matches "lhs op rhs" comparisons between identifiers.
	joinCmpRe = regexp.MustCompile(`^\s*([A-Za-z_][\w.]*)\s*(=|!=|<>|<=|>=|<|>)\s*([A-Za-z_][\w.]*)\s*$`)
)

// countAlias is the alias of the wrapped query of CountAllResults.
const countAlias = "count_all_results"

type selectOptions struct {
	columns string // replaces the SELECT list when set
	noOrder bool
	noLimit bool
}

// Get compiles the SELECT statement and resets the builder.
//
//	stmt, err := sql.NewBuilder(sql.ANSI, "user").
//		Select("name").
//		Where("id", 3).
//		Get()
//	// SELECT "name" FROM "user" WHERE "id" = :id:
func (b *Builder) Get() (*Statement, error) {
	return b.GetCompiledSelect(true)
}

// GetWhere adds the conditions of where and calls Get.
func (b *Builder) GetWhere(where map[string]any, limit ...int) (*Statement, error) {
	if len(where) > 0 {
		b.WhereMap(where)
	}
	if len(limit) > 0 {
		b.Limit(limit[0], limit[1:]...)
	}
	return b.Get()
}

// GetCompiledSelect compiles the SELECT statement, resetting the builder
// only when reset is set.
func (b *Builder) GetCompiledSelect(reset bool) (*Statement, error) {
	return b.compile(KindSelect, reset, func(c *compiler) string {
		return c.selectQuery(selectOptions{})
	})
}

// CountAll compiles a count of all rows of the table, ignoring conditions.
func (b *Builder) CountAll() (*Statement, error) {
	return b.compile(KindCount, true, func(c *compiler) string {
		return "SELECT COUNT(*) AS " + c.b.grammar.Quote("numrows") + " FROM " + c.target("countAll")
	})
}

// CountAllResults compiles a count of the rows matched by the current
// query. Queries with DISTINCT, GROUP BY or unions are counted through a
// subquery.
func (b *Builder) CountAllResults(reset bool) (*Statement, error) {
	return b.compile(KindCount, reset, func(c *compiler) string {
		s := c.b.state
		count := "COUNT(*) AS " + c.b.grammar.Quote("numrows")
		if s.distinct || len(s.groupBy) > 0 || len(s.unions) > 0 {
			inner := c.selectQuery(selectOptions{noOrder: true})
			return "SELECT " + count + " FROM (" + inner + ") " + c.b.grammar.Quote(countAlias)
		}
		return c.selectQuery(selectOptions{columns: count, noOrder: true, noLimit: true})
	})
}

// Union appends a UNION operand. The closure receives a fresh builder.
func (b *Builder) Union(fn SubqueryFunc) *Builder {
	return b.union("union", false, fn)
}

// UnionAll appends a UNION ALL operand.
func (b *Builder) UnionAll(fn SubqueryFunc) *Builder {
	return b.union("unionAll", true, fn)
}

func (b *Builder) union(op string, all bool, fn SubqueryFunc) *Builder {
	if fn == nil {
		return b.AddError(quarry.NewArgumentTypeError(op, "func(*Builder) *Builder", "nil"))
	}
	b.state.unions = append(b.state.unions, unionPart{all: all, fn: fn})
	return b
}

// UnionOrderBy adds an ORDER BY term applied to the whole union. It is
// ignored when the query has no union operand.
func (b *Builder) UnionOrderBy(field string, dir ...string) *Builder {
	items, err := orderItems("unionOrderBy", field, dir)
	if err != nil {
		return b.AddError(err)
	}
	b.state.unionOrder = append(b.state.unionOrder, items...)
	return b
}

func (c *compiler) selectQuery(opts selectOptions) string {
	s := c.b.state
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.distinct {
		sb.WriteString("DISTINCT ")
	}
	if opts.columns != "" {
		sb.WriteString(opts.columns)
	} else {
		sb.WriteString(c.columns())
	}
	sb.WriteString(" FROM ")
	sb.WriteString(c.from())
	for _, j := range s.joins {
		sb.WriteString(" " + c.join(j))
	}
	if w := s.where.render(c); w != "" {
		sb.WriteString(" WHERE " + w)
	}
	if len(s.groupBy) > 0 {
		parts := make([]string, len(s.groupBy))
		for i, g := range s.groupBy {
			parts[i] = c.esc.Column(g)
		}
		sb.WriteString(" GROUP BY " + strings.Join(parts, ", "))
	}
	if h := s.having.render(c); h != "" {
		sb.WriteString(" HAVING " + h)
	}
	if !opts.noOrder && len(s.orderBy) > 0 {
		sb.WriteString(" ORDER BY " + c.order(s.orderBy))
	}
	if !opts.noLimit {
		if l := c.b.grammar.Limit(s.limit, s.offset); l != "" {
			sb.WriteString(" " + l)
		}
	}
	if len(s.unions) == 0 {
		return sb.String()
	}
	return c.unions(sb.String(), opts)
}

// unions wraps the query and every operand in parentheses. An operand with
// unions of its own is wrapped again, preserving nesting.
func (c *compiler) unions(first string, opts selectOptions) string {
	s := c.b.state
	var sb strings.Builder
	sb.WriteString("(" + first + ")")
	for _, u := range s.unions {
		if u.all {
			sb.WriteString(" UNION ALL ")
		} else {
			sb.WriteString(" UNION ")
		}
		sb.WriteString(c.subquery("union", u.fn))
	}
	if !opts.noOrder && len(s.unionOrder) > 0 {
		sb.WriteString(" ORDER BY " + c.order(s.unionOrder))
	}
	return sb.String()
}

func (c *compiler) columns() string {
	s := c.b.state
	if len(s.selects) == 0 {
		return "*"
	}
	parts := make([]string, len(s.selects))
	for i, it := range s.selects {
		switch {
		case !it.escape:
			parts[i] = it.expr
		case it.agg != "":
			parts[i] = it.agg + "(" + c.esc.Column(it.expr) + ") AS " + c.b.grammar.Quote(it.alias)
		default:
			parts[i] = c.esc.Column(it.expr)
		}
	}
	return strings.Join(parts, ", ")
}

func (c *compiler) from() string {
	s := c.b.state
	if len(s.tables) == 0 {
		if c.b.table == "" {
			c.fail(quarry.NewUsageError("select", "you must set the database table to be used"))
			return ""
		}
		return c.esc.Table(c.b.table)
	}
	parts := make([]string, len(s.tables))
	for i, t := range s.tables {
		if t.sub != nil {
			parts[i] = c.subquery("fromSubquery", t.sub) + " " + c.b.grammar.Quote(t.alias)
		} else {
			parts[i] = c.esc.Table(t.name)
		}
	}
	return strings.Join(parts, ", ")
}

// join renders a JOIN clause. Identifiers on both sides of simple
// comparisons in the condition are escaped; other terms are kept verbatim.
func (c *compiler) join(j joinClause) string {
	kw := "JOIN "
	if j.kind != "" {
		kw = j.kind + " JOIN "
	}
	cond := strings.TrimSpace(j.cond)
	if cond == "" {
		return kw + c.esc.Table(j.table)
	}
	conns := joinSplitRe.FindAllString(cond, -1)
	terms := joinSplitRe.Split(cond, -1)
	var sb strings.Builder
	for i, term := range terms {
		if i > 0 {
			sb.WriteString(" " + strings.ToUpper(strings.TrimSpace(conns[i-1])) + " ")
		}
		if m := joinCmpRe.FindStringSubmatch(term); m != nil {
			sb.WriteString(c.esc.Column(m[1]) + " " + m[2] + " " + c.esc.Column(m[3]))
		} else {
			sb.WriteString(strings.TrimSpace(term))
		}
	}
	return kw + c.esc.Table(j.table) + " ON " + sb.String()
}

func (c *compiler) order(items []orderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		switch {
		case it.dir == Random:
			seed := ""
			if numericRe.MatchString(it.field) {
				seed = it.field
			}
			parts[i] = c.b.grammar.Random(seed)
		case it.dir != "":
			parts[i] = c.esc.Column(it.field) + " " + it.dir
		default:
			parts[i] = c.esc.Column(it.field)
		}
	}
	return strings.Join(parts, ", ")
}
