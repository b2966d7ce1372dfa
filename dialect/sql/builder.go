package sql

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/syssam/quarry"
)

// Order directions accepted by OrderBy and UnionOrderBy.
const (
	Asc    = "ASC"
	Desc   = "DESC"
	Random = "RANDOM"
)

// joinKinds are the accepted JOIN kinds.
var joinKinds = []string{"", "LEFT", "RIGHT", "OUTER", "INNER", "LEFT OUTER", "RIGHT OUTER", "FULL", "FULL OUTER", "CROSS", "NATURAL"}

// Builder is a stateful SQL statement builder. Fluent calls accumulate
// clauses; terminal calls (Get, Insert, Update, Delete, ...) compile them
// into a Statement and reset the builder to its cached prefix.
//
// A Builder is not safe for concurrent use. Use Clone to derive independent
// builders from a shared base.
type Builder struct {
	grammar  Grammar
	prefix   string
	table    string
	testMode bool
	logger   *slog.Logger

	state   *clauseState
	cached  *clauseState // nil unless a cache window was closed
	caching bool
	last    *Statement
}

// Option configures a Builder.
type Option func(*Builder)

// WithPrefix sets the table prefix applied to table names.
func WithPrefix(prefix string) Option {
	return func(b *Builder) {
		b.prefix = prefix
	}
}

// WithTestMode compiles statements with inlined literals instead of named
// placeholders.
func WithTestMode() Option {
	return func(b *Builder) {
		b.testMode = true
	}
}

// WithLogger sets the logger of compiled statements (debug level).
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a builder for the given table. The table survives
// resets and is used when no FROM table was added.
func NewBuilder(g Grammar, table string, opts ...Option) *Builder {
	if g == nil {
		g = ANSI
	}
	b := &Builder{
		grammar: g,
		table:   table,
		logger:  slog.New(slog.DiscardHandler),
		state:   newClauseState(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DialectBuilder prefixes all root builders with the same dialect.
type DialectBuilder struct {
	grammar Grammar
	opts    []Option
	err     error
}

// Dialect creates a new DialectBuilder with the given dialect name.
// An unknown name is reported by the first compile of its builders.
func Dialect(name string, opts ...Option) *DialectBuilder {
	g, err := GrammarFor(name)
	if err != nil {
		return &DialectBuilder{grammar: ANSI, opts: opts, err: quarry.NewUsageError("dialect", err.Error())}
	}
	return &DialectBuilder{grammar: g, opts: opts}
}

// Table returns a builder for the given table.
//
//	Dialect(dialect.Postgres).
//		Table("users").
//		Where("age >", 30)
func (d *DialectBuilder) Table(name string) *Builder {
	b := NewBuilder(d.grammar, name, d.opts...)
	if d.err != nil {
		b.state.errs = append(b.state.errs, d.err)
	}
	return b
}

// Select returns a builder without a base table selecting the given columns.
//
//	Dialect(dialect.MySQL).
//		Select("id", "name").
//		From("users")
func (d *DialectBuilder) Select(columns ...string) *Builder {
	return d.Table("").Select(columns...)
}

// Grammar returns the grammar of the builder.
func (b *Builder) Grammar() Grammar { return b.grammar }

// TableName returns the base table of the builder.
func (b *Builder) TableName() string { return b.table }

// Prefix returns the table prefix.
func (b *Builder) Prefix() string { return b.prefix }

// TestMode reports whether statements are compiled with inlined literals.
func (b *Builder) TestMode() bool { return b.testMode }

// SetTestMode toggles test mode.
func (b *Builder) SetTestMode(on bool) *Builder {
	b.testMode = on
	return b
}

// LastStatement returns the most recently compiled statement, or nil.
func (b *Builder) LastStatement() *Statement { return b.last }

// Binds returns the bindings of the most recently compiled statement.
func (b *Builder) Binds() *Bindings {
	if b.last == nil {
		return NewBindings()
	}
	return b.last.Binds
}

// Err returns the errors recorded by fluent calls since the last compile.
func (b *Builder) Err() error {
	return errors.Join(b.state.errs...)
}

// AddError records an error that fails the next compile.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.state.errs = append(b.state.errs, err)
	}
	return b
}

func (b *Builder) usage(op, format string, args ...any) *Builder {
	return b.AddError(quarry.NewUsageError(op, fmt.Sprintf(format, args...)))
}

// Clone returns an independent copy of the builder, including its cached
// prefix.
func (b *Builder) Clone() *Builder {
	c := *b
	c.state = b.state.clone()
	if b.cached != nil {
		c.cached = b.cached.cachedSubset()
	}
	return &c
}

// sub returns a fresh builder for subqueries and union operands.
func (b *Builder) sub() *Builder {
	return &Builder{
		grammar:  b.grammar,
		prefix:   b.prefix,
		testMode: b.testMode,
		logger:   b.logger,
		state:    newClauseState(),
	}
}

// Select adds columns to the SELECT list. Comma separated lists are split.
func (b *Builder) Select(columns ...string) *Builder {
	for _, c := range columns {
		for _, item := range splitList(c) {
			b.state.selects = append(b.state.selects, selectItem{expr: item, escape: true})
		}
	}
	return b
}

// SelectRaw adds an expression to the SELECT list verbatim.
func (b *Builder) SelectRaw(expr string) *Builder {
	b.state.selects = append(b.state.selects, selectItem{expr: expr})
	return b
}

// SelectMax adds MAX(field) AS alias. The alias defaults to the field name.
func (b *Builder) SelectMax(field string, alias ...string) *Builder {
	return b.selectAgg("MAX", field, alias)
}

// SelectMin adds MIN(field) AS alias.
func (b *Builder) SelectMin(field string, alias ...string) *Builder {
	return b.selectAgg("MIN", field, alias)
}

// SelectAvg adds AVG(field) AS alias.
func (b *Builder) SelectAvg(field string, alias ...string) *Builder {
	return b.selectAgg("AVG", field, alias)
}

// SelectSum adds SUM(field) AS alias.
func (b *Builder) SelectSum(field string, alias ...string) *Builder {
	return b.selectAgg("SUM", field, alias)
}

// SelectCount adds COUNT(field) AS alias.
func (b *Builder) SelectCount(field string, alias ...string) *Builder {
	return b.selectAgg("COUNT", field, alias)
}

func (b *Builder) selectAgg(fn, field string, alias []string) *Builder {
	field = strings.TrimSpace(field)
	if field == "" {
		return b.usage("select"+fn[:1]+strings.ToLower(fn[1:]), "field name is required")
	}
	as := field
	if len(alias) > 0 && alias[0] != "" {
		as = alias[0]
	}
	b.state.selects = append(b.state.selects, selectItem{expr: field, escape: true, agg: fn, alias: as})
	return b
}

// Distinct sets the DISTINCT flag.
func (b *Builder) Distinct() *Builder {
	b.state.distinct = true
	return b
}

// From adds tables to the FROM clause. "table alias" and comma separated
// lists are accepted.
func (b *Builder) From(tables ...string) *Builder {
	for _, t := range tables {
		for _, item := range splitList(t) {
			if !b.hasTable(item) {
				b.state.tables = append(b.state.tables, tableRef{name: item, alias: aliasOf(item)})
			}
		}
	}
	return b
}

func (b *Builder) hasTable(name string) bool {
	return slices.ContainsFunc(b.state.tables, func(t tableRef) bool {
		return t.sub == nil && t.name == name
	})
}

// FromSubquery adds a subquery as a FROM table with the given alias.
func (b *Builder) FromSubquery(fn SubqueryFunc, alias string) *Builder {
	switch {
	case fn == nil:
		return b.AddError(quarry.NewArgumentTypeError("fromSubquery", "func(*Builder) *Builder", "nil"))
	case alias == "":
		return b.usage("fromSubquery", "a subquery table needs an alias")
	}
	b.state.tables = append(b.state.tables, tableRef{alias: alias, sub: fn})
	return b
}

// Join adds a JOIN clause. The optional kind is one of LEFT, RIGHT, OUTER,
// INNER, LEFT OUTER, RIGHT OUTER, FULL, FULL OUTER, CROSS or NATURAL.
func (b *Builder) Join(table, cond string, kind ...string) *Builder {
	var k string
	if len(kind) > 0 {
		k = strings.ToUpper(spaceRe.ReplaceAllString(strings.TrimSpace(kind[0]), " "))
	}
	if !slices.Contains(joinKinds, k) {
		return b.usage("join", "invalid join type %q", kind[0])
	}
	b.state.joins = append(b.state.joins, joinClause{table: strings.TrimSpace(table), cond: cond, kind: k})
	return b
}

// LeftJoin is shorthand for Join(table, cond, "LEFT").
func (b *Builder) LeftJoin(table, cond string) *Builder {
	return b.Join(table, cond, "LEFT")
}

// GroupBy adds columns to the GROUP BY clause.
func (b *Builder) GroupBy(columns ...string) *Builder {
	for _, c := range columns {
		b.state.groupBy = append(b.state.groupBy, splitList(c)...)
	}
	return b
}

// OrderBy adds an ORDER BY term. Without a direction, a field such as
// "name DESC, id" is split into its terms. The Random direction discards
// the field unless it is a number, which becomes the seed.
func (b *Builder) OrderBy(field string, dir ...string) *Builder {
	items, err := orderItems("orderBy", field, dir)
	if err != nil {
		return b.AddError(err)
	}
	b.state.orderBy = append(b.state.orderBy, items...)
	return b
}

func orderItems(op, field string, dir []string) ([]orderItem, error) {
	field = strings.TrimSpace(field)
	if len(dir) > 0 && dir[0] != "" {
		d := strings.ToUpper(strings.TrimSpace(dir[0]))
		if d != Asc && d != Desc && d != Random {
			return nil, quarry.NewUsageError(op, fmt.Sprintf("invalid direction %q", dir[0]))
		}
		if field == "" && d != Random {
			return nil, quarry.NewUsageError(op, "field name is required")
		}
		return []orderItem{{field: field, dir: d}}, nil
	}
	if field == "" {
		return nil, quarry.NewUsageError(op, "field name is required")
	}
	var items []orderItem
	for _, term := range splitList(field) {
		it := orderItem{field: term}
		if i := strings.LastIndexByte(term, ' '); i > 0 && !strings.ContainsAny(term, "()") {
			if d := strings.ToUpper(term[i+1:]); d == Asc || d == Desc {
				it = orderItem{field: strings.TrimSpace(term[:i]), dir: d}
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// Limit sets the LIMIT and optionally the OFFSET.
func (b *Builder) Limit(n int, offset ...int) *Builder {
	if n < 0 {
		return b.usage("limit", "limit must not be negative")
	}
	b.state.limit = n
	if len(offset) > 0 {
		return b.Offset(offset[0])
	}
	return b
}

// Offset sets the OFFSET.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		return b.usage("offset", "offset must not be negative")
	}
	b.state.offset = n
	return b
}

// Set stages a column value for INSERT, UPDATE, REPLACE or UPSERT. Expr
// values are written verbatim; NoEscape values are inlined unquoted.
func (b *Builder) Set(column string, value any) *Builder {
	column = strings.TrimSpace(column)
	if column == "" {
		return b.usage("set", "column name is required")
	}
	b.state.setValue(column, value)
	return b
}

// SetMap stages all values of the row in sorted column order.
func (b *Builder) SetMap(row Row) *Builder {
	for _, k := range sortedKeys(row) {
		b.Set(k, row[k])
	}
	return b
}

// SetBatch stages rows for InsertBatch, UpdateBatch and UpsertBatch.
func (b *Builder) SetBatch(rows ...Row) *Builder {
	b.state.batch = append(b.state.batch, rows...)
	return b
}

// OnConstraint sets the conflict target columns used by ON CONFLICT upserts.
func (b *Builder) OnConstraint(columns ...string) *Builder {
	for _, c := range columns {
		b.state.constraint = append(b.state.constraint, splitList(c)...)
	}
	return b
}

// StartCache opens the cache window. Clauses present when the window is
// closed survive the reset of terminal calls.
func (b *Builder) StartCache() *Builder {
	b.caching = true
	return b
}

// StopCache closes the cache window and snapshots the cached clauses.
func (b *Builder) StopCache() *Builder {
	if !b.caching {
		return b
	}
	b.caching = false
	if b.state.where.depth() > 0 || b.state.having.depth() > 0 {
		return b.usage("stopCache", "cannot stop the cache with an open group")
	}
	b.cached = b.state.cachedSubset()
	return b
}

// FlushCache drops the cached prefix together with the query being built,
// which holds a copy of it.
func (b *Builder) FlushCache() *Builder {
	b.cached = nil
	b.caching = false
	b.state = newClauseState()
	return b
}

// ResetQuery discards the accumulated clauses, keeping the cached prefix.
func (b *Builder) ResetQuery() *Builder {
	b.reset()
	return b
}

func (b *Builder) reset() {
	if b.caching {
		b.cached = b.state.cachedSubset()
	}
	if b.cached != nil {
		b.state = b.cached.cachedSubset()
		return
	}
	b.state = newClauseState()
}

// pending returns the recorded errors and the unbalanced group errors.
func (b *Builder) pending() error {
	errs := slices.Clone(b.state.errs)
	if n := b.state.where.depth(); n > 0 {
		errs = append(errs, quarry.NewUsageError("groupStart", fmt.Sprintf("%d where group(s) not closed", n)))
	}
	if n := b.state.having.depth(); n > 0 {
		errs = append(errs, quarry.NewUsageError("havingGroupStart", fmt.Sprintf("%d having group(s) not closed", n)))
	}
	return errors.Join(errs...)
}

// compile runs a statement compiler. The builder is reset afterwards when
// reset is set, whether or not compilation succeeded.
func (b *Builder) compile(kind string, reset bool, fn func(*compiler) string) (*Statement, error) {
	if reset {
		defer b.reset()
	}
	if err := b.pending(); err != nil {
		return nil, quarry.NewCompileError(kind, err)
	}
	c := b.newCompiler(NewBindings())
	query := fn(c)
	if err := errors.Join(c.errs...); err != nil {
		return nil, quarry.NewCompileError(kind, err)
	}
	stmt := &Statement{Kind: kind, SQL: query, Binds: c.binds, Dialect: b.grammar.Name()}
	if b.testMode {
		stmt.SQL = stmt.Interpolate(b.grammar)
		stmt.Literal = true
	}
	b.last = stmt
	b.logger.Debug("compiled statement", "kind", kind, "sql", stmt.SQL, "binds", stmt.Binds.Map())
	return stmt, nil
}

// compiler holds the per-compile context: the escaper of the compiled
// builder and the bindings shared with its subqueries.
type compiler struct {
	b     *Builder
	esc   *Escaper
	binds *Bindings
	errs  []error
}

func (b *Builder) newCompiler(binds *Bindings) *compiler {
	return &compiler{
		b:     b,
		esc:   NewEscaper(b.grammar, b.prefix, b.state.aliases()...),
		binds: binds,
	}
}

func (c *compiler) fail(err error) {
	c.errs = append(c.errs, err)
}

// subquery runs fn on a fresh builder and compiles the result in parentheses.
func (c *compiler) subquery(op string, fn SubqueryFunc) string {
	if fn == nil {
		c.fail(quarry.NewArgumentTypeError(op, "func(*Builder) *Builder", "nil"))
		return "()"
	}
	sb := fn(c.b.sub())
	if sb == nil {
		c.fail(quarry.NewArgumentTypeError(op, "func(*Builder) *Builder", "closure returning nil"))
		return "()"
	}
	return c.subqueryOf(sb)
}

func (c *compiler) subqueryOf(sb *Builder) string {
	q, err := sb.compileSelect(c.binds)
	if err != nil {
		c.fail(err)
	}
	return "(" + q + ")"
}

// compileSelect compiles the SELECT of a subquery builder into binds.
func (b *Builder) compileSelect(binds *Bindings) (string, error) {
	if err := b.pending(); err != nil {
		return "", err
	}
	c := b.newCompiler(binds)
	q := c.selectQuery(selectOptions{})
	return q, errors.Join(c.errs...)
}

// value renders the right-hand side of SET and VALUES terms.
func (c *compiler) value(key string, v any) string {
	switch v := v.(type) {
	case Expr:
		return string(v)
	case Unescaped:
		return ":" + c.binds.Bind(key, v.Value, false) + ":"
	case SubqueryFunc:
		return c.subquery("set", v)
	case *Builder:
		return c.subqueryOf(v)
	default:
		return ":" + c.binds.Bind(key, v, true) + ":"
	}
}

// target returns the escaped table of write statements.
func (c *compiler) target(op string) string {
	s := c.b.state
	switch {
	case len(s.tables) > 0 && s.tables[0].sub == nil:
		return c.esc.Table(s.tables[0].name)
	case c.b.table != "":
		return c.esc.Table(c.b.table)
	default:
		c.fail(quarry.NewUsageError(op, "you must set the database table to be used"))
		return ""
	}
}

// splitList splits a comma separated list outside parentheses and quotes.
func splitList(s string) []string {
	var (
		items []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			if item := strings.TrimSpace(s[start:i]); item != "" {
				items = append(items, item)
			}
			start = i + 1
		}
	}
	if item := strings.TrimSpace(s[start:]); item != "" {
		items = append(items, item)
	}
	return items
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
