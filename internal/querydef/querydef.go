// Package querydef reads YAML query definitions and compiles them with the
// statement builder.
package querydef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/syssam/quarry/dialect/sql"
)

// File is a parsed definitions file.
type File struct {
	Queries []Query `yaml:"queries"`
}

// Query defines one statement.
type Query struct {
	Name     string           `yaml:"name"`
	Table    string           `yaml:"table"`
	Kind     string           `yaml:"kind"`
	Select   []string         `yaml:"select,omitempty"`
	Distinct bool             `yaml:"distinct,omitempty"`
	Joins    []Join           `yaml:"joins,omitempty"`
	Where    []Cond           `yaml:"where,omitempty"`
	WhereIn  []InCond         `yaml:"where_in,omitempty"`
	Like     []LikeCond       `yaml:"like,omitempty"`
	GroupBy  []string         `yaml:"group_by,omitempty"`
	Having   []Cond           `yaml:"having,omitempty"`
	OrderBy  []Order          `yaml:"order_by,omitempty"`
	Limit    int              `yaml:"limit,omitempty"`
	Offset   int              `yaml:"offset,omitempty"`
	Data     map[string]any   `yaml:"data,omitempty"`
	Rows     []map[string]any `yaml:"rows,omitempty"`
	Index    string           `yaml:"index,omitempty"`
	Conflict []string         `yaml:"conflict,omitempty"`
}

// Join is a JOIN clause.
type Join struct {
	Table string `yaml:"table"`
	On    string `yaml:"on"`
	Kind  string `yaml:"kind,omitempty"`
}

// Cond is a comparison. Raw conditions are used verbatim.
type Cond struct {
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`
	Raw   string `yaml:"raw,omitempty"`
	Or    bool   `yaml:"or,omitempty"`
	Not   bool   `yaml:"not,omitempty"`
}

// InCond is an IN list.
type InCond struct {
	Key    string `yaml:"key"`
	Values []any  `yaml:"values"`
	Or     bool   `yaml:"or,omitempty"`
	Not    bool   `yaml:"not,omitempty"`
}

// LikeCond is a LIKE match.
type LikeCond struct {
	Field       string `yaml:"field"`
	Match       string `yaml:"match"`
	Side        string `yaml:"side,omitempty"`
	Or          bool   `yaml:"or,omitempty"`
	Not         bool   `yaml:"not,omitempty"`
	Insensitive bool   `yaml:"insensitive,omitempty"`
}

// Order is an ORDER BY term.
type Order struct {
	Field string `yaml:"field"`
	Dir   string `yaml:"dir,omitempty"`
}

var kinds = []string{
	sql.KindSelect, sql.KindCount, sql.KindInsert, sql.KindInsertBatch,
	sql.KindUpdate, sql.KindUpdateBatch, sql.KindDelete, sql.KindReplace,
	sql.KindUpsert, sql.KindUpsertBatch, sql.KindEmpty, sql.KindTruncate,
}

var sides = map[string]sql.Side{
	"":       sql.SideBoth,
	"both":   sql.SideBoth,
	"before": sql.SideBefore,
	"after":  sql.SideAfter,
	"none":   sql.SideNone,
}

// ReadFile reads and parses a definitions file of fs.
func ReadFile(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("querydef: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a definitions file. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("querydef: parse: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every query is named, unique and of a known kind.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Queries))
	for i, q := range f.Queries {
		switch {
		case q.Name == "":
			return fmt.Errorf("querydef: queries[%d]: name is required", i)
		case seen[q.Name]:
			return fmt.Errorf("querydef: queries[%d]: duplicate name %q", i, q.Name)
		case q.Table == "":
			return fmt.Errorf("querydef: %s: table is required", q.Name)
		case q.kind() == "":
			return fmt.Errorf("querydef: %s: unknown kind %q", q.Name, q.Kind)
		}
		for _, c := range slices.Concat(q.Where, q.Having) {
			if c.Raw != "" && c.Not {
				return fmt.Errorf("querydef: %s: raw condition %q cannot be negated", q.Name, c.Raw)
			}
		}
		for _, l := range q.Like {
			if _, ok := sides[strings.ToLower(l.Side)]; !ok {
				return fmt.Errorf("querydef: %s: unknown like side %q", q.Name, l.Side)
			}
		}
		seen[q.Name] = true
	}
	return nil
}

// Lookup returns the query with the given name.
func (f *File) Lookup(name string) (Query, bool) {
	for _, q := range f.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// Names returns the sorted query names.
func (f *File) Names() []string {
	names := make([]string, len(f.Queries))
	for i, q := range f.Queries {
		names[i] = q.Name
	}
	sort.Strings(names)
	return names
}

func (q Query) kind() string {
	k := strings.ToLower(q.Kind)
	if k == "" {
		return sql.KindSelect
	}
	for _, known := range kinds {
		if k == known {
			return k
		}
	}
	return ""
}

// Builder returns a builder with the query clauses applied.
func (q Query) Builder(g sql.Grammar, opts ...sql.Option) *sql.Builder {
	b := sql.NewBuilder(g, q.Table, opts...)
	if len(q.Select) > 0 {
		b.Select(q.Select...)
	}
	if q.Distinct {
		b.Distinct()
	}
	for _, j := range q.Joins {
		b.Join(j.Table, j.On, j.Kind)
	}
	for _, c := range q.Where {
		switch {
		case c.Raw != "" && c.Or:
			b.OrWhereRaw(c.Raw)
		case c.Raw != "":
			b.WhereRaw(c.Raw)
		case c.Or && c.Not:
			b.OrWhereNot(c.Key, c.Value)
		case c.Or:
			b.OrWhere(c.Key, c.Value)
		case c.Not:
			b.WhereNot(c.Key, c.Value)
		default:
			b.Where(c.Key, c.Value)
		}
	}
	for _, c := range q.WhereIn {
		switch {
		case c.Or && c.Not:
			b.OrWhereNotIn(c.Key, c.Values...)
		case c.Or:
			b.OrWhereIn(c.Key, c.Values...)
		case c.Not:
			b.WhereNotIn(c.Key, c.Values...)
		default:
			b.WhereIn(c.Key, c.Values...)
		}
	}
	for _, l := range q.Like {
		lo := []sql.LikeOption{sql.WithSide(sides[strings.ToLower(l.Side)])}
		if l.Insensitive {
			lo = append(lo, sql.Insensitive())
		}
		switch {
		case l.Or && l.Not:
			b.OrNotLike(l.Field, l.Match, lo...)
		case l.Or:
			b.OrLike(l.Field, l.Match, lo...)
		case l.Not:
			b.NotLike(l.Field, l.Match, lo...)
		default:
			b.Like(l.Field, l.Match, lo...)
		}
	}
	if len(q.GroupBy) > 0 {
		b.GroupBy(q.GroupBy...)
	}
	for _, c := range q.Having {
		switch {
		case c.Raw != "" && c.Or:
			b.OrHavingRaw(c.Raw)
		case c.Raw != "":
			b.HavingRaw(c.Raw)
		case c.Or && c.Not:
			b.OrHavingNot(c.Key, c.Value)
		case c.Or:
			b.OrHaving(c.Key, c.Value)
		case c.Not:
			b.HavingNot(c.Key, c.Value)
		default:
			b.Having(c.Key, c.Value)
		}
	}
	for _, o := range q.OrderBy {
		if o.Dir == "" {
			b.OrderBy(o.Field)
		} else {
			b.OrderBy(o.Field, o.Dir)
		}
	}
	switch {
	case q.Limit > 0 && q.Offset > 0:
		b.Limit(q.Limit, q.Offset)
	case q.Limit > 0:
		b.Limit(q.Limit)
	case q.Offset > 0:
		b.Offset(q.Offset)
	}
	if len(q.Conflict) > 0 {
		b.OnConstraint(q.Conflict...)
	}
	return b
}

// Compile builds and compiles the query for the grammar.
func (q Query) Compile(g sql.Grammar, opts ...sql.Option) (*sql.Statement, error) {
	b := q.Builder(g, opts...)
	switch q.kind() {
	case sql.KindSelect:
		return b.Get()
	case sql.KindCount:
		return b.CountAllResults(true)
	case sql.KindInsert:
		return b.Insert(q.Data)
	case sql.KindInsertBatch:
		return b.InsertBatch(q.Rows)
	case sql.KindUpdate:
		return b.Update(q.Data, nil)
	case sql.KindUpdateBatch:
		return b.UpdateBatch(q.Rows, q.Index)
	case sql.KindDelete:
		return b.Delete(nil)
	case sql.KindReplace:
		return b.Replace(q.Data)
	case sql.KindUpsert:
		return b.Upsert(q.Data)
	case sql.KindUpsertBatch:
		return b.UpsertBatch(q.Rows)
	case sql.KindEmpty:
		return b.EmptyTable()
	case sql.KindTruncate:
		return b.Truncate()
	default:
		return nil, fmt.Errorf("querydef: %s: unknown kind %q", q.Name, q.Kind)
	}
}
