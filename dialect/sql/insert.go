package sql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/quarry"
)

// Insert compiles an INSERT of data merged over the values staged with Set,
// and resets the builder.
//
//	INSERT INTO "user" ("age", "name") VALUES (:age:, :name:)
func (b *Builder) Insert(data Row) (*Statement, error) {
	b.SetMap(data)
	return b.GetCompiledInsert(true)
}

// GetCompiledInsert compiles an INSERT of the staged values.
func (b *Builder) GetCompiledInsert(reset bool) (*Statement, error) {
	return b.compile(KindInsert, reset, func(c *compiler) string {
		return c.insert("insert", "INSERT INTO ")
	})
}

// Replace compiles a REPLACE INTO statement.
func (b *Builder) Replace(data Row) (*Statement, error) {
	b.SetMap(data)
	return b.compile(KindReplace, true, func(c *compiler) string {
		if !c.b.grammar.SupportsReplace() {
			c.fail(quarry.NewUsageError("replace", fmt.Sprintf("REPLACE is not supported by the %s dialect", c.b.grammar.Name())))
			return ""
		}
		return c.insert("replace", "REPLACE INTO ")
	})
}

// Upsert compiles an INSERT that updates every column on a key conflict.
// Dialects with ON CONFLICT upserts need the conflict target to be set with
// OnConstraint.
func (b *Builder) Upsert(data Row) (*Statement, error) {
	b.SetMap(data)
	return b.GetCompiledUpsert(true)
}

// GetCompiledUpsert compiles an upsert of the staged values, or of the
// staged batch when SetBatch was used.
func (b *Builder) GetCompiledUpsert(reset bool) (*Statement, error) {
	if len(b.state.batch) > 0 {
		return b.compile(KindUpsertBatch, reset, func(c *compiler) string {
			return c.upsertBatch("upsertBatch", c.b.state.batch)
		})
	}
	return b.compile(KindUpsert, reset, func(c *compiler) string {
		q := c.insert("upsert", "INSERT INTO ")
		if len(c.errs) > 0 {
			return ""
		}
		cols := make([]string, len(c.b.state.set))
		for i, it := range c.b.state.set {
			cols[i] = it.col
		}
		return c.onConflict("upsert", q, cols)
	})
}

// InsertBatch compiles one multi-row INSERT of rows appended to the rows
// staged with SetBatch. Columns are the sorted union of the row keys and
// every row must supply all of them.
//
//	INSERT INTO "jobs" ("id","name") VALUES (:id0:,:name0:),(:id1:,:name1:)
func (b *Builder) InsertBatch(rows []Row) (*Statement, error) {
	all, err := b.batchRows("insertBatch", rows)
	return b.compile(KindInsertBatch, true, func(c *compiler) string {
		if err != nil {
			c.fail(err)
			return ""
		}
		q, _ := c.insertBatch("insertBatch", all)
		return q
	})
}

// UpsertBatch compiles a multi-row upsert.
func (b *Builder) UpsertBatch(rows []Row) (*Statement, error) {
	all, err := b.batchRows("upsertBatch", rows)
	return b.compile(KindUpsertBatch, true, func(c *compiler) string {
		if err != nil {
			c.fail(err)
			return ""
		}
		return c.upsertBatch("upsertBatch", all)
	})
}

// batchRows merges the staged batch with rows. A nil rows argument without
// staged rows is a usage error; a batch without rows is an empty batch.
func (b *Builder) batchRows(op string, rows []Row) ([]Row, error) {
	if rows == nil && len(b.state.batch) == 0 {
		return nil, quarry.NewUsageError(op, "you must pass rows or use the SetBatch method")
	}
	all := append(slices.Clone(b.state.batch), rows...)
	if len(all) == 0 {
		return nil, quarry.NewEmptyBatchError(op)
	}
	return all, nil
}

// planBatch returns the sorted union of the row keys, requiring every row to
// supply every column.
func planBatch(op string, rows []Row) ([]string, error) {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	if len(cols) == 0 {
		return nil, quarry.NewUsageError(op, "rows have no columns")
	}
	slices.Sort(cols)
	for i, r := range rows {
		for _, col := range cols {
			if _, ok := r[col]; !ok {
				return nil, quarry.NewUsageError(op, fmt.Sprintf("row %d has no value for column %q", i, col))
			}
		}
	}
	return cols, nil
}

func (c *compiler) insert(op, verb string) string {
	set := c.b.state.set
	if len(set) == 0 {
		c.fail(quarry.NewUsageError(op, "you must use the Set method or pass data"))
		return ""
	}
	table := c.target(op)
	cols := make([]string, len(set))
	vals := make([]string, len(set))
	for i, it := range set {
		cols[i] = c.esc.Column(it.col)
		vals[i] = c.value(it.col, it.value)
	}
	return verb + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

// insertBatch renders the multi-row INSERT and returns its columns.
func (c *compiler) insertBatch(op string, rows []Row) (string, []string) {
	cols, err := planBatch(op, rows)
	if err != nil {
		c.fail(err)
		return "", nil
	}
	table := c.target(op)
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = c.esc.Column(col)
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + table + " (" + strings.Join(quoted, ",") + ") VALUES ")
	vals := make([]string, len(cols))
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		for j, col := range cols {
			vals[j] = c.value(col+strconv.Itoa(i), r[col])
		}
		sb.WriteString("(" + strings.Join(vals, ",") + ")")
	}
	return sb.String(), cols
}

func (c *compiler) upsertBatch(op string, rows []Row) string {
	q, cols := c.insertBatch(op, rows)
	if len(c.errs) > 0 {
		return ""
	}
	return c.onConflict(op, q, cols)
}

// onConflict appends the dialect's upsert clause to an INSERT.
func (c *compiler) onConflict(op, insert string, cols []string) string {
	g := c.b.grammar
	if g.Upsert() == UpsertDuplicateKey {
		parts := make([]string, len(cols))
		for i, col := range cols {
			q := c.esc.Column(col)
			parts[i] = q + " = VALUES(" + q + ")"
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(parts, ", ")
	}
	keys := c.b.state.constraint
	if len(keys) == 0 {
		c.fail(quarry.NewNoIndexError(op))
		return ""
	}
	target := make([]string, len(keys))
	for i, k := range keys {
		target[i] = c.esc.Column(k)
	}
	var parts []string
	for _, col := range cols {
		if slices.Contains(keys, col) {
			continue
		}
		q := c.esc.Column(col)
		parts = append(parts, q+" = "+g.Quote("excluded")+"."+q)
	}
	clause := " ON CONFLICT (" + strings.Join(target, ", ") + ")"
	if len(parts) == 0 {
		return insert + clause + " DO NOTHING"
	}
	return insert + clause + " DO UPDATE SET " + strings.Join(parts, ", ")
}
