package sql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/quarry"
)

// Update compiles an UPDATE of data merged over the values staged with Set.
// The entries of where are ANDed to the WHERE tree. SET values are bound
// before WHERE values, so a column used in both yields name and name0.
//
//	UPDATE "user" SET "name" = :name: WHERE "name" = :name0:
func (b *Builder) Update(data Row, where map[string]any, limit ...int) (*Statement, error) {
	b.SetMap(data)
	if len(where) > 0 {
		b.WhereMap(where)
	}
	if len(limit) > 0 {
		b.Limit(limit[0])
	}
	return b.GetCompiledUpdate(true)
}

// GetCompiledUpdate compiles an UPDATE of the staged values.
func (b *Builder) GetCompiledUpdate(reset bool) (*Statement, error) {
	return b.compile(KindUpdate, reset, func(c *compiler) string {
		s := c.b.state
		if len(s.set) == 0 {
			c.fail(quarry.NewUsageError("update", "you must use the Set method or pass data"))
			return ""
		}
		table := c.target("update")
		parts := make([]string, len(s.set))
		for i, it := range s.set {
			parts[i] = c.esc.Column(it.col) + " = " + c.value(it.col, it.value)
		}
		var sb strings.Builder
		sb.WriteString("UPDATE " + table + " SET " + strings.Join(parts, ", "))
		if w := s.where.render(c); w != "" {
			sb.WriteString(" WHERE " + w)
		}
		if len(s.orderBy) > 0 {
			sb.WriteString(" ORDER BY " + c.order(s.orderBy))
		}
		if l := c.writeLimit("update", s.limit); l != "" {
			sb.WriteString(" " + l)
		}
		return sb.String()
	})
}

// UpdateBatch compiles one UPDATE of many rows matched by the index column:
//
//	UPDATE "user" SET "name" = CASE WHEN "id" = :id0: THEN :name0: WHEN "id" = :id1: THEN :name1: ELSE "name" END
//	WHERE "id" IN (:id0:,:id1:)
//
// Rows are appended to the rows staged with SetBatch. Every row must hold the
// index column and all other columns of the batch.
func (b *Builder) UpdateBatch(rows []Row, index string) (*Statement, error) {
	index = strings.TrimSpace(index)
	var (
		all []Row
		err error
	)
	if index == "" {
		err = quarry.NewNoIndexError("updateBatch")
	} else {
		all, err = b.batchRows("updateBatch", rows)
	}
	return b.compile(KindUpdateBatch, true, func(c *compiler) string {
		if err != nil {
			c.fail(err)
			return ""
		}
		return c.updateBatch(all, index)
	})
}

// writeLimit renders the LIMIT of an UPDATE or DELETE, failing on grammars
// that do not accept one.
func (c *compiler) writeLimit(op string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if !c.b.grammar.SupportsWriteLimit() {
		c.fail(quarry.NewUsageError(op, fmt.Sprintf("%s does not allow LIMIT on %s", c.b.grammar.Name(), strings.ToUpper(op))))
		return ""
	}
	return c.b.grammar.Limit(limit, 0)
}

func (c *compiler) updateBatch(rows []Row, index string) string {
	for i, r := range rows {
		if _, ok := r[index]; !ok {
			c.fail(quarry.NewNoIndexErrorWithRow("updateBatch", i))
			return ""
		}
	}
	cols, err := planBatch("updateBatch", rows)
	if err != nil {
		c.fail(err)
		return ""
	}
	cols = slices.DeleteFunc(cols, func(col string) bool { return col == index })
	if len(cols) == 0 {
		c.fail(quarry.NewUsageError("updateBatch", "rows have no columns besides the index"))
		return ""
	}
	table := c.target("updateBatch")
	idx := c.esc.Column(index)
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = c.value(index+strconv.Itoa(i), r[index])
	}
	parts := make([]string, len(cols))
	for j, col := range cols {
		q := c.esc.Column(col)
		var sb strings.Builder
		sb.WriteString(q + " = CASE")
		for i, r := range rows {
			sb.WriteString(" WHEN " + idx + " = " + keys[i] + " THEN " + c.value(col+strconv.Itoa(i), r[col]))
		}
		sb.WriteString(" ELSE " + q + " END")
		parts[j] = sb.String()
	}
	where := idx + " IN (" + strings.Join(keys, ",") + ")"
	if w := c.b.state.where.render(c); w != "" {
		where = "(" + w + ") AND " + where
	}
	return "UPDATE " + table + " SET " + strings.Join(parts, ", ") + " WHERE " + where
}
