package sql

import "github.com/syssam/quarry"

// Delete compiles a DELETE of the rows matched by the WHERE tree and the
// entries of where. A DELETE without conditions is refused; use EmptyTable
// or Truncate to remove all rows.
func (b *Builder) Delete(where map[string]any, limit ...int) (*Statement, error) {
	if len(where) > 0 {
		b.WhereMap(where)
	}
	if len(limit) > 0 {
		b.Limit(limit[0])
	}
	return b.GetCompiledDelete(true)
}

// GetCompiledDelete compiles the DELETE statement.
func (b *Builder) GetCompiledDelete(reset bool) (*Statement, error) {
	return b.compile(KindDelete, reset, func(c *compiler) string {
		s := c.b.state
		table := c.target("delete")
		w := s.where.render(c)
		if w == "" {
			c.fail(quarry.NewUsageError("delete", "deletes are not allowed unless they contain a WHERE clause"))
			return ""
		}
		q := "DELETE FROM " + table + " WHERE " + w
		if l := c.writeLimit("delete", s.limit); l != "" {
			q += " " + l
		}
		return q
	})
}

// EmptyTable compiles a DELETE of every row of the table.
func (b *Builder) EmptyTable() (*Statement, error) {
	return b.compile(KindEmpty, true, func(c *compiler) string {
		return "DELETE FROM " + c.target("emptyTable")
	})
}

// Truncate compiles the dialect's TRUNCATE statement for the table.
func (b *Builder) Truncate() (*Statement, error) {
	return b.compile(KindTruncate, true, func(c *compiler) string {
		return c.b.grammar.Truncate(c.target("truncate"))
	})
}
