package sql

// Having adds a HAVING condition joined with AND. Keys follow the Where rules.
func (b *Builder) Having(key string, value any) *Builder {
	return b.cond("having", b.state.having, and, key, value)
}

// OrHaving adds a HAVING condition joined with OR.
func (b *Builder) OrHaving(key string, value any) *Builder {
	return b.cond("orHaving", b.state.having, or, key, value)
}

// HavingNot adds a negated HAVING condition.
func (b *Builder) HavingNot(key string, value any) *Builder {
	return b.cond("havingNot", b.state.having, andNot, key, value)
}

// OrHavingNot adds a negated HAVING condition joined with OR.
func (b *Builder) OrHavingNot(key string, value any) *Builder {
	return b.cond("orHavingNot", b.state.having, orNot, key, value)
}

// HavingMap adds one HAVING condition per entry, joined with AND.
func (b *Builder) HavingMap(m map[string]any) *Builder {
	return b.condMap("havingMap", b.state.having, and, m)
}

// OrHavingMap adds the entries of m as a HAVING group joined with OR.
func (b *Builder) OrHavingMap(m map[string]any) *Builder {
	return b.condMap("orHavingMap", b.state.having, or, m)
}

// HavingRaw adds an opaque HAVING condition.
func (b *Builder) HavingRaw(cond string) *Builder {
	return b.raw("havingRaw", b.state.having, and, cond)
}

// OrHavingRaw adds an opaque HAVING condition joined with OR.
func (b *Builder) OrHavingRaw(cond string) *Builder {
	return b.raw("orHavingRaw", b.state.having, or, cond)
}

// HavingIn adds "key IN (values)" to HAVING, joined with AND.
func (b *Builder) HavingIn(key string, values ...any) *Builder {
	return b.in("havingIn", b.state.having, and, false, key, values)
}

// OrHavingIn adds "key IN (values)" to HAVING, joined with OR.
func (b *Builder) OrHavingIn(key string, values ...any) *Builder {
	return b.in("orHavingIn", b.state.having, or, false, key, values)
}

// HavingNotIn adds "key NOT IN (values)" to HAVING.
func (b *Builder) HavingNotIn(key string, values ...any) *Builder {
	return b.in("havingNotIn", b.state.having, and, true, key, values)
}

// OrHavingNotIn adds "key NOT IN (values)" to HAVING, joined with OR.
func (b *Builder) OrHavingNotIn(key string, values ...any) *Builder {
	return b.in("orHavingNotIn", b.state.having, or, true, key, values)
}

// HavingInQuery adds "key IN (subquery)" to HAVING.
func (b *Builder) HavingInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("havingInQuery", b.state.having, and, false, key, fn)
}

// HavingNotInQuery adds "key NOT IN (subquery)" to HAVING.
func (b *Builder) HavingNotInQuery(key string, fn SubqueryFunc) *Builder {
	return b.inQuery("havingNotInQuery", b.state.having, and, true, key, fn)
}

// HavingBetween adds "key BETWEEN lo AND hi" to HAVING.
func (b *Builder) HavingBetween(key string, lo, hi any) *Builder {
	return b.between("havingBetween", b.state.having, and, false, key, lo, hi)
}

// HavingLike adds a LIKE condition to HAVING. See Like for the options.
func (b *Builder) HavingLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("havingLike", b.state.having, and, false, field, match, opts)
}

// OrHavingLike adds a LIKE condition to HAVING, joined with OR.
func (b *Builder) OrHavingLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("orHavingLike", b.state.having, or, false, field, match, opts)
}

// NotHavingLike adds a NOT LIKE condition to HAVING.
func (b *Builder) NotHavingLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("notHavingLike", b.state.having, and, true, field, match, opts)
}

// OrNotHavingLike adds a NOT LIKE condition to HAVING, joined with OR.
func (b *Builder) OrNotHavingLike(field, match string, opts ...LikeOption) *Builder {
	return b.like("orNotHavingLike", b.state.having, or, true, field, match, opts)
}

// HavingGroupStart opens a HAVING group joined with AND.
func (b *Builder) HavingGroupStart() *Builder {
	b.state.having.open(and)
	return b
}

// OrHavingGroupStart opens a HAVING group joined with OR.
func (b *Builder) OrHavingGroupStart() *Builder {
	b.state.having.open(or)
	return b
}

// NotHavingGroupStart opens a negated HAVING group joined with AND.
func (b *Builder) NotHavingGroupStart() *Builder {
	b.state.having.open(andNot)
	return b
}

// OrNotHavingGroupStart opens a negated HAVING group joined with OR.
func (b *Builder) OrNotHavingGroupStart() *Builder {
	b.state.having.open(orNot)
	return b
}

// HavingGroupEnd closes the innermost HAVING group.
func (b *Builder) HavingGroupEnd() *Builder {
	if !b.state.having.close() {
		return b.usage("havingGroupEnd", "no open group to end")
	}
	return b
}
