package sql

// P is a composable predicate. Predicates are built by the typed fields
// below, combined with And, Or and Not, and added with Builder.Apply.
//
//	var (
//		Age  = sql.Field[int]("age")
//		Name = sql.StringField("name")
//	)
//	b.Apply(sql.Or(Age.GT(30), Name.HasPrefix("jo")))
type P struct {
	node func(attach) condNode
}

func leaf(fn func(attach) condNode) P { return P{node: fn} }

// Apply adds the predicates to the WHERE tree, joined with AND.
func (b *Builder) Apply(ps ...P) *Builder {
	for _, p := range ps {
		if p.node != nil {
			b.state.where.add(p.node(and))
		}
	}
	return b
}

// OrApply adds the predicates to the WHERE tree, joined with OR.
func (b *Builder) OrApply(ps ...P) *Builder {
	for _, p := range ps {
		if p.node != nil {
			b.state.where.add(p.node(or))
		}
	}
	return b
}

// HavingApply adds the predicates to the HAVING tree, joined with AND.
func (b *Builder) HavingApply(ps ...P) *Builder {
	for _, p := range ps {
		if p.node != nil {
			b.state.having.add(p.node(and))
		}
	}
	return b
}

// And groups the predicates joined with AND.
func And(ps ...P) P {
	return group(connAnd, ps)
}

// Or groups the predicates joined with OR.
func Or(ps ...P) P {
	return group(connOr, ps)
}

func group(conn string, ps []P) P {
	return leaf(func(a attach) condNode {
		g := &condGroup{attach: a}
		for _, p := range ps {
			if p.node != nil {
				g.children = append(g.children, p.node(attach{conn: conn}))
			}
		}
		return g
	})
}

// Not negates the predicate.
func Not(p P) P {
	return leaf(func(a attach) condNode {
		a.not = !a.not
		return p.node(a)
	})
}

// ExprP wraps a raw condition.
func ExprP(cond string) P {
	return leaf(func(a attach) condNode {
		return &rawCond{attach: a, sql: cond}
	})
}

// Field is a typed column for building predicates.
type Field[T any] string

// Name returns the field name.
func (f Field[T]) Name() string { return string(f) }

func (f Field[T]) cmp(op string, v any) P {
	return leaf(func(a attach) condNode {
		return &compareCond{attach: a, col: string(f), op: op, value: v, escape: true}
	})
}

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) P { return f.cmp("=", v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) P { return f.cmp("!=", v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) P { return f.cmp(">", v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) P { return f.cmp(">=", v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) P { return f.cmp("<", v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) P { return f.cmp("<=", v) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() P { return f.cmp("=", nil) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[T]) NotNull() P { return f.cmp("!=", nil) }

// In returns a predicate that checks if the field value is in the given list.
// An empty list matches no rows.
func (f Field[T]) In(vs ...T) P { return f.in(false, vs) }

// NotIn returns a predicate that checks if the field value is not in the given list.
// An empty list matches all rows.
func (f Field[T]) NotIn(vs ...T) P { return f.in(true, vs) }

func (f Field[T]) in(negate bool, vs []T) P {
	if len(vs) == 0 {
		if negate {
			return ExprP("1 = 1")
		}
		return ExprP("1 = 0")
	}
	values := toAny(vs)
	return leaf(func(a attach) condNode {
		return &inCond{attach: a, col: string(f), negate: negate, values: values}
	})
}

// Between returns a predicate that checks if the field is between lo and hi.
func (f Field[T]) Between(lo, hi T) P {
	return leaf(func(a attach) condNode {
		return &betweenCond{attach: a, col: string(f), lo: lo, hi: hi}
	})
}

// StringField is a string column with the LIKE based predicates.
type StringField string

// Name returns the field name.
func (f StringField) Name() string { return string(f) }

func (f StringField) field() Field[string] { return Field[string](f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) P { return f.field().EQ(v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) P { return f.field().NEQ(v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) P { return f.field().In(vs...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) P { return f.field().NotIn(vs...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() P { return f.field().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() P { return f.field().NotNull() }

func (f StringField) like(v string, side Side, insensitive bool) P {
	return leaf(func(a attach) condNode {
		return &likeCond{attach: a, col: string(f), match: v, side: side, insensitive: insensitive}
	})
}

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) P { return f.like(v, SideBoth, false) }

// ContainsFold returns a predicate that checks if the field contains the given substring (case-insensitive).
func (f StringField) ContainsFold(v string) P { return f.like(v, SideBoth, true) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) P { return f.like(v, SideAfter, false) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) P { return f.like(v, SideBefore, false) }

// EqualFold returns a predicate that checks if the field equals the given value (case-insensitive).
func (f StringField) EqualFold(v string) P {
	return leaf(func(a attach) condNode {
		return &foldCond{attach: a, col: string(f), value: v}
	})
}

// foldCond is "LOWER(col) = LOWER(value)".
type foldCond struct {
	attach
	col   string
	value string
}

func (n *foldCond) render(c *compiler) string {
	return "LOWER(" + c.esc.Column(n.col) + ") = LOWER(:" + c.binds.Bind(n.col, n.value, true) + ":)"
}
