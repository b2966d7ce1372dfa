package sql

import "slices"

type (
	tableRef struct {
		name  string
		alias string
		sub   SubqueryFunc
	}
	selectItem struct {
		expr   string
		escape bool
		agg    string // aggregate function of SelectMax and friends
		alias  string
	}
	joinClause struct {
		table string
		cond  string
		kind  string
	}
	orderItem struct {
		field string
		dir   string
	}
	setItem struct {
		col   string
		value any
	}
	unionPart struct {
		all bool
		fn  SubqueryFunc
	}
)

// clauseState accumulates the clauses of the statement being built.
type clauseState struct {
	tables   []tableRef
	selects  []selectItem
	distinct bool
	joins    []joinClause
	where    *condTree
	having   *condTree
	groupBy  []string
	orderBy  []orderItem

	limit, offset int

	set        []setItem
	batch      []Row
	constraint []string
	unions     []unionPart
	unionOrder []orderItem

	// errs collects the errors of fluent calls until the next compile.
	errs []error
}

func newClauseState() *clauseState {
	return &clauseState{where: newCondTree(), having: newCondTree()}
}

// clone returns a deep copy. Batch rows are shared.
func (s *clauseState) clone() *clauseState {
	return &clauseState{
		tables:     slices.Clone(s.tables),
		selects:    slices.Clone(s.selects),
		distinct:   s.distinct,
		joins:      slices.Clone(s.joins),
		where:      s.where.clone(),
		having:     s.having.clone(),
		groupBy:    slices.Clone(s.groupBy),
		orderBy:    slices.Clone(s.orderBy),
		limit:      s.limit,
		offset:     s.offset,
		set:        slices.Clone(s.set),
		batch:      slices.Clone(s.batch),
		constraint: slices.Clone(s.constraint),
		unions:     slices.Clone(s.unions),
		unionOrder: slices.Clone(s.unionOrder),
		errs:       slices.Clone(s.errs),
	}
}

// cachedSubset returns the part of the state kept by the query cache.
func (s *clauseState) cachedSubset() *clauseState {
	return &clauseState{
		tables:   slices.Clone(s.tables),
		selects:  slices.Clone(s.selects),
		distinct: s.distinct,
		joins:    slices.Clone(s.joins),
		where:    s.where.clone(),
		having:   s.having.clone(),
		groupBy:  slices.Clone(s.groupBy),
		orderBy:  slices.Clone(s.orderBy),
	}
}

// setValue sets or replaces the value of col, keeping first-set order.
func (s *clauseState) setValue(col string, v any) {
	for i := range s.set {
		if s.set[i].col == col {
			s.set[i].value = v
			return
		}
	}
	s.set = append(s.set, setItem{col: col, value: v})
}

// aliases returns the aliases declared by FROM and JOIN.
func (s *clauseState) aliases() []string {
	var as []string
	for _, t := range s.tables {
		if t.alias != "" {
			as = append(as, t.alias)
		}
	}
	for _, j := range s.joins {
		if a := aliasOf(j.table); a != "" {
			as = append(as, a)
		}
	}
	return as
}
