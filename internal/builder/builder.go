package builder

// Builder holds one State document and the SQL generated from it. It is not
// safe for concurrent use; each caller owns its own Builder.
type Builder struct {
	state State
	sql   string
}

// New returns an empty builder with no statement kind.
func New() *Builder {
	return &Builder{}
}

// Load replaces the whole document after validating it.
func (b *Builder) Load(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	k, err := ParseKind(string(s.Kind))
	if err != nil {
		return err
	}
	b.state = s.clone()
	b.state.Kind = k
	b.state.Tables = dedupe(b.state.Tables)
	b.regenerate()
	return nil
}

// State returns a copy of the document.
func (b *Builder) State() State {
	return b.state.clone()
}

// SQL returns the text generated by the last mutation.
func (b *Builder) SQL() string {
	return b.sql
}

// Reset clears the document back to New's state.
func (b *Builder) Reset() {
	b.state = State{}
	b.regenerate()
}

// SetKind switches the statement kind. A different kind clears every facet,
// tables included; setting the current kind again changes nothing.
func (b *Builder) SetKind(k Kind) error {
	k, err := ParseKind(string(k))
	if err != nil {
		return err
	}
	if k == b.state.Kind {
		return nil
	}
	b.state = State{Kind: k}
	b.regenerate()
	return nil
}

// SetTables selects tables in order, ignoring duplicates. Joins whose right
// table is no longer selected are dropped, as are all joins when fewer than
// two tables remain or the first table changes.
func (b *Builder) SetTables(tables ...string) {
	tables = dedupe(tables)

	var first string
	if len(b.state.Tables) > 0 {
		first = b.state.Tables[0]
	}

	kept := b.state.Joins[:0:0]
	if len(tables) > 1 && tables[0] == first {
		for _, j := range b.state.Joins {
			if contains(tables[1:], j.RightTable) {
				kept = append(kept, j)
			}
		}
	}

	b.state.Tables = tables
	b.state.Joins = kept
	b.regenerate()
}

// SetFields sets the plain SELECT list. No fields means "*".
func (b *Builder) SetFields(fields ...string) {
	b.state.Fields = dedupe(fields)
	b.regenerate()
}

// SetJoin adds or replaces the join for j.RightTable. LeftTable is always
// the first selected table.
func (b *Builder) SetJoin(j Join) error {
	if err := validateJoin(b.state.Tables, j); err != nil {
		return err
	}
	j.LeftTable = b.state.Tables[0]

	joins := make([]Join, 0, len(b.state.Joins)+1)
	replaced := false
	for _, existing := range b.state.Joins {
		if existing.RightTable == j.RightTable {
			joins = append(joins, j)
			replaced = true
			continue
		}
		joins = append(joins, existing)
	}
	if !replaced {
		joins = append(joins, j)
	}

	b.state.Joins = joins
	b.regenerate()
	return nil
}

// RemoveJoin drops the join for rightTable, if any.
func (b *Builder) RemoveJoin(rightTable string) {
	joins := make([]Join, 0, len(b.state.Joins))
	for _, j := range b.state.Joins {
		if j.RightTable != rightTable {
			joins = append(joins, j)
		}
	}
	b.state.Joins = joins
	b.regenerate()
}

// SetConditions replaces the WHERE predicates. Nothing changes if any
// condition is invalid.
func (b *Builder) SetConditions(conds ...Condition) error {
	for _, c := range conds {
		if err := validateCondition(c); err != nil {
			return err
		}
	}
	b.state.Conditions = append([]Condition(nil), conds...)
	b.regenerate()
	return nil
}

// AddCondition appends one WHERE predicate.
func (b *Builder) AddCondition(c Condition) error {
	if err := validateCondition(c); err != nil {
		return err
	}
	b.state.Conditions = append(b.state.Conditions, c)
	b.regenerate()
	return nil
}

// SetValue assigns a literal to column for INSERT or UPDATE. The column keeps
// its first insertion position; an empty literal leaves it out of the
// statement.
func (b *Builder) SetValue(column, lit string) {
	for i := range b.state.Values {
		if b.state.Values[i].Column == column {
			b.state.Values[i].Literal = lit
			b.regenerate()
			return
		}
	}
	b.state.Values = append(b.state.Values, Value{Column: column, Literal: lit})
	b.regenerate()
}

// SetAggregates replaces the aggregate list. Any aggregate switches SELECT
// into aggregate mode.
func (b *Builder) SetAggregates(aggs ...Aggregate) error {
	for _, a := range aggs {
		if err := validateAggregate(a); err != nil {
			return err
		}
	}
	b.state.Aggregates = append([]Aggregate(nil), aggs...)
	b.regenerate()
	return nil
}

// SetGroupBy replaces the GROUP BY fields.
func (b *Builder) SetGroupBy(fields ...string) {
	b.state.GroupBy = dedupe(fields)
	b.regenerate()
}

// SetHaving replaces the HAVING predicates.
func (b *Builder) SetHaving(hs ...Having) error {
	for _, h := range hs {
		if err := validateHaving(h); err != nil {
			return err
		}
	}
	b.state.Having = append([]Having(nil), hs...)
	b.regenerate()
	return nil
}

// SetOrderBy sets the single sort key. An empty field removes ordering.
func (b *Builder) SetOrderBy(field string, dir Direction) error {
	o := OrderBy{Field: field, Direction: dir}
	if err := validateOrderBy(o); err != nil {
		return err
	}
	if field == "" {
		o = OrderBy{}
	}
	b.state.OrderBy = o
	b.regenerate()
	return nil
}

// SetLimit sets the row limit. Zero means no LIMIT clause.
func (b *Builder) SetLimit(n int) error {
	if err := validateLimit(n); err != nil {
		return err
	}
	b.state.Limit = n
	b.regenerate()
	return nil
}

func (b *Builder) regenerate() {
	b.sql = Generate(b.state)
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
