// Package builder turns a structured query description into SQL text.
//
// A Builder owns one State document. Every mutation validates its input and
// regenerates the SQL from the whole document; nothing is patched
// incrementally. Generated literals are interpolated as-is: numeric-looking
// values are emitted bare, everything else is wrapped in single quotes
// without escaping embedded quotes.
package builder

import (
	"strings"

	"github.com/koustreak/DryDB/internal/errs"
)

// Kind is the statement being built.
type Kind string

const (
	KindNone   Kind = ""
	KindSelect Kind = "SELECT"
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// ParseKind accepts a statement name in any case. An empty string is KindNone.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindNone, KindSelect, KindInsert, KindUpdate, KindDelete:
		return k, nil
	}
	return KindNone, errs.Newf(errs.ErrKindInvalidInput, "unknown statement kind %q", s)
}

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Operators usable in WHERE and HAVING clauses.
const (
	OpEq        = "="
	OpNe        = "!="
	OpGt        = ">"
	OpLt        = "<"
	OpGe        = ">="
	OpLe        = "<="
	OpLike      = "LIKE"
	OpIn        = "IN"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
)

var operators = map[string]bool{
	OpEq: true, OpNe: true, OpGt: true, OpLt: true, OpGe: true, OpLe: true,
	OpLike: true, OpIn: true, OpIsNull: true, OpIsNotNull: true,
}

// Operators lists the accepted comparison operators in display order.
func Operators() []string {
	return []string{OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpLike, OpIn, OpIsNull, OpIsNotNull}
}

// Aggregate functions. CountDistinct renders as COUNT(DISTINCT field).
const (
	FuncCount         = "COUNT"
	FuncSum           = "SUM"
	FuncAvg           = "AVG"
	FuncMin           = "MIN"
	FuncMax           = "MAX"
	FuncCountDistinct = "COUNT_DISTINCT"
)

var functions = map[string]bool{
	FuncCount: true, FuncSum: true, FuncAvg: true, FuncMin: true, FuncMax: true, FuncCountDistinct: true,
}

// Functions lists the accepted aggregate functions in display order.
func Functions() []string {
	return []string{FuncCount, FuncSum, FuncAvg, FuncMin, FuncMax, FuncCountDistinct}
}

// Join is an inner join of RightTable onto the first selected table.
type Join struct {
	LeftTable  string `json:"leftTable"`
	LeftField  string `json:"leftField"`
	RightTable string `json:"rightTable"`
	RightField string `json:"rightField"`
}

// Condition is one WHERE predicate. Value is ignored by the null tests.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Value is one column assignment for INSERT and UPDATE.
type Value struct {
	Column  string `json:"column"`
	Literal string `json:"value"`
}

// Aggregate is one aggregate expression in the SELECT list.
type Aggregate struct {
	Function string `json:"function"`
	Field    string `json:"field"`
	Alias    string `json:"alias,omitempty"`
}

// Having is one HAVING predicate over an aggregate.
type Having struct {
	Function string `json:"function"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// OrderBy is a single ORDER BY key. An empty Field means no ordering.
type OrderBy struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// State is the builder document. Values keep insertion order.
type State struct {
	Kind       Kind        `json:"statementKind"`
	Tables     []string    `json:"tables"`
	Fields     []string    `json:"fields"`
	Joins      []Join      `json:"joins"`
	Conditions []Condition `json:"conditions"`
	Values     []Value     `json:"values"`
	Aggregates []Aggregate `json:"aggregates"`
	GroupBy    []string    `json:"groupBy"`
	Having     []Having    `json:"having"`
	OrderBy    OrderBy     `json:"orderBy"`
	Limit      int         `json:"limit"`
}

// Validate checks every facet the mutations check. A decoded document must
// pass it before it is loaded into a Builder.
func (s State) Validate() error {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	for _, j := range s.Joins {
		if err := validateJoin(s.Tables, j); err != nil {
			return err
		}
	}
	for _, c := range s.Conditions {
		if err := validateCondition(c); err != nil {
			return err
		}
	}
	for _, a := range s.Aggregates {
		if err := validateAggregate(a); err != nil {
			return err
		}
	}
	for _, h := range s.Having {
		if err := validateHaving(h); err != nil {
			return err
		}
	}
	if err := validateOrderBy(s.OrderBy); err != nil {
		return err
	}
	return validateLimit(s.Limit)
}

// clone deep-copies the slices so callers cannot alias builder state.
func (s State) clone() State {
	s.Tables = append([]string(nil), s.Tables...)
	s.Fields = append([]string(nil), s.Fields...)
	s.Joins = append([]Join(nil), s.Joins...)
	s.Conditions = append([]Condition(nil), s.Conditions...)
	s.Values = append([]Value(nil), s.Values...)
	s.Aggregates = append([]Aggregate(nil), s.Aggregates...)
	s.GroupBy = append([]string(nil), s.GroupBy...)
	s.Having = append([]Having(nil), s.Having...)
	return s
}

func validateJoin(tables []string, j Join) error {
	if len(tables) < 2 {
		return errs.New(errs.ErrKindInvalidInput, "a join needs at least two tables")
	}
	if j.LeftTable != "" && j.LeftTable != tables[0] {
		return errs.Newf(errs.ErrKindInvalidInput, "joins must start from %q, got %q", tables[0], j.LeftTable)
	}
	if j.RightTable == tables[0] || !contains(tables[1:], j.RightTable) {
		return errs.Newf(errs.ErrKindInvalidInput, "join table %q is not a selected table", j.RightTable)
	}
	if j.LeftField == "" || j.RightField == "" {
		return errs.New(errs.ErrKindInvalidInput, "join fields must not be empty")
	}
	return nil
}

func validateCondition(c Condition) error {
	if c.Field == "" {
		return errs.New(errs.ErrKindInvalidInput, "condition field must not be empty")
	}
	if !operators[c.Operator] {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown operator %q", c.Operator)
	}
	return nil
}

func validateAggregate(a Aggregate) error {
	if !functions[a.Function] {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown aggregate function %q", a.Function)
	}
	if a.Field == "" {
		return errs.New(errs.ErrKindInvalidInput, "aggregate field must not be empty")
	}
	return nil
}

func validateHaving(h Having) error {
	if err := validateAggregate(Aggregate{Function: h.Function, Field: h.Field}); err != nil {
		return err
	}
	if !operators[h.Operator] {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown operator %q", h.Operator)
	}
	return nil
}

func validateOrderBy(o OrderBy) error {
	switch o.Direction {
	case "", Asc, Desc:
		return nil
	}
	return errs.Newf(errs.ErrKindInvalidInput, "unknown sort direction %q", o.Direction)
}

func validateLimit(n int) error {
	if n < 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "limit must not be negative, got %d", n)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
