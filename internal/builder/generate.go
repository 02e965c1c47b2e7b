package builder

import (
	"math"
	"strconv"
	"strings"
)

// Placeholder texts returned instead of SQL when the document is incomplete.
const (
	PlaceholderOneTable     = "-- Select exactly one table"
	PlaceholderInsertValues = "-- Enter values to insert"
	PlaceholderUpdateValues = "-- Enter values to update"
)

// Generate renders s as SQL. It returns "" when no kind or no table is set
// and a "--" placeholder when the statement cannot be formed yet. It never
// fails and is deterministic.
func Generate(s State) string {
	if s.Kind == KindNone || len(s.Tables) == 0 {
		return ""
	}
	switch s.Kind {
	case KindSelect:
		return generateSelect(s)
	case KindInsert:
		return generateInsert(s)
	case KindUpdate:
		return generateUpdate(s)
	case KindDelete:
		return generateDelete(s)
	}
	return ""
}

// Executable reports whether text is a runnable statement rather than an
// empty or placeholder result.
func Executable(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && !strings.HasPrefix(t, "--")
}

func generateSelect(s State) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList(s))

	b.WriteString("\nFROM ")
	b.WriteString(s.Tables[0])

	if len(s.Tables) > 1 {
		for _, j := range s.Joins {
			left := j.LeftTable
			if left == "" {
				left = s.Tables[0]
			}
			b.WriteString("\nINNER JOIN " + j.RightTable + " ON " + left + "." + j.LeftField + " = " + j.RightTable + "." + j.RightField)
		}
	}

	writeWhere(&b, s.Conditions)

	if len(s.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}

	if len(s.Having) > 0 {
		parts := make([]string, len(s.Having))
		for i, h := range s.Having {
			parts[i] = predicate(aggregateExpr(h.Function, h.Field), h.Operator, h.Value)
		}
		b.WriteString("\nHAVING ")
		b.WriteString(strings.Join(parts, " AND "))
	}

	if s.OrderBy.Field != "" {
		dir := s.OrderBy.Direction
		if dir == "" {
			dir = Asc
		}
		b.WriteString("\nORDER BY " + s.OrderBy.Field + " " + string(dir))
	}

	if s.Limit > 0 {
		b.WriteString("\nLIMIT " + strconv.Itoa(s.Limit))
	}

	b.WriteString(";")
	return b.String()
}

// selectList gives aggregates precedence over plain fields; group-by fields
// lead the list when aggregating.
func selectList(s State) string {
	if len(s.Aggregates) > 0 {
		parts := make([]string, 0, len(s.GroupBy)+len(s.Aggregates))
		parts = append(parts, s.GroupBy...)
		for _, a := range s.Aggregates {
			expr := aggregateExpr(a.Function, a.Field)
			if a.Alias != "" {
				expr += " AS " + a.Alias
			}
			parts = append(parts, expr)
		}
		return strings.Join(parts, ", ")
	}
	if len(s.Fields) == 0 {
		return "*"
	}
	return strings.Join(s.Fields, ", ")
}

func aggregateExpr(fn, field string) string {
	if fn == FuncCountDistinct {
		return "COUNT(DISTINCT " + field + ")"
	}
	return fn + "(" + field + ")"
}

func generateInsert(s State) string {
	if len(s.Tables) != 1 {
		return PlaceholderOneTable
	}
	vals := assigned(s.Values)
	if len(vals) == 0 {
		return PlaceholderInsertValues
	}

	cols := make([]string, len(vals))
	lits := make([]string, len(vals))
	for i, v := range vals {
		cols[i] = v.Column
		lits[i] = literal(v.Literal)
	}
	return "INSERT INTO " + s.Tables[0] + " (" + strings.Join(cols, ", ") + ")\nVALUES (" + strings.Join(lits, ", ") + ");"
}

func generateUpdate(s State) string {
	if len(s.Tables) != 1 {
		return PlaceholderOneTable
	}
	vals := assigned(s.Values)
	if len(vals) == 0 {
		return PlaceholderUpdateValues
	}

	sets := make([]string, len(vals))
	for i, v := range vals {
		sets[i] = v.Column + " = " + literal(v.Literal)
	}

	var b strings.Builder
	b.WriteString("UPDATE " + s.Tables[0] + "\nSET " + strings.Join(sets, ", "))
	writeWhere(&b, s.Conditions)
	b.WriteString(";")
	return b.String()
}

// generateDelete permits a DELETE without conditions.
func generateDelete(s State) string {
	if len(s.Tables) != 1 {
		return PlaceholderOneTable
	}
	var b strings.Builder
	b.WriteString("DELETE FROM " + s.Tables[0])
	writeWhere(&b, s.Conditions)
	b.WriteString(";")
	return b.String()
}

func writeWhere(b *strings.Builder, conds []Condition) {
	if len(conds) == 0 {
		return
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = predicate(c.Field, c.Operator, c.Value)
	}
	b.WriteString("\nWHERE ")
	b.WriteString(strings.Join(parts, " AND "))
}

func predicate(lhs, op, value string) string {
	if op == OpIsNull || op == OpIsNotNull {
		return lhs + " " + op
	}
	return lhs + " " + op + " " + literal(value)
}

// literal leaves numbers bare and single-quotes everything else. Embedded
// quotes are not escaped.
func literal(v string) string {
	if isNumeric(v) {
		return v
	}
	return "'" + v + "'"
}

func isNumeric(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func assigned(values []Value) []Value {
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if v.Literal != "" {
			out = append(out, v)
		}
	}
	return out
}
