package builder

import "github.com/koustreak/DryDB/internal/database"

// FieldChoices lists the selectable field identifiers for tables. Names are
// qualified as table.column only when more than one table is selected.
// Unknown tables are skipped.
func FieldChoices(schema *database.DatabaseSchema, tables []string) []string {
	if schema == nil {
		return nil
	}
	qualify := len(tables) > 1

	var out []string
	for _, name := range tables {
		t, ok := schema.Table(name)
		if !ok {
			continue
		}
		for _, c := range t.Columns {
			if qualify {
				out = append(out, t.Name+"."+c.Name)
			} else {
				out = append(out, c.Name)
			}
		}
	}
	return out
}

// ValueColumns lists the columns of the single table an INSERT or UPDATE
// targets, with their nullability so callers can mark required inputs.
func ValueColumns(schema *database.DatabaseSchema, tables []string) []database.ColumnInfo {
	if schema == nil || len(tables) != 1 {
		return nil
	}
	t, ok := schema.Table(tables[0])
	if !ok {
		return nil
	}
	return append([]database.ColumnInfo(nil), t.Columns...)
}

// JoinCandidates suggests one join per additional table, anchored to
// tables[0]. A foreign key on either side that matches a primary key on the
// other wins; otherwise columns sharing a name are paired. Tables with no
// plausible pairing get no suggestion.
func JoinCandidates(schema *database.DatabaseSchema, tables []string) []Join {
	if schema == nil || len(tables) < 2 {
		return nil
	}
	anchor, ok := schema.Table(tables[0])
	if !ok {
		return nil
	}

	var out []Join
	for _, name := range tables[1:] {
		other, ok := schema.Table(name)
		if !ok {
			continue
		}
		if j, ok := suggestJoin(anchor, other); ok {
			out = append(out, j)
		}
	}
	return out
}

func suggestJoin(anchor, other database.TableInfo) (Join, bool) {
	// anchor.fk -> other.pk, e.g. orders.user_id = users.id
	for _, fk := range anchor.Columns {
		if !fk.IsForeignKey {
			continue
		}
		for _, pk := range other.Columns {
			if pk.IsPrimaryKey && refersTo(fk.Name, other.Name, pk.Name) {
				return Join{LeftTable: anchor.Name, LeftField: fk.Name, RightTable: other.Name, RightField: pk.Name}, true
			}
		}
	}
	// other.fk -> anchor.pk
	for _, fk := range other.Columns {
		if !fk.IsForeignKey {
			continue
		}
		for _, pk := range anchor.Columns {
			if pk.IsPrimaryKey && refersTo(fk.Name, anchor.Name, pk.Name) {
				return Join{LeftTable: anchor.Name, LeftField: pk.Name, RightTable: other.Name, RightField: fk.Name}, true
			}
		}
	}
	for _, a := range anchor.Columns {
		if a.IsPrimaryKey {
			continue
		}
		if _, ok := other.Column(a.Name); ok {
			return Join{LeftTable: anchor.Name, LeftField: a.Name, RightTable: other.Name, RightField: a.Name}, true
		}
	}
	return Join{}, false
}

// refersTo guesses whether fk names the key of table by the usual
// <table>_<pk> or <singular>_<pk> conventions.
func refersTo(fk, table, pk string) bool {
	if fk == table+"_"+pk || fk == pk {
		return true
	}
	if n := len(table); n > 1 && table[n-1] == 's' {
		return fk == table[:n-1]+"_"+pk
	}
	return false
}
