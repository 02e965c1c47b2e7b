package builder

import (
	"encoding/json"
	"testing"

	"github.com/koustreak/DryDB/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectUsers(t *testing.T) *Builder {
	t.Helper()
	b := New()
	require.NoError(t, b.SetKind(KindSelect))
	b.SetTables("users")
	return b
}

func TestBuilder_SelectAll(t *testing.T) {
	b := selectUsers(t)
	assert.Equal(t, "SELECT *\nFROM users;", b.SQL())
}

func TestBuilder_WhereLiteralQuoting(t *testing.T) {
	b := selectUsers(t)
	b.SetFields("name")

	require.NoError(t, b.SetConditions(Condition{Field: "id", Operator: "=", Value: "5"}))
	assert.Equal(t, "SELECT name\nFROM users\nWHERE id = 5;", b.SQL())

	require.NoError(t, b.SetConditions(Condition{Field: "id", Operator: "=", Value: "abc"}))
	assert.Equal(t, "SELECT name\nFROM users\nWHERE id = 'abc';", b.SQL())
}

func TestBuilder_NullTestsOmitValue(t *testing.T) {
	b := selectUsers(t)
	require.NoError(t, b.AddCondition(Condition{Field: "email", Operator: OpIsNull, Value: "ignored"}))
	require.NoError(t, b.AddCondition(Condition{Field: "name", Operator: OpIsNotNull}))
	require.NoError(t, b.AddCondition(Condition{Field: "name", Operator: OpLike, Value: "A%"}))

	assert.Equal(t, "SELECT *\nFROM users\nWHERE email IS NULL AND name IS NOT NULL AND name LIKE 'A%';", b.SQL())
}

func TestBuilder_Insert(t *testing.T) {
	b := New()
	require.NoError(t, b.SetKind(KindInsert))
	b.SetTables("users")

	assert.Equal(t, PlaceholderInsertValues, b.SQL())

	b.SetValue("name", "Ana")
	b.SetValue("email", "")
	assert.Equal(t, "INSERT INTO users (name)\nVALUES ('Ana');", b.SQL())

	b.SetValue("age", "31")
	b.SetValue("email", "ana@example.com")
	assert.Equal(t, "INSERT INTO users (name, email, age)\nVALUES ('Ana', 'ana@example.com', 31);", b.SQL())
}

func TestBuilder_Update(t *testing.T) {
	b := New()
	require.NoError(t, b.SetKind(KindUpdate))
	b.SetTables("users")
	assert.Equal(t, PlaceholderUpdateValues, b.SQL())

	b.SetValue("name", "Luis")
	require.NoError(t, b.AddCondition(Condition{Field: "id", Operator: "=", Value: "2"}))
	assert.Equal(t, "UPDATE users\nSET name = 'Luis'\nWHERE id = 2;", b.SQL())
}

func TestBuilder_DeleteWithoutConditions(t *testing.T) {
	b := New()
	require.NoError(t, b.SetKind(KindDelete))
	b.SetTables("users")
	assert.Equal(t, "DELETE FROM users;", b.SQL())

	require.NoError(t, b.AddCondition(Condition{Field: "id", Operator: ">=", Value: "10"}))
	assert.Equal(t, "DELETE FROM users\nWHERE id >= 10;", b.SQL())
}

func TestBuilder_SingleTableKinds(t *testing.T) {
	for _, k := range []Kind{KindInsert, KindUpdate, KindDelete} {
		t.Run(string(k), func(t *testing.T) {
			b := New()
			require.NoError(t, b.SetKind(k))
			b.SetTables("users", "orders")
			b.SetValue("name", "x")
			assert.Equal(t, PlaceholderOneTable, b.SQL())
			assert.False(t, Executable(b.SQL()))
		})
	}
}

func TestBuilder_Joins(t *testing.T) {
	b := selectUsers(t)
	b.SetTables("users", "orders", "payments")
	b.SetFields("users.name", "orders.total")

	require.NoError(t, b.SetJoin(Join{LeftField: "id", RightTable: "orders", RightField: "user_id"}))
	require.NoError(t, b.SetJoin(Join{LeftField: "id", RightTable: "payments", RightField: "user_id"}))

	assert.Equal(t,
		"SELECT users.name, orders.total\nFROM users"+
			"\nINNER JOIN orders ON users.id = orders.user_id"+
			"\nINNER JOIN payments ON users.id = payments.user_id;",
		b.SQL())

	// replacing keeps position
	require.NoError(t, b.SetJoin(Join{LeftField: "uid", RightTable: "orders", RightField: "owner"}))
	assert.Contains(t, b.SQL(), "FROM users\nINNER JOIN orders ON users.uid = orders.owner\nINNER JOIN payments")

	b.SetTables("users", "payments")
	require.Len(t, b.State().Joins, 1)
	assert.Equal(t, "payments", b.State().Joins[0].RightTable)

	b.SetTables("users")
	assert.Empty(t, b.State().Joins)
}

func TestBuilder_JoinValidation(t *testing.T) {
	b := selectUsers(t)

	err := b.SetJoin(Join{LeftField: "id", RightTable: "orders", RightField: "user_id"})
	assert.True(t, errs.IsInvalidInput(err))

	b.SetTables("users", "orders")
	err = b.SetJoin(Join{LeftTable: "orders", LeftField: "id", RightTable: "users", RightField: "id"})
	assert.True(t, errs.IsInvalidInput(err))

	err = b.SetJoin(Join{LeftField: "id", RightTable: "invoices", RightField: "user_id"})
	assert.True(t, errs.IsInvalidInput(err))

	err = b.SetJoin(Join{RightTable: "orders"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuilder_ChangingFirstTableDropsJoins(t *testing.T) {
	b := selectUsers(t)
	b.SetTables("users", "orders")
	require.NoError(t, b.SetJoin(Join{LeftField: "id", RightTable: "orders", RightField: "user_id"}))

	b.SetTables("orders", "users")
	assert.Empty(t, b.State().Joins)
	assert.Equal(t, "SELECT *\nFROM orders;", b.SQL())
}

func TestBuilder_Aggregates(t *testing.T) {
	b := selectUsers(t)
	b.SetTables("orders")
	b.SetFields("id", "total")

	require.NoError(t, b.SetAggregates(
		Aggregate{Function: FuncCount, Field: "id", Alias: "orders"},
		Aggregate{Function: FuncSum, Field: "total"},
		Aggregate{Function: FuncCountDistinct, Field: "product_id"},
	))
	b.SetGroupBy("user_id")
	require.NoError(t, b.SetHaving(Having{Function: FuncSum, Field: "total", Operator: ">", Value: "100"}))
	require.NoError(t, b.SetOrderBy("user_id", Desc))
	require.NoError(t, b.SetLimit(10))

	assert.Equal(t,
		"SELECT user_id, COUNT(id) AS orders, SUM(total), COUNT(DISTINCT product_id)"+
			"\nFROM orders"+
			"\nGROUP BY user_id"+
			"\nHAVING SUM(total) > 100"+
			"\nORDER BY user_id DESC"+
			"\nLIMIT 10;",
		b.SQL())
}

func TestBuilder_HavingQuotesText(t *testing.T) {
	b := selectUsers(t)
	require.NoError(t, b.SetAggregates(Aggregate{Function: FuncMax, Field: "name"}))
	require.NoError(t, b.SetHaving(Having{Function: FuncMax, Field: "name", Operator: "<", Value: "M"}))

	assert.Equal(t, "SELECT MAX(name)\nFROM users\nHAVING MAX(name) < 'M';", b.SQL())
}

func TestBuilder_OrderAndLimit(t *testing.T) {
	b := selectUsers(t)

	require.NoError(t, b.SetOrderBy("name", ""))
	require.NoError(t, b.SetLimit(0))
	assert.Equal(t, "SELECT *\nFROM users\nORDER BY name ASC;", b.SQL())

	require.NoError(t, b.SetOrderBy("", Desc))
	assert.Equal(t, "SELECT *\nFROM users;", b.SQL())

	assert.True(t, errs.IsInvalidInput(b.SetLimit(-1)))
	assert.True(t, errs.IsInvalidInput(b.SetOrderBy("name", "SIDEWAYS")))
}

func TestBuilder_RejectsUnknownOperatorsAndFunctions(t *testing.T) {
	b := selectUsers(t)
	before := b.SQL()

	err := b.SetConditions(
		Condition{Field: "id", Operator: "=", Value: "1"},
		Condition{Field: "id", Operator: "; DROP", Value: "1"},
	)
	assert.True(t, errs.IsInvalidInput(err))
	assert.True(t, errs.IsInvalidInput(b.AddCondition(Condition{Field: "", Operator: "="})))
	assert.True(t, errs.IsInvalidInput(b.SetAggregates(Aggregate{Function: "MEDIAN", Field: "x"})))
	assert.True(t, errs.IsInvalidInput(b.SetHaving(Having{Function: FuncSum, Field: "x", Operator: "<>"})))
	assert.True(t, errs.IsInvalidInput(b.SetKind("MERGE")))

	assert.Equal(t, before, b.SQL())
}

func TestBuilder_SwitchKindClearsEverything(t *testing.T) {
	b := selectUsers(t)
	b.SetTables("users", "orders")
	b.SetFields("users.name")
	require.NoError(t, b.SetJoin(Join{LeftField: "id", RightTable: "orders", RightField: "user_id"}))
	require.NoError(t, b.AddCondition(Condition{Field: "users.id", Operator: "=", Value: "1"}))
	require.NoError(t, b.SetAggregates(Aggregate{Function: FuncCount, Field: "orders.id"}))
	b.SetGroupBy("users.name")
	require.NoError(t, b.SetHaving(Having{Function: FuncCount, Field: "orders.id", Operator: ">", Value: "1"}))
	require.NoError(t, b.SetOrderBy("users.name", Asc))
	require.NoError(t, b.SetLimit(5))

	require.NoError(t, b.SetKind(KindUpdate))

	s := b.State()
	assert.Equal(t, KindUpdate, s.Kind)
	assert.Empty(t, s.Tables)
	assert.Empty(t, s.Fields)
	assert.Empty(t, s.Joins)
	assert.Empty(t, s.Conditions)
	assert.Empty(t, s.Values)
	assert.Empty(t, s.Aggregates)
	assert.Empty(t, s.GroupBy)
	assert.Empty(t, s.Having)
	assert.Equal(t, OrderBy{}, s.OrderBy)
	assert.Zero(t, s.Limit)
	assert.Equal(t, "", b.SQL())
}

func TestBuilder_SameKindKeepsState(t *testing.T) {
	b := selectUsers(t)
	b.SetFields("name")

	require.NoError(t, b.SetKind(KindSelect))
	assert.Equal(t, "SELECT name\nFROM users;", b.SQL())
}

func TestBuilder_NoKindOrNoTables(t *testing.T) {
	b := New()
	b.SetTables("users")
	assert.Equal(t, "", b.SQL())

	require.NoError(t, b.SetKind(KindSelect))
	assert.Equal(t, "", b.SQL())

	b.SetTables("users")
	b.Reset()
	assert.Equal(t, "", b.SQL())
	assert.Equal(t, KindNone, b.State().Kind)
}

func TestBuilder_StateIsACopy(t *testing.T) {
	b := selectUsers(t)
	b.SetFields("name")

	s := b.State()
	s.Fields[0] = "password"

	assert.Equal(t, "SELECT name\nFROM users;", b.SQL())
	assert.Equal(t, "name", b.State().Fields[0])
}

func TestBuilder_Load(t *testing.T) {
	b := New()
	err := b.Load(State{
		Kind:       KindSelect,
		Tables:     []string{"users", "users"},
		Conditions: []Condition{{Field: "id", Operator: "IN", Value: "(1, 2)"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM users\nWHERE id IN '(1, 2)';", b.SQL())

	err = b.Load(State{Kind: KindSelect, Tables: []string{"users"}, Limit: -3})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuilder_LoadNormalizesKind(t *testing.T) {
	var st State
	require.NoError(t, json.Unmarshal([]byte(`{"statementKind":"select","tables":["users"]}`), &st))

	b := New()
	require.NoError(t, b.Load(st))
	assert.Equal(t, KindSelect, b.State().Kind)
	assert.Equal(t, "SELECT *\nFROM users;", b.SQL())
}

func TestBuilder_SetKindNormalizes(t *testing.T) {
	b := New()
	require.NoError(t, b.SetKind(" delete"))
	b.SetTables("users")
	assert.Equal(t, KindDelete, b.State().Kind)
	assert.Equal(t, "DELETE FROM users;", b.SQL())

	// same kind in another spelling keeps the tables
	require.NoError(t, b.SetKind("DELETE"))
	assert.Equal(t, []string{"users"}, b.State().Tables)
}

func TestGenerate_Deterministic(t *testing.T) {
	s := State{
		Kind:       KindSelect,
		Tables:     []string{"users", "orders"},
		Fields:     []string{"users.name"},
		Joins:      []Join{{LeftTable: "users", LeftField: "id", RightTable: "orders", RightField: "user_id"}},
		Conditions: []Condition{{Field: "orders.total", Operator: ">", Value: "9.5"}},
		OrderBy:    OrderBy{Field: "users.name", Direction: Asc},
		Limit:      3,
	}

	first := Generate(s)
	assert.Equal(t, first, Generate(s))
	assert.Equal(t,
		"SELECT users.name\nFROM users\nINNER JOIN orders ON users.id = orders.user_id\nWHERE orders.total > 9.5\nORDER BY users.name ASC\nLIMIT 3;",
		first)
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "5", want: "5"},
		{in: "-3.25", want: "-3.25"},
		{in: "1e3", want: "1e3"},
		{in: "abc", want: "'abc'"},
		{in: "", want: "''"},
		{in: "NaN", want: "'NaN'"},
		{in: "O'Brien", want: "'O'Brien'"},
		{in: "2024-01-01", want: "'2024-01-01'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, literal(tt.in))
		})
	}
}

func TestExecutable(t *testing.T) {
	assert.True(t, Executable("SELECT *\nFROM users;"))
	assert.False(t, Executable(""))
	assert.False(t, Executable("  "))
	assert.False(t, Executable(PlaceholderInsertValues))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("select")
	require.NoError(t, err)
	assert.Equal(t, KindSelect, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindNone, k)

	_, err = ParseKind("upsert")
	assert.True(t, errs.IsInvalidInput(err))
}
