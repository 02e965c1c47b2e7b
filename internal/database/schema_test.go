package database

import (
	"context"
	"testing"

	"github.com/koustreak/DryDB/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogSession serves a fixed catalog and can fail on a chosen table.
type catalogSession struct {
	tables  []TableRef
	columns map[string][]ColumnInfo
	pks     map[string][]string
	fks     map[string][]string
	failOn  string
}

func (c *catalogSession) Dialect() Dialect { return DialectSQLite }

func (c *catalogSession) ListTables(context.Context) ([]TableRef, error) {
	return c.tables, nil
}

func (c *catalogSession) ListColumns(_ context.Context, t TableRef) ([]ColumnInfo, error) {
	if t.Name == c.failOn {
		return nil, errs.New(errs.ErrKindQueryFailed, "no such table")
	}
	return append([]ColumnInfo(nil), c.columns[t.Name]...), nil
}

func (c *catalogSession) ListPrimaryKeys(_ context.Context, t TableRef) ([]string, error) {
	return c.pks[t.Name], nil
}

func (c *catalogSession) ListForeignKeys(_ context.Context, t TableRef) ([]string, error) {
	return c.fks[t.Name], nil
}

func (c *catalogSession) Execute(context.Context, string) (*ResultSet, error) { return nil, nil }
func (c *catalogSession) Close() error                                       { return nil }

func shopCatalog() *catalogSession {
	return &catalogSession{
		tables: []TableRef{{Name: "users"}, {Name: "orders"}},
		columns: map[string][]ColumnInfo{
			"users": {
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text", Nullable: true},
				{Name: "email", Type: "text"},
			},
			"orders": {
				{Name: "id", Type: "integer", IsPrimaryKey: true},
				{Name: "user_id", Type: "integer"},
			},
		},
		pks: map[string][]string{"users": {"id"}},
		fks: map[string][]string{"orders": {"user_id"}},
	}
}

func TestIntrospect(t *testing.T) {
	schema, err := Introspect(context.Background(), shopCatalog())
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "users", schema.Tables[0].Name, "catalog order is kept")
	assert.Equal(t, "orders", schema.Tables[1].Name)
	assert.False(t, schema.LastUpdated.IsZero())

	users := schema.Tables[0]
	assert.Equal(t, []string{"id", "name", "email"}, []string{users.Columns[0].Name, users.Columns[1].Name, users.Columns[2].Name})
	assert.True(t, users.Columns[0].IsPrimaryKey)
	assert.False(t, users.Columns[1].IsPrimaryKey)
	assert.True(t, users.Columns[1].Nullable)

	orders, ok := schema.Table("orders")
	require.True(t, ok)
	id, _ := orders.Column("id")
	assert.True(t, id.IsPrimaryKey, "inline key flag from the column catalog survives")
	userID, _ := orders.Column("user_id")
	assert.True(t, userID.IsForeignKey)
}

func TestIntrospect_AllOrNothing(t *testing.T) {
	cat := shopCatalog()
	cat.failOn = "orders"

	schema, err := Introspect(context.Background(), cat)
	require.Error(t, err)
	assert.Nil(t, schema)
	assert.True(t, errs.IsIntrospectionFailed(err))
	assert.Contains(t, err.Error(), `inspecting table "orders"`)
}
