package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) database.Session {
	t.Helper()
	s, err := Open(context.Background(), database.Credentials{Dialect: database.DialectSQLite, Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exec(t *testing.T, s database.Session, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := s.Execute(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

func TestSession_Introspect(t *testing.T) {
	s := openMemory(t)
	exec(t, s,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT NOT NULL DEFAULT 'none')`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id), total REAL)`,
	)

	schema, err := database.Introspect(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "users", schema.Tables[0].Name)
	assert.Equal(t, "orders", schema.Tables[1].Name)

	users := schema.Tables[0]
	require.Len(t, users.Columns, 3)
	assert.Equal(t, "id", users.Columns[0].Name)
	assert.Equal(t, "INTEGER", users.Columns[0].Type)
	assert.True(t, users.Columns[0].IsPrimaryKey)
	assert.True(t, users.Columns[1].Nullable)
	assert.False(t, users.Columns[2].Nullable)
	require.NotNil(t, users.Columns[2].DefaultValue)
	assert.Equal(t, "'none'", *users.Columns[2].DefaultValue)

	orders := schema.Tables[1]
	userID, ok := orders.Column("user_id")
	require.True(t, ok)
	assert.True(t, userID.IsForeignKey)
	total, _ := orders.Column("total")
	assert.False(t, total.IsForeignKey)
}

func TestSession_Execute(t *testing.T) {
	s := openMemory(t)
	exec(t, s,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`INSERT INTO users (id, name) VALUES (1, 'Ana'), (2, 'Luis')`,
	)

	rs, err := s.Execute(context.Background(), `SELECT id, name FROM users ORDER BY id;`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, int64(1), rs.Rows[0]["id"])
	assert.Equal(t, "Luis", rs.Rows[1]["name"])
}

func TestSession_ExecuteSyntaxError(t *testing.T) {
	s := openMemory(t)

	_, err := s.Execute(context.Background(), `SELEC 1`)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}

func TestOpen_Failures(t *testing.T) {
	_, err := Open(context.Background(), database.Credentials{Dialect: database.DialectSQLite})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	missingDir := filepath.Join(t.TempDir(), "missing", "app.db")
	_, err = Open(context.Background(), database.Credentials{Dialect: database.DialectSQLite, Database: missingDir})
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	s, err := Open(context.Background(), database.Credentials{Dialect: database.DialectSQLite, Database: path})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, database.DialectSQLite, s.Dialect())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, quoteIdent("users"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
