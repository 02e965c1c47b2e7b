// Package postgres implements database.Session for PostgreSQL through the
// pgx database/sql driver. Introspection covers the public schema.
package postgres

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" driver
	"github.com/koustreak/DryDB/internal/database"
)

const defaultSchema = "public"

// Session is a PostgreSQL implementation of database.Session.
type Session struct {
	*database.SQLSession
}

// Open connects with creds and pings the server before returning.
func Open(ctx context.Context, creds database.Credentials) (database.Session, error) {
	base, err := database.OpenSQL(ctx, "pgx", buildDSN(creds, database.DialTimeout(ctx)), database.DialectPostgres, mapError, database.NormalizeBytes)
	if err != nil {
		return nil, err
	}
	return &Session{SQLSession: base}, nil
}

// NewSession wraps an existing handle.
func NewSession(base *database.SQLSession) *Session {
	return &Session{SQLSession: base}
}

// buildDSN renders creds as a postgres:// URL. SSL requests encryption
// without certificate verification.
func buildDSN(creds database.Credentials, timeout time.Duration) string {
	creds = creds.WithDefaults()

	q := url.Values{}
	if creds.SSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	q.Set("connect_timeout", strconv.Itoa(int(timeout/time.Second)))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(creds.Username, creds.Password),
		Host:     creds.Address(),
		Path:     "/" + creds.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (s *Session) ListTables(ctx context.Context) ([]database.TableRef, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type   = 'BASE TABLE'`

	names, err := s.Strings(ctx, q, defaultSchema)
	if err != nil {
		return nil, err
	}
	refs := make([]database.TableRef, len(names))
	for i, n := range names {
		refs[i] = database.TableRef{Schema: defaultSchema, Name: n}
	}
	return refs, nil
}

func (s *Session) ListColumns(ctx context.Context, table database.TableRef) ([]database.ColumnInfo, error) {
	const q = `
		SELECT column_name,
		       data_type,
		       is_nullable,
		       column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name   = $2
		ORDER BY ordinal_position`

	return s.CatalogColumns(ctx, q, schemaOf(table), table.Name)
}

// ListPrimaryKeys reads pg_index joined to pg_attribute for the table's
// primary key index.
func (s *Session) ListPrimaryKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a
		  ON a.attrelid = i.indrelid
		 AND a.attnum   = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass
		  AND i.indisprimary`

	return s.Strings(ctx, q, qualifiedName(table))
}

// ListForeignKeys matches constraints per table, since constraint names are
// only unique within a table.
func (s *Session) ListForeignKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		 AND tc.table_name      = kcu.table_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema    = $1
		  AND tc.table_name      = $2`

	return s.Strings(ctx, q, schemaOf(table), table.Name)
}

func schemaOf(t database.TableRef) string {
	if t.Schema == "" {
		return defaultSchema
	}
	return t.Schema
}

// qualifiedName quotes schema and table so that mixed-case names survive the
// regclass cast.
func qualifiedName(t database.TableRef) string {
	return pgx.Identifier{schemaOf(t), t.Name}.Sanitize()
}
