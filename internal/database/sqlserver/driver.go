// Package sqlserver implements database.Session for Microsoft SQL Server on
// top of go-mssqldb.
package sqlserver

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	mssql "github.com/microsoft/go-mssqldb"
)

// Session is a SQL Server implementation of database.Session.
type Session struct {
	*database.SQLSession
}

// Open connects with creds and pings the server before returning.
func Open(ctx context.Context, creds database.Credentials) (database.Session, error) {
	base, err := database.OpenSQL(ctx, "sqlserver", buildDSN(creds, database.DialTimeout(ctx)), database.DialectSQLServer, mapError, normalize)
	if err != nil {
		return nil, err
	}
	return &Session{SQLSession: base}, nil
}

// NewSession wraps an existing handle.
func NewSession(base *database.SQLSession) *Session {
	return &Session{SQLSession: base}
}

// buildDSN renders creds as a sqlserver:// URL. The server certificate is
// trusted as presented, with encryption only when SSL is requested.
func buildDSN(creds database.Credentials, timeout time.Duration) string {
	creds = creds.WithDefaults()

	q := url.Values{}
	q.Set("database", creds.Database)
	q.Set("TrustServerCertificate", "true")
	q.Set("dial timeout", strconv.Itoa(int(timeout/time.Second)))
	if creds.SSL {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(creds.Username, creds.Password),
		Host:     creds.Address(),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// normalize renders UNIQUEIDENTIFIER columns in their canonical text form;
// every other byte slice becomes a string.
func normalize(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if dbType == "UNIQUEIDENTIFIER" {
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
	}
	return string(b)
}

func (s *Session) ListTables(ctx context.Context) ([]database.TableRef, error) {
	const q = `
		SELECT TABLE_SCHEMA, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'`

	rows, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]database.TableRef, 0)
	for rows.Next() {
		var ref database.TableRef
		if err := rows.Scan(&ref.Schema, &ref.Name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return refs, nil
}

func (s *Session) ListColumns(ctx context.Context, table database.TableRef) ([]database.ColumnInfo, error) {
	const q = `
		SELECT COLUMN_NAME,
		       DATA_TYPE,
		       IS_NULLABLE,
		       COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME   = @p1
		  AND TABLE_SCHEMA = @p2
		ORDER BY ORDINAL_POSITION`

	return s.CatalogColumns(ctx, q, table.Name, schemaOf(table))
}

// ListPrimaryKeys relies on the PK_ constraint naming convention that SQL
// Server applies to generated primary key constraints.
func (s *Session) ListPrimaryKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_NAME   = @p1
		  AND TABLE_SCHEMA = @p2
		  AND CONSTRAINT_NAME LIKE 'PK_%'
		ORDER BY ORDINAL_POSITION`

	return s.Strings(ctx, q, table.Name, schemaOf(table))
}

func (s *Session) ListForeignKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT DISTINCT c.name
		FROM sys.foreign_key_columns fkc
		JOIN sys.columns c
		  ON c.object_id = fkc.parent_object_id
		 AND c.column_id = fkc.parent_column_id
		WHERE fkc.parent_object_id = OBJECT_ID(QUOTENAME(@p2) + '.' + QUOTENAME(@p1))`

	return s.Strings(ctx, q, table.Name, schemaOf(table))
}

func schemaOf(t database.TableRef) string {
	if t.Schema == "" {
		return "dbo"
	}
	return t.Schema
}
