// Package mysql implements database.Session for MySQL and MariaDB on top of
// go-sql-driver/mysql. Both dialects share the information_schema catalog.
package mysql

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/DryDB/internal/database"
)

// Session is a MySQL/MariaDB implementation of database.Session.
type Session struct {
	*database.SQLSession
	schema string
}

// Open connects with creds and pings the server before returning.
// creds.Dialect selects between mysql and mariadb for reporting only.
func Open(ctx context.Context, creds database.Credentials) (database.Session, error) {
	base, err := database.OpenSQL(ctx, "mysql", buildDSN(creds, database.DialTimeout(ctx)), dialectOf(creds), mapError, database.NormalizeBytes)
	if err != nil {
		return nil, err
	}
	return &Session{SQLSession: base, schema: creds.Database}, nil
}

// NewSession wraps an existing handle whose default schema is schema.
func NewSession(base *database.SQLSession, schema string) *Session {
	return &Session{SQLSession: base, schema: schema}
}

func dialectOf(creds database.Credentials) database.Dialect {
	if creds.Dialect == database.DialectMariaDB {
		return database.DialectMariaDB
	}
	return database.DialectMySQL
}

// buildDSN renders creds through mysql.Config so that special characters in
// passwords are handled by the driver.
func buildDSN(creds database.Credentials, timeout time.Duration) string {
	creds = creds.WithDefaults()

	cfg := mysql.NewConfig()
	cfg.User = creds.Username
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(creds.Host, strconv.Itoa(creds.Port))
	cfg.DBName = creds.Database
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Timeout = timeout
	if creds.SSL {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

func (s *Session) ListTables(ctx context.Context) ([]database.TableRef, error) {
	const q = `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_TYPE   = 'BASE TABLE'`

	names, err := s.Strings(ctx, q, s.schema)
	if err != nil {
		return nil, err
	}
	refs := make([]database.TableRef, len(names))
	for i, n := range names {
		refs[i] = database.TableRef{Schema: s.schema, Name: n}
	}
	return refs, nil
}

func (s *Session) ListColumns(ctx context.Context, table database.TableRef) ([]database.ColumnInfo, error) {
	const q = `
		SELECT COLUMN_NAME,
		       DATA_TYPE,
		       IS_NULLABLE,
		       COLUMN_DEFAULT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_NAME   = ?
		ORDER BY ORDINAL_POSITION`

	return s.CatalogColumns(ctx, q, s.schema, table.Name)
}

func (s *Session) ListPrimaryKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA    = ?
		  AND TABLE_NAME      = ?
		  AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION`

	return s.Strings(ctx, q, s.schema, table.Name)
}

func (s *Session) ListForeignKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	const q = `
		SELECT COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA           = ?
		  AND TABLE_NAME             = ?
		  AND REFERENCED_TABLE_NAME IS NOT NULL`

	return s.Strings(ctx, q, s.schema, table.Name)
}
