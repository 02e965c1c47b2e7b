// Package sqlite implements database.Session for SQLite files using the
// pure-Go modernc.org/sqlite driver. Credentials.Database is the file path.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

const memoryPath = ":memory:"

// Session is a SQLite implementation of database.Session.
type Session struct {
	*database.SQLSession
}

// Open opens the file named by creds.Database, creating it when missing.
func Open(ctx context.Context, creds database.Credentials) (database.Session, error) {
	if strings.TrimSpace(creds.Database) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite requires a database file path")
	}
	base, err := database.OpenSQL(ctx, "sqlite", buildDSN(creds.Database), database.DialectSQLite, mapError, database.NormalizeBytes)
	if err != nil {
		return nil, err
	}
	return &Session{SQLSession: base}, nil
}

// NewSession wraps an existing handle.
func NewSession(base *database.SQLSession) *Session {
	return &Session{SQLSession: base}
}

func buildDSN(path string) string {
	if path == memoryPath {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Session) ListTables(ctx context.Context) ([]database.TableRef, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'`

	names, err := s.Strings(ctx, q)
	if err != nil {
		return nil, err
	}
	refs := make([]database.TableRef, len(names))
	for i, n := range names {
		refs[i] = database.TableRef{Name: n}
	}
	return refs, nil
}

// ListColumns reads PRAGMA table_info, which also carries key membership.
func (s *Session) ListColumns(ctx context.Context, table database.TableRef) ([]database.ColumnInfo, error) {
	rows, err := s.Query(ctx, "PRAGMA table_info("+quoteIdent(table.Name)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make([]database.ColumnInfo, 0)
	for rows.Next() {
		var (
			cid     int
			c       database.ColumnInfo
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &def, &pk); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		c.Nullable = notNull == 0
		c.IsPrimaryKey = pk > 0
		if def.Valid {
			c.DefaultValue = &def.String
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

func (s *Session) ListPrimaryKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	return s.Strings(ctx, `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`, table.Name)
}

func (s *Session) ListForeignKeys(ctx context.Context, table database.TableRef) ([]string, error) {
	return s.Strings(ctx, `SELECT DISTINCT "from" FROM pragma_foreign_key_list(?)`, table.Name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
