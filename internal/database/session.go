package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/koustreak/DryDB/internal/errs"
)

var errNotEstablished = errs.New(errs.ErrKindConnectionFailed, "database connection not established")

// ErrorMapper translates a native driver error into an *errs.Error-backed error.
type ErrorMapper func(err error, msg string) error

// SQLSession is the database/sql plumbing shared by every dialect. Dialect
// packages embed it and add their catalog queries.
type SQLSession struct {
	DB        *sql.DB
	dialect   Dialect
	mapError  ErrorMapper
	normalize Normalizer
}

// NewSQLSession wraps an open *sql.DB. Tests pass a sqlmock handle here.
func NewSQLSession(db *sql.DB, d Dialect, mapError ErrorMapper, normalize Normalizer) *SQLSession {
	if mapError == nil {
		mapError = MapCommonError
	}
	return &SQLSession{DB: db, dialect: d, mapError: mapError, normalize: normalize}
}

// OpenSQL opens driverName with dsn, limits the pool to a single connection
// and pings it before returning.
func OpenSQL(ctx context.Context, driverName, dsn string, d Dialect, mapError ErrorMapper, normalize Normalizer) (*SQLSession, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid connection settings", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := NewSQLSession(db, d, mapError, normalize)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		mapped := s.mapError(err, "ping failed")
		// a ping never runs user SQL, so an unclassified failure is a connection failure
		if errs.IsQueryFailed(mapped) {
			return nil, errs.Wrap(errs.ErrKindConnectionFailed, "ping failed", err)
		}
		return nil, mapped
	}
	return s, nil
}

func (s *SQLSession) Dialect() Dialect {
	return s.dialect
}

// Close releases the handle. Closing a session that was never opened is a no-op.
func (s *SQLSession) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Execute runs query without parsing or sanitizing it.
func (s *SQLSession) Execute(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := s.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	rs, err := ScanRows(rows, s.normalize)
	if err != nil {
		return nil, s.MapError(err, "reading results failed")
	}
	return rs, nil
}

// Query runs a catalog or user query and maps driver errors.
func (s *SQLSession) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.DB == nil {
		return nil, errNotEstablished
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(err, "query failed")
	}
	return rows, nil
}

// Strings runs a single-column catalog query and collects the values.
func (s *SQLSession) Strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.mapError(err, "failed to scan catalog row")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err, "error iterating catalog rows")
	}
	return out, nil
}

// MapError applies the dialect's error mapper, keeping errors that are
// already classified.
func (s *SQLSession) MapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) && e.Kind != errs.ErrKindQueryFailed {
		return err
	}
	return s.mapError(err, msg)
}

// MapCommonError handles the errors every database/sql driver can return.
// Dialect mappers call it after their own native-type checks.
func MapCommonError(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	case errors.Is(err, sql.ErrNoRows):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// CatalogColumns runs an information_schema style query whose rows are
// (column_name, data_type, is_nullable, column_default) and builds ColumnInfo
// values in row order.
func (s *SQLSession) CatalogColumns(ctx context.Context, query string, args ...any) ([]ColumnInfo, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make([]ColumnInfo, 0)
	for rows.Next() {
		var (
			c        ColumnInfo
			nullable string
			def      sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &def); err != nil {
			return nil, s.mapError(err, "failed to scan column info")
		}
		c.Nullable = ParseNullable(nullable)
		if def.Valid {
			c.DefaultValue = &def.String
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err, "error iterating columns")
	}
	return cols, nil
}
