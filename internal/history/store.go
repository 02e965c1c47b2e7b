// Package history persists saved connections and executed-query history in
// a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/logger"
	_ "modernc.org/sqlite"
)

const currentConnectionKey = "current_connection_id"

// Store is safe for concurrent use; SQLite serializes writers on the single
// pooled connection.
type Store struct {
	db    *sql.DB
	limit int
	now   func() time.Time
	log   *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLimit sets how many queries are kept per connection.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l.Component("history")
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the store at path and applies migrations. Use
// ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create history directory", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open history store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to ping history store", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to migrate history store", err)
	}

	s := &Store{db: db, limit: DefaultLimit, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- Connections ---

// SaveConnection inserts c or replaces the connection with the same id. A
// missing id or creation time is filled in.
func (s *Store) SaveConnection(ctx context.Context, c *Connection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name == "" {
		c.Name = c.Credentials.DisplayName()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}

	creds, err := json.Marshal(c.Credentials)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode credentials", err)
	}

	const q = `
		INSERT INTO connections (id, name, credentials, created_at, last_used)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			credentials = excluded.credentials,
			last_used = excluded.last_used`

	if _, err := s.db.ExecContext(ctx, q, c.ID, c.Name, string(creds), c.CreatedAt.UnixMilli(), millisOrNil(c.LastUsed)); err != nil {
		return database.MapCommonError(err, "failed to save connection")
	}
	return nil
}

// Connections lists saved connections, most recently used first.
func (s *Store) Connections(ctx context.Context) ([]Connection, error) {
	const q = `
		SELECT id, name, credentials, created_at, last_used
		FROM connections
		ORDER BY COALESCE(last_used, created_at) DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, database.MapCommonError(err, "failed to list connections")
	}
	defer rows.Close()

	out := make([]Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapCommonError(err, "error iterating connections")
	}
	return out, nil
}

// Connection returns the saved connection with id.
func (s *Store) Connection(ctx context.Context, id string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, credentials, created_at, last_used FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.ErrKindNotFound, "connection %q not found", id)
		}
		return nil, err
	}
	return c, nil
}

// DeleteConnection removes the connection and its query history.
func (s *Store) DeleteConnection(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return database.MapCommonError(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queries WHERE connection_id = ?`, id); err != nil {
		return database.MapCommonError(err, "failed to delete connection queries")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return database.MapCommonError(err, "failed to delete connection")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "connection %q not found", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ? AND value = ?`, currentConnectionKey, id); err != nil {
		return database.MapCommonError(err, "failed to clear current connection")
	}

	if err := tx.Commit(); err != nil {
		return database.MapCommonError(err, "failed to commit")
	}
	s.log.InfoWith("connection deleted", map[string]any{"connection_id": id})
	return nil
}

// UpdateLastUsed stamps the connection with the current time.
func (s *Store) UpdateLastUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE connections SET last_used = ? WHERE id = ?`, s.now().UTC().UnixMilli(), id)
	if err != nil {
		return database.MapCommonError(err, "failed to update last used")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "connection %q not found", id)
	}
	return nil
}

// FindConnection returns the saved connection whose credentials match creds,
// so reconnecting to the same target reuses its history.
func (s *Store) FindConnection(ctx context.Context, creds database.Credentials) (*Connection, error) {
	all, err := s.Connections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if sameTarget(all[i].Credentials, creds) {
			return &all[i], nil
		}
	}
	return nil, errs.New(errs.ErrKindNotFound, "no saved connection for these credentials")
}

func sameTarget(a, b database.Credentials) bool {
	return a.Dialect == b.Dialect && a.Host == b.Host && a.Port == b.Port &&
		a.Username == b.Username && a.Database == b.Database
}

// --- Queries ---

// SaveQuery appends q to its connection's history and drops the oldest
// entries beyond the retention limit.
func (s *Store) SaveQuery(ctx context.Context, q *QueryRecord) error {
	if q.ConnectionID == "" {
		return errs.New(errs.ErrKindInvalidInput, "query record needs a connection id")
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.ExecutedAt.IsZero() {
		q.ExecutedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return database.MapCommonError(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var errText sql.NullString
	if q.Error != "" {
		errText = sql.NullString{String: q.Error, Valid: true}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO queries (id, connection_id, query, executed_at, success, error) VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.ConnectionID, q.Query, q.ExecutedAt.UnixMilli(), q.Success, errText,
	); err != nil {
		return database.MapCommonError(err, "failed to save query")
	}

	const prune = `
		DELETE FROM queries
		WHERE connection_id = ?
		  AND rowid NOT IN (
			SELECT rowid FROM queries
			WHERE connection_id = ?
			ORDER BY executed_at DESC, rowid DESC
			LIMIT ?
		  )`

	res, err := tx.ExecContext(ctx, prune, q.ConnectionID, q.ConnectionID, s.limit)
	if err != nil {
		return database.MapCommonError(err, "failed to prune history")
	}

	if err := tx.Commit(); err != nil {
		return database.MapCommonError(err, "failed to commit")
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.log.InfoWith("history pruned", map[string]any{"connection_id": q.ConnectionID, "removed": n})
	}
	return nil
}

// QueriesByConnection lists a connection's history, newest first.
func (s *Store) QueriesByConnection(ctx context.Context, connectionID string) ([]QueryRecord, error) {
	const q = `
		SELECT id, connection_id, query, executed_at, success, error
		FROM queries
		WHERE connection_id = ?
		ORDER BY executed_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, q, connectionID)
	if err != nil {
		return nil, database.MapCommonError(err, "failed to list queries")
	}
	defer rows.Close()

	out := make([]QueryRecord, 0)
	for rows.Next() {
		var (
			r       QueryRecord
			at      int64
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ConnectionID, &r.Query, &at, &r.Success, &errText); err != nil {
			return nil, database.MapCommonError(err, "failed to scan query")
		}
		r.ExecutedAt = time.UnixMilli(at).UTC()
		r.Error = errText.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapCommonError(err, "error iterating queries")
	}
	return out, nil
}

// DeleteQuery removes one history entry.
func (s *Store) DeleteQuery(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queries WHERE id = ?`, id)
	if err != nil {
		return database.MapCommonError(err, "failed to delete query")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "query %q not found", id)
	}
	return nil
}

// --- Current connection ---

func (s *Store) SetCurrentConnection(ctx context.Context, id string) error {
	const q = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, currentConnectionKey, id); err != nil {
		return database.MapCommonError(err, "failed to set current connection")
	}
	return nil
}

// CurrentConnectionID returns "" when none is set.
func (s *Store) CurrentConnectionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, currentConnectionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", database.MapCommonError(err, "failed to read current connection")
	}
	return id, nil
}

// Clear removes every connection, query and setting.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return database.MapCommonError(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"queries", "connections", "settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return database.MapCommonError(err, "failed to clear "+table)
		}
	}
	if err := tx.Commit(); err != nil {
		return database.MapCommonError(err, "failed to commit")
	}
	s.log.Info("history cleared")
	return nil
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(row scanner) (*Connection, error) {
	var (
		c       Connection
		creds   string
		created int64
		used    sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &creds, &created, &used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, database.MapCommonError(err, "failed to scan connection")
	}
	if err := json.Unmarshal([]byte(creds), &c.Credentials); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to decode credentials", err)
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	if used.Valid {
		t := time.UnixMilli(used.Int64).UTC()
		c.LastUsed = &t
	}
	return &c, nil
}

func millisOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}
