// Package gateway owns the single active database session and dispatches
// connect, introspect and execute calls to the dialect chosen at connect time.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/database/mysql"
	"github.com/koustreak/DryDB/internal/database/postgres"
	"github.com/koustreak/DryDB/internal/database/sqlite"
	"github.com/koustreak/DryDB/internal/database/sqlserver"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/logger"
)

// Connector opens a session for one dialect.
type Connector func(ctx context.Context, creds database.Credentials) (database.Session, error)

// DefaultConnectors maps every supported dialect to its driver package.
func DefaultConnectors() map[database.Dialect]Connector {
	return map[database.Dialect]Connector{
		database.DialectMySQL:     mysql.Open,
		database.DialectMariaDB:   mysql.Open,
		database.DialectPostgres:  postgres.Open,
		database.DialectSQLServer: sqlserver.Open,
		database.DialectSQLite:    sqlite.Open,
	}
}

// Gateway holds at most one session. Its methods are safe to call from
// several goroutines; calls are serialized on an internal lock.
type Gateway struct {
	mu         sync.Mutex
	session    database.Session
	creds      *database.Credentials
	connectors map[database.Dialect]Connector
	timeouts   database.Timeouts
	log        *logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l.Component("gateway")
		}
	}
}

// WithTimeouts bounds connects and every driver call. Zero values keep the
// defaults.
func WithTimeouts(t database.Timeouts) Option {
	return func(g *Gateway) {
		if t.Connect > 0 {
			g.timeouts.Connect = t.Connect
		}
		if t.Query > 0 {
			g.timeouts.Query = t.Query
		}
	}
}

// WithConnector registers or replaces the connector for d.
func WithConnector(d database.Dialect, c Connector) Option {
	return func(g *Gateway) {
		g.connectors[d] = c
	}
}

// New returns a disconnected Gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		connectors: DefaultConnectors(),
		timeouts:   database.DefaultTimeouts(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect replaces any held session with a new one built from creds.
// Failures never surface as errors; they are reported in the status and the
// gateway is left without a session.
func (g *Gateway) Connect(ctx context.Context, creds database.Credentials) database.ConnectionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.releaseLocked()

	d, err := database.ParseDialect(string(creds.Dialect))
	if err != nil {
		return g.failed(creds, err)
	}
	creds.Dialect = d
	if !d.FileBased() {
		creds = creds.WithDefaults()
	}

	connect, ok := g.connectors[d]
	if !ok {
		return g.failed(creds, errs.Newf(errs.ErrKindUnsupportedDialect, "no driver registered for dialect %q", d))
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeouts.Connect)
	defer cancel()

	start := time.Now()
	sess, err := connect(cctx, creds)
	if err != nil {
		return g.failed(creds, err)
	}

	g.session = &timedSession{Session: sess, timeout: g.timeouts.Query}
	g.creds = &creds

	g.log.Timed("connected", start, map[string]any{
		"dialect":  string(d),
		"database": creds.Database,
		"host":     creds.Host,
	})

	return database.ConnectionStatus{Connected: true, Database: creds.Database, Dialect: d}
}

func (g *Gateway) failed(creds database.Credentials, err error) database.ConnectionStatus {
	g.log.WarnWith("connect failed", err, map[string]any{
		"dialect":  string(creds.Dialect),
		"database": creds.Database,
		"kind":     errs.KindOf(err).String(),
	})
	return database.ConnectionStatus{Connected: false, Error: err.Error()}
}

// Disconnect releases the session. It is a no-op when nothing is held and
// never fails; close errors are logged and dropped.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

func (g *Gateway) releaseLocked() {
	if g.session == nil {
		return
	}
	d := g.session.Dialect()
	if err := g.session.Close(); err != nil {
		g.log.WarnWith("close failed", err, map[string]any{"dialect": string(d)})
	}
	g.session = nil
	g.creds = nil
	g.log.InfoWith("disconnected", map[string]any{"dialect": string(d)})
}

// IsConnected reports whether a session is held.
func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session != nil
}

// Credentials returns the credentials of the active session.
func (g *Gateway) Credentials() (database.Credentials, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil {
		return database.Credentials{}, false
	}
	return *g.creds, true
}

// GetSchema introspects the connected database. The result is not cached.
func (g *Gateway) GetSchema(ctx context.Context) (*database.DatabaseSchema, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session == nil {
		return nil, errs.ErrNoActiveSession
	}

	start := time.Now()
	schema, err := database.Introspect(ctx, g.session)
	if err != nil {
		g.log.ErrorWith("introspection failed", err, map[string]any{"dialect": string(g.session.Dialect())})
		return nil, err
	}

	g.log.Timed("schema fetched", start, map[string]any{
		"dialect": string(g.session.Dialect()),
		"tables":  len(schema.Tables),
	})
	return schema, nil
}

// ExecuteQuery runs sql unchanged on the active session.
func (g *Gateway) ExecuteQuery(ctx context.Context, sql string) (*database.ResultSet, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session == nil {
		return nil, errs.ErrNoActiveSession
	}

	start := time.Now()
	rs, err := g.session.Execute(ctx, sql)
	if err != nil {
		g.log.WarnWith("query failed", err, map[string]any{
			"dialect": string(g.session.Dialect()),
			"kind":    errs.KindOf(err).String(),
		})
		return nil, err
	}

	g.log.Timed("query executed", start, map[string]any{
		"dialect": string(g.session.Dialect()),
		"rows":    len(rs.Rows),
	})
	return rs, nil
}
