package database

import (
	"strings"

	"github.com/koustreak/DryDB/internal/errs"
)

// Dialect identifies the database engine family behind a session.
type Dialect string

const (
	DialectMySQL     Dialect = "mysql"
	DialectMariaDB   Dialect = "mariadb"
	DialectPostgres  Dialect = "postgresql"
	DialectSQLServer Dialect = "sqlserver"
	DialectSQLite    Dialect = "sqlite"
)

// defaultPorts pre-fills connection forms. SQLite has no port.
var defaultPorts = map[Dialect]int{
	DialectMySQL:     3306,
	DialectMariaDB:   3306,
	DialectPostgres:  5432,
	DialectSQLServer: 1433,
	DialectSQLite:    0,
}

// Dialects lists every supported dialect in display order.
func Dialects() []Dialect {
	return []Dialect{DialectMySQL, DialectMariaDB, DialectPostgres, DialectSQLServer, DialectSQLite}
}

// DefaultPort returns the conventional port for d, or 0 when d has none.
func (d Dialect) DefaultPort() int {
	return defaultPorts[d]
}

// Supported reports whether d is one of the known dialects.
func (d Dialect) Supported() bool {
	_, ok := defaultPorts[d]
	return ok
}

// FileBased reports whether the dialect reads a local file instead of a server.
func (d Dialect) FileBased() bool {
	return d == DialectSQLite
}

func (d Dialect) String() string {
	return string(d)
}

// ParseDialect accepts the canonical names plus a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return DialectMySQL, nil
	case "mariadb":
		return DialectMariaDB, nil
	case "postgresql", "postgres", "pg":
		return DialectPostgres, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	}
	return "", errs.Newf(errs.ErrKindUnsupportedDialect, "unsupported dialect %q", s)
}
