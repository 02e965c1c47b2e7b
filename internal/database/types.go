package database

import (
	"net"
	"strconv"
	"time"
)

// Credentials describe one connection target. For SQLite, Database is the
// file path and the network fields are ignored.
type Credentials struct {
	Dialect  Dialect `json:"dialect"`
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Database string  `json:"database"`
	SSL      bool    `json:"ssl,omitempty"`
}

// WithDefaults returns a copy with a zero port replaced by the dialect's
// default port.
func (c Credentials) WithDefaults() Credentials {
	if c.Port == 0 {
		c.Port = c.Dialect.DefaultPort()
	}
	return c
}

// Address returns host:port for network dialects.
func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DisplayName is the label used for saved connections, e.g. "shop (mysql)".
func (c Credentials) DisplayName() string {
	return c.Database + " (" + string(c.Dialect) + ")"
}

// Redacted returns a copy without the password, for logs and API output.
func (c Credentials) Redacted() Credentials {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// ConnectionStatus is the outcome of a connect attempt. Failures are carried
// in Error rather than returned as Go errors.
type ConnectionStatus struct {
	Connected bool    `json:"connected"`
	Database  string  `json:"database,omitempty"`
	Dialect   Dialect `json:"dialect,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// ColumnInfo describes one column. Type is the dialect-native declared type.
type ColumnInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsForeignKey bool    `json:"isForeignKey"`
	DefaultValue *string `json:"defaultValue,omitempty"`
}

// TableInfo describes a table with its columns in ordinal order.
type TableInfo struct {
	Name    string       `json:"name"`
	Schema  string       `json:"schema,omitempty"`
	Columns []ColumnInfo `json:"columns"`
}

// Column returns the named column, if present.
func (t TableInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// TableRef names a table as the catalog reported it.
type TableRef struct {
	Schema string
	Name   string
}

// DatabaseSchema is a snapshot of the catalog. It is not cached by the
// gateway; callers refetch it after the session changes.
type DatabaseSchema struct {
	Tables      []TableInfo `json:"tables"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// Table returns the named table, if present.
func (s *DatabaseSchema) Table(name string) (TableInfo, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableInfo{}, false
}

// Record is one result row keyed by column name.
type Record map[string]any

// ResultSet is the normalized shape of every dialect's query result.
// Columns keeps the driver's column order.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}
