package database

import (
	"context"
	"database/sql"
)

// Session is the capability set every dialect implements. The gateway picks
// one implementation at connect time and holds it for the session lifetime;
// nothing above this package imports a dialect package directly except the
// gateway's connector table.
type Session interface {
	// Dialect reports which engine family the session talks to.
	Dialect() Dialect

	// ListTables returns user tables in catalog order.
	ListTables(ctx context.Context) ([]TableRef, error)

	// ListColumns returns the table's columns in ordinal order. Dialects whose
	// column catalog exposes key membership may set IsPrimaryKey here.
	ListColumns(ctx context.Context, table TableRef) ([]ColumnInfo, error)

	// ListPrimaryKeys returns the names of the table's primary key columns.
	ListPrimaryKeys(ctx context.Context, table TableRef) ([]string, error)

	// ListForeignKeys returns the names of columns that reference another table.
	ListForeignKeys(ctx context.Context, table TableRef) ([]string, error)

	// Execute runs sql as-is and returns normalized rows.
	Execute(ctx context.Context, sql string) (*ResultSet, error)

	// Close releases the underlying handle.
	Close() error
}

// Rows is the subset of *sql.Rows that ScanRows needs.
// Callers must always call Close() when done, even on error.
type Rows interface {
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
