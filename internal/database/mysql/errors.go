package mysql

import (
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied   = 1044
	errAccessDenied     = 1045
	errNoDatabase       = 1046
	errUnknownDatabase  = 1049
	errTooManyConns     = 1040
	errUserLimitReached = 1203
	errTableAccess      = 1142
	errColumnAccess     = 1143
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	if errors.Is(err, gomysql.ErrInvalidConn) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return database.MapCommonError(err, msg)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied, errNoDatabase, errUnknownDatabase,
		errTooManyConns, errUserLimitReached:
		return errs.ErrKindConnectionFailed
	case errTableAccess, errColumnAccess:
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
