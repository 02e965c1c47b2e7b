package sqlserver

import (
	"errors"
	"fmt"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	mssql "github.com/microsoft/go-mssqldb"
)

// SQL Server error numbers
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	msErrLoginFailed      = 18456
	msErrCannotOpenDB     = 4060
	msErrPermissionDenied = 229
	msErrTimeout          = -2
)

// mapError translates go-mssqldb errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(classifyNumber(msErr.Number), fmt.Sprintf("%s: %s", msg, msErr.Message), err)
	}

	return database.MapCommonError(err, msg)
}

func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case msErrLoginFailed, msErrCannotOpenDB:
		return errs.ErrKindConnectionFailed
	case msErrPermissionDenied:
		return errs.ErrKindPermissionDenied
	case msErrTimeout:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
