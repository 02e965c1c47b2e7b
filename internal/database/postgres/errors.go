package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
)

// PostgreSQL SQLSTATE codes and classes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection       = "08"
	pgClassInvalidAuth      = "28"
	pgErrInvalidCatalogName = "3D000"
	pgErrInsufficientPriv   = "42501"
	pgErrQueryCanceled      = "57014"
	pgErrTooManyConnections = "53300"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	if pgconn.Timeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	return database.MapCommonError(err, msg)
}

func classifySQLState(code string) errs.ErrKind {
	switch {
	case len(code) >= 2 && (code[:2] == pgClassConnection || code[:2] == pgClassInvalidAuth):
		return errs.ErrKindConnectionFailed
	case code == pgErrInvalidCatalogName, code == pgErrTooManyConnections:
		return errs.ErrKindConnectionFailed
	case code == pgErrInsufficientPriv:
		return errs.ErrKindPermissionDenied
	case code == pgErrQueryCanceled:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
