package sqlite

import (
	"errors"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// mapError translates modernc sqlite errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifyCode(sqliteErr.Code()), msg, err)
	}

	return database.MapCommonError(err, msg)
}

// classifyCode looks at the primary result code; extended codes carry it in
// the low byte.
func classifyCode(code int) errs.ErrKind {
	switch code & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
		return errs.ErrKindConnectionFailed
	case sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH, sqlite3.SQLITE_READONLY:
		return errs.ErrKindPermissionDenied
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_INTERRUPT:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
