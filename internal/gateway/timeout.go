package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
)

// timedSession puts a deadline on every driver call of the wrapped session.
type timedSession struct {
	database.Session
	timeout time.Duration
}

func (s *timedSession) ListTables(ctx context.Context) ([]database.TableRef, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	refs, err := s.Session.ListTables(ctx)
	return refs, s.expired(ctx, err)
}

func (s *timedSession) ListColumns(ctx context.Context, t database.TableRef) ([]database.ColumnInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cols, err := s.Session.ListColumns(ctx, t)
	return cols, s.expired(ctx, err)
}

func (s *timedSession) ListPrimaryKeys(ctx context.Context, t database.TableRef) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	keys, err := s.Session.ListPrimaryKeys(ctx, t)
	return keys, s.expired(ctx, err)
}

func (s *timedSession) ListForeignKeys(ctx context.Context, t database.TableRef) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	keys, err := s.Session.ListForeignKeys(ctx, t)
	return keys, s.expired(ctx, err)
}

func (s *timedSession) Execute(ctx context.Context, sql string) (*database.ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rs, err := s.Session.Execute(ctx, sql)
	return rs, s.expired(ctx, err)
}

// expired reclassifies err as a timeout when the call's deadline passed,
// since some drivers report a cancelled query as a generic failure.
func (s *timedSession) expired(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errs.IsTimeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, "call exceeded "+s.timeout.String(), err)
	}
	return err
}
