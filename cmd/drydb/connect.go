package main

import (
	"context"

	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/gateway"
	"github.com/koustreak/DryDB/internal/history"
	"github.com/spf13/pflag"
)

// connFlags selects the target either by explicit credentials or by the id
// of a saved connection.
type connFlags struct {
	dialect  string
	host     string
	port     int
	user     string
	password string
	database string
	ssl      bool

	saved string
	save  bool
}

func (f *connFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dialect, "dialect", "", "mysql, mariadb, postgresql, sqlserver or sqlite")
	fs.StringVar(&f.host, "host", "localhost", "database host")
	fs.IntVar(&f.port, "port", 0, "database port (default: the dialect's port)")
	fs.StringVarP(&f.user, "user", "u", "", "user name")
	fs.StringVarP(&f.password, "password", "p", "", "password")
	fs.StringVarP(&f.database, "database", "d", "", "database name, or file path for sqlite")
	fs.BoolVar(&f.ssl, "ssl", false, "require TLS")
	fs.StringVarP(&f.saved, "connection", "c", "", "id of a saved connection")
	fs.BoolVar(&f.save, "save", false, "save the connection for later use")
}

func (f *connFlags) credentials() (database.Credentials, error) {
	if f.dialect == "" {
		return database.Credentials{}, errs.New(errs.ErrKindInvalidInput, "--dialect or --connection is required")
	}
	d, err := database.ParseDialect(f.dialect)
	if err != nil {
		return database.Credentials{}, err
	}
	creds := database.Credentials{
		Dialect:  d,
		Host:     f.host,
		Port:     f.port,
		Username: f.user,
		Password: f.password,
		Database: f.database,
		SSL:      f.ssl,
	}
	if d.FileBased() {
		creds.Host = ""
	}
	return creds, nil
}

// session is an open gateway plus the saved connection it belongs to.
type session struct {
	gw     *gateway.Gateway
	store  *history.Store
	connID string
}

func (s *session) close() {
	s.gw.Disconnect()
	if s.store != nil {
		_ = s.store.Close()
	}
}

// record stores the outcome of query when the session is tied to a saved
// connection.
func (s *session) record(ctx context.Context, a *app, query string, runErr error) {
	if s.store == nil || s.connID == "" {
		return
	}
	if err := s.store.SaveQuery(ctx, history.NewQueryRecord(s.connID, query, runErr)); err != nil {
		a.log.WarnWith("failed to record query", err, nil)
	}
}

// open connects using f. History is optional: when the store cannot be
// opened the command still runs without recording.
func (a *app) open(ctx context.Context, f *connFlags) (*session, error) {
	s := &session{gw: a.gateway()}

	store, err := a.openHistory(ctx)
	if err != nil {
		a.log.WarnWith("history unavailable", err, nil)
	} else {
		s.store = store
	}

	var creds database.Credentials
	if f.saved != "" {
		if s.store == nil {
			s.close()
			return nil, errs.New(errs.ErrKindNotFound, "saved connections are unavailable")
		}
		c, err := s.store.Connection(ctx, f.saved)
		if err != nil {
			s.close()
			return nil, err
		}
		creds = c.Credentials
	} else {
		creds, err = f.credentials()
		if err != nil {
			s.close()
			return nil, err
		}
	}

	status := s.gw.Connect(ctx, creds)
	if !status.Connected {
		s.close()
		return nil, errs.New(errs.ErrKindConnectionFailed, status.Error)
	}

	if s.store != nil {
		effective, _ := s.gw.Credentials()
		s.connID = a.track(ctx, s.store, effective, f.save)
	}
	return s, nil
}

func (a *app) track(ctx context.Context, store *history.Store, creds database.Credentials, save bool) string {
	c, err := store.FindConnection(ctx, creds)
	switch {
	case err == nil:
	case errs.IsNotFound(err) && save:
		c = history.NewConnection(creds)
		if err := store.SaveConnection(ctx, c); err != nil {
			a.log.WarnWith("failed to save connection", err, nil)
			return ""
		}
	default:
		return ""
	}

	if err := store.UpdateLastUsed(ctx, c.ID); err != nil {
		a.log.WarnWith("failed to update last used", err, nil)
	}
	return c.ID
}
