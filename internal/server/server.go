// Package server exposes the gateway, the query builder and the history store
// over a small JSON API.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/DryDB/internal/builder"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/export"
	"github.com/koustreak/DryDB/internal/gateway"
	"github.com/koustreak/DryDB/internal/history"
	"github.com/koustreak/DryDB/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Config holds the listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server owns the single gateway of the process. Every API request runs
// under mu, so the gateway never sees concurrent calls.
type Server struct {
	cfg      Config
	gw       *gateway.Gateway
	history  *history.Store
	exporter *export.Exporter
	log      *logger.Logger

	mu sync.Mutex
	// connID is the saved connection the current session belongs to, or ""
	// when the session was opened without being saved.
	connID string
	last   *database.ResultSet
	draft  *builder.Builder
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l.Component("server")
		}
	}
}

// WithHistory records connections and executed queries into store.
func WithHistory(store *history.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithExporter enables POST /api/export.
func WithExporter(e *export.Exporter) Option {
	return func(s *Server) {
		s.exporter = e
	}
}

func New(cfg Config, gw *gateway.Gateway, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		gw:    gw,
		log:   logger.Nop(),
		draft: builder.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every API route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLog,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.serialize)

		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/status", s.handleStatus)
		r.Get("/credentials", s.handleCredentials)
		r.Get("/schema", s.handleSchema)
		r.Get("/choices", s.handleChoices)
		r.Post("/query", s.handleQuery)
		r.Post("/build", s.handleBuild)
		r.Route("/builder", s.draftRoutes)
		r.Post("/export", s.handleExport)

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", s.handleListConnections)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteConnection)
				r.Post("/connect", s.handleConnectSaved)
				r.Get("/queries", s.handleListQueries)
			})
		})
		r.Delete("/queries/{id}", s.handleDeleteQuery)
	})

	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully and
// releases the gateway session.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	s.log.InfoWith("starting server", map[string]any{"addr": s.cfg.Addr})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errs.Wrap(errs.ErrKindConnectionFailed, "server error", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.log.Debug("shutting down server")
		err := srv.Shutdown(shutdownCtx)
		s.gw.Disconnect()
		return err
	})

	return eg.Wait()
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Timed("request", start, map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
