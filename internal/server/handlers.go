package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/DryDB/internal/builder"
	"github.com/koustreak/DryDB/internal/database"
	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/history"
)

type connectRequest struct {
	database.Credentials
	Save bool `json:"save,omitempty"`
}

type connectResponse struct {
	database.ConnectionStatus
	ConnectionID string `json:"connectionId,omitempty"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type buildResponse struct {
	SQL        string `json:"sql"`
	Executable bool   `json:"executable"`
}

type choicesResponse struct {
	Fields  []string              `json:"fields"`
	Columns []database.ColumnInfo `json:"columns"`
	Joins   []builder.Join        `json:"joins"`
}

// handleConnect opens a session. Connect failures are reported in the body
// with status 200, matching the gateway contract.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	status := s.gw.Connect(r.Context(), req.Credentials)
	s.last = nil
	s.connID = ""
	s.draft.Reset()
	if !status.Connected {
		writeJSON(w, http.StatusOK, connectResponse{ConnectionStatus: status})
		return
	}

	creds, _ := s.gw.Credentials()
	s.connID = s.track(r.Context(), creds, req.Save)
	writeJSON(w, http.StatusOK, connectResponse{ConnectionStatus: status, ConnectionID: s.connID})
}

func (s *Server) handleConnectSaved(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "history is disabled"))
		return
	}
	c, err := s.history.Connection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := s.gw.Connect(r.Context(), c.Credentials)
	s.last = nil
	s.connID = ""
	s.draft.Reset()
	if !status.Connected {
		writeJSON(w, http.StatusOK, connectResponse{ConnectionStatus: status})
		return
	}

	s.connID = c.ID
	s.markUsed(r.Context(), c.ID)
	writeJSON(w, http.StatusOK, connectResponse{ConnectionStatus: status, ConnectionID: c.ID})
}

// track links a fresh session to its saved connection, saving it first when
// asked. History failures are logged and never fail the connect.
func (s *Server) track(ctx context.Context, creds database.Credentials, save bool) string {
	if s.history == nil {
		return ""
	}

	c, err := s.history.FindConnection(ctx, creds)
	switch {
	case err == nil:
	case errs.IsNotFound(err) && save:
		c = history.NewConnection(creds)
		if err := s.history.SaveConnection(ctx, c); err != nil {
			s.log.WarnWith("failed to save connection", err, nil)
			return ""
		}
	case errs.IsNotFound(err):
		return ""
	default:
		s.log.WarnWith("failed to look up connection", err, nil)
		return ""
	}

	s.markUsed(ctx, c.ID)
	return c.ID
}

func (s *Server) markUsed(ctx context.Context, id string) {
	if err := s.history.UpdateLastUsed(ctx, id); err != nil {
		s.log.WarnWith("failed to update last used", err, map[string]any{"connection_id": id})
	}
	if err := s.history.SetCurrentConnection(ctx, id); err != nil {
		s.log.WarnWith("failed to set current connection", err, map[string]any{"connection_id": id})
	}
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.gw.Disconnect()
	s.connID = ""
	s.last = nil
	s.draft.Reset()
	writeJSON(w, http.StatusOK, database.ConnectionStatus{})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	creds, ok := s.gw.Credentials()
	if !ok {
		writeJSON(w, http.StatusOK, connectResponse{})
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{
		ConnectionStatus: database.ConnectionStatus{
			Connected: true,
			Database:  creds.Database,
			Dialect:   creds.Dialect,
		},
		ConnectionID: s.connID,
	})
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.gw.Credentials()
	if !ok {
		s.writeError(w, r, errs.ErrNoActiveSession)
		return
	}
	writeJSON(w, http.StatusOK, creds.Redacted())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.gw.GetSchema(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// handleChoices lists builder choices for the tables named by repeated or
// comma-separated "table" parameters.
func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request) {
	var tables []string
	for _, v := range r.URL.Query()["table"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	}

	schema, err := s.gw.GetSchema(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choicesResponse{
		Fields:  builder.FieldChoices(schema, tables),
		Columns: builder.ValueColumns(schema, tables),
		Joins:   builder.JoinCandidates(schema, tables),
	})
}

// handleQuery runs a statement and records it against the saved connection.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "empty query"))
		return
	}

	rs, err := s.gw.ExecuteQuery(r.Context(), req.SQL)
	if !errs.IsNoSession(err) {
		s.record(r.Context(), req.SQL, err)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.last = rs
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) record(ctx context.Context, query string, runErr error) {
	if s.history == nil || s.connID == "" {
		return
	}
	if err := s.history.SaveQuery(ctx, history.NewQueryRecord(s.connID, query, runErr)); err != nil {
		s.log.WarnWith("failed to record query", err, map[string]any{"connection_id": s.connID})
	}
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var st builder.State
	if err := decodeJSON(w, r, &st); err != nil {
		s.writeError(w, r, err)
		return
	}

	b := builder.New()
	if err := b.Load(st); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildResponse{SQL: b.SQL(), Executable: builder.Executable(b.SQL())})
}

// handleExport writes the most recent successful result set.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "export is not configured"))
		return
	}
	if s.last == nil {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "no results to export"))
		return
	}

	res, err := s.exporter.Export(r.Context(), s.last)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Connection{})
		return
	}
	list, err := s.history.Connections(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []history.Connection{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "history is disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.history.DeleteConnection(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.connID == id {
		s.connID = ""
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.QueryRecord{})
		return
	}
	list, err := s.history.QueriesByConnection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []history.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteQuery(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "history is disabled"))
		return
	}
	if err := s.history.DeleteQuery(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
