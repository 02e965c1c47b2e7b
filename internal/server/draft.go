package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/DryDB/internal/builder"
)

// The draft is the server's one builder document. It is edited facet by
// facet through /api/builder and cleared whenever the session changes.

type draftResponse struct {
	State      builder.State `json:"state"`
	SQL        string        `json:"sql"`
	Executable bool          `json:"executable"`
}

type kindRequest struct {
	Kind builder.Kind `json:"kind"`
}

type listRequest struct {
	Items []string `json:"items"`
}

type conditionsRequest struct {
	Conditions []builder.Condition `json:"conditions"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type aggregatesRequest struct {
	Aggregates []builder.Aggregate `json:"aggregates"`
}

type havingRequest struct {
	Having []builder.Having `json:"having"`
}

type limitRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) draftRoutes(r chi.Router) {
	r.Get("/", s.handleDraft)
	r.Put("/", s.handleDraftLoad)
	r.Post("/reset", s.handleDraftReset)
	r.Put("/kind", s.handleDraftKind)
	r.Put("/tables", s.handleDraftTables)
	r.Put("/fields", s.handleDraftFields)
	r.Put("/joins", s.handleDraftJoin)
	r.Delete("/joins/{table}", s.handleDraftRemoveJoin)
	r.Put("/conditions", s.handleDraftConditions)
	r.Put("/values/{column}", s.handleDraftValue)
	r.Put("/aggregates", s.handleDraftAggregates)
	r.Put("/groupBy", s.handleDraftGroupBy)
	r.Put("/having", s.handleDraftHaving)
	r.Put("/orderBy", s.handleDraftOrderBy)
	r.Put("/limit", s.handleDraftLimit)
}

func (s *Server) writeDraft(w http.ResponseWriter) {
	sql := s.draft.SQL()
	writeJSON(w, http.StatusOK, draftResponse{
		State:      s.draft.State(),
		SQL:        sql,
		Executable: builder.Executable(sql),
	})
}

// editDraft decodes the body into req, applies the edit and replies with the
// resulting document. A rejected edit leaves the draft untouched.
func (s *Server) editDraft(w http.ResponseWriter, r *http.Request, req any, edit func() error) {
	if req != nil {
		if err := decodeJSON(w, r, req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := edit(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDraft(w)
}

func (s *Server) handleDraft(w http.ResponseWriter, _ *http.Request) {
	s.writeDraft(w)
}

func (s *Server) handleDraftLoad(w http.ResponseWriter, r *http.Request) {
	var st builder.State
	s.editDraft(w, r, &st, func() error { return s.draft.Load(st) })
}

func (s *Server) handleDraftReset(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, nil, func() error {
		s.draft.Reset()
		return nil
	})
}

func (s *Server) handleDraftKind(w http.ResponseWriter, r *http.Request) {
	var req kindRequest
	s.editDraft(w, r, &req, func() error { return s.draft.SetKind(req.Kind) })
}

func (s *Server) handleDraftTables(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	s.editDraft(w, r, &req, func() error {
		s.draft.SetTables(req.Items...)
		return nil
	})
}

func (s *Server) handleDraftFields(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	s.editDraft(w, r, &req, func() error {
		s.draft.SetFields(req.Items...)
		return nil
	})
}

func (s *Server) handleDraftJoin(w http.ResponseWriter, r *http.Request) {
	var j builder.Join
	s.editDraft(w, r, &j, func() error { return s.draft.SetJoin(j) })
}

func (s *Server) handleDraftRemoveJoin(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, nil, func() error {
		s.draft.RemoveJoin(chi.URLParam(r, "table"))
		return nil
	})
}

func (s *Server) handleDraftConditions(w http.ResponseWriter, r *http.Request) {
	var req conditionsRequest
	s.editDraft(w, r, &req, func() error { return s.draft.SetConditions(req.Conditions...) })
}

func (s *Server) handleDraftValue(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	s.editDraft(w, r, &req, func() error {
		s.draft.SetValue(chi.URLParam(r, "column"), req.Value)
		return nil
	})
}

func (s *Server) handleDraftAggregates(w http.ResponseWriter, r *http.Request) {
	var req aggregatesRequest
	s.editDraft(w, r, &req, func() error { return s.draft.SetAggregates(req.Aggregates...) })
}

func (s *Server) handleDraftGroupBy(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	s.editDraft(w, r, &req, func() error {
		s.draft.SetGroupBy(req.Items...)
		return nil
	})
}

func (s *Server) handleDraftHaving(w http.ResponseWriter, r *http.Request) {
	var req havingRequest
	s.editDraft(w, r, &req, func() error { return s.draft.SetHaving(req.Having...) })
}

func (s *Server) handleDraftOrderBy(w http.ResponseWriter, r *http.Request) {
	var o builder.OrderBy
	s.editDraft(w, r, &o, func() error { return s.draft.SetOrderBy(o.Field, o.Direction) })
}

func (s *Server) handleDraftLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	s.editDraft(w, r, &req, func() error { return s.draft.SetLimit(req.Limit) })
}
