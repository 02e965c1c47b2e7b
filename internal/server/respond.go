package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/DryDB/internal/errs"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNoSession:
		return http.StatusConflict
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{
			"path": r.URL.Path,
			"kind": errs.KindOf(err).String(),
		})
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}
