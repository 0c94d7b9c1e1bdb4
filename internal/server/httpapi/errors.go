package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmogilev/docmill/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels to HTTP statuses. Internal failures are
// logged with detail but leave the response body generic.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrArtifactExpired):
		status, msg = http.StatusGone, "link expired"
	case errors.Is(err, common.ErrEncryptedDocument):
		status, msg = http.StatusUnprocessableEntity, "document is password protected"
	case errors.Is(err, common.ErrEmptyInput),
		errors.Is(err, common.ErrInsufficientInput),
		errors.Is(err, common.ErrNoExtractableContent):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, common.ErrQuotaExceeded):
		status, msg = http.StatusTooManyRequests, "daily limit reached"
	default:
		status, msg = http.StatusInternalServerError, "internal error"
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
