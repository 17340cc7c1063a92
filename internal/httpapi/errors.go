package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/lifecycle"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps coordinator and store sentinels onto HTTP
// statuses. Anything unrecognized is a 500 with a generic message so
// internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, lifecycle.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, lifecycle.ErrDisplayNameRequired),
		errors.Is(err, lifecycle.ErrInvalidKind),
		errors.Is(err, lifecycle.ErrKindMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
