package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cpcoders/codetrack/internal/errs"
	"github.com/cpcoders/codetrack/internal/identity"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service and identity errors to HTTP statuses.
// Duplicate identity is a client-visible domain outcome, not a storage fault.
func writeServiceError(w http.ResponseWriter, err error) {
	var mf *identity.MissingFieldError
	var inv *identity.InvalidIdentityError
	switch {
	case errors.As(err, &mf), errors.As(err, &inv), errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "question already exists in this collection")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "account already exists")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
