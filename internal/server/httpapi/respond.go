// Package httpapi is the JSON HTTP surface over the application services.
// It resolves the acting principal from a bearer token, threads it
// explicitly into every service call, and maps the domain error taxonomy to
// HTTP statuses. No business rule lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/logging"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to statuses. Anything outside the taxonomy
// is a storage-layer fault: logged and surfaced as a generic 500, never as
// a domain condition.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation"})
	case errors.Is(err, common.ErrorNotOwner):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: "not_owner"})
	case errors.Is(err, common.ErrorNotYetUnlockable):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error(), Code: "locked"})
	case errors.Is(err, common.ErrorIllegalState):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "illegal_state"})
	case errors.Is(err, common.ErrorDuplicateInvite):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "duplicate_invite"})
	case errors.Is(err, common.ErrorInvalidInvite):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "invalid_invite"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "not_found"})
	default:
		logger.Error(ctx, "request failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrorValidation
	}
	return nil
}
