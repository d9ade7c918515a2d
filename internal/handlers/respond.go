package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"qr-dine/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem emits the shared error body: a machine-readable type
// plus human-readable detail.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// respondError maps the domain error taxonomy onto HTTP statuses.
// Unrecognized errors become an opaque 500; the diagnostic stays in
// the logs, never in the response body.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTableNumber),
		errors.Is(err, domain.ErrUnknownCustomization),
		errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writeProblem(w, http.StatusGone, "session_expired", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeProblem(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeProblem(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "conflict", "the request conflicted with a concurrent change, retry explicitly")
	default:
		h.lg.Error("request_failed", err, map[string]any{
			"method": r.Method, "path": r.URL.Path,
		})
		writeProblem(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", domain.ErrValidation)
	}
	return nil
}
