package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qr-dine/internal/domain"
)

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSessionRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), req.TableNumber, req.ShopID, req.TTLHours)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.NewSessionResponse(sess))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewSessionResponse(sess))
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Complete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": string(domain.SessionCompleted)})
}
