package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listDesks(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shop_id")
	desks, err := h.desks.ListDesks(r.Context(), shopID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shop_id": shopID, "desks": desks})
}

func (h *Handler) releaseDesk(w http.ResponseWriter, r *http.Request) {
	desk, err := h.desks.Release(r.Context(), chi.URLParam(r, "deskID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desk)
}
