package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qr-dine/internal/domain"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddCartItemRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	cart, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCartItemRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	cart, err := h.carts.UpdateQuantity(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "menuItemID"), req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(),
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "menuItemID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.carts.Clear(r.Context(), sessionID); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "cleared": true})
}
