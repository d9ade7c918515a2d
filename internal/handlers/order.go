package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qr-dine/internal/domain"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	order, err := h.orders.CreateOrder(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeProblem(w, http.StatusBadRequest, "validation_error", "session_id query parameter is required")
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "orders": orders})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateOrderStatusRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(),
		chi.URLParam(r, "orderID"), req.ShopID, domain.OrderStatus(req.Status))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) markOrderPaid(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.MarkPaid(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
