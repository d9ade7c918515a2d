package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qr-dine/internal/common/logger"
	"qr-dine/internal/service"
)

type Handler struct {
	sessions service.SessionServiceInterface
	carts    service.CartServiceInterface
	orders   service.OrderServiceInterface
	desks    service.DeskServiceInterface
	lg       *logger.Logger
}

func New(sessions service.SessionServiceInterface, carts service.CartServiceInterface,
	orders service.OrderServiceInterface, desks service.DeskServiceInterface, lg *logger.Logger) *Handler {
	return &Handler{sessions: sessions, carts: carts, orders: orders, desks: desks, lg: lg}
}

// Routes wires the HTTP surface. maxConcurrent caps in-flight requests
// across the router; zero disables the limiter.
func (h *Handler) Routes(maxConcurrent int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.lg))
	if maxConcurrent > 0 {
		r.Use(limitConcurrency(maxConcurrent))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Get("/{sessionID}", h.getSession)
		r.Post("/{sessionID}/complete", h.completeSession)

		r.Route("/{sessionID}/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{menuItemID}", h.updateCartItem)
			r.Delete("/items/{menuItemID}", h.removeCartItem)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Patch("/{orderID}/status", h.updateOrderStatus)
		r.Post("/{orderID}/paid", h.markOrderPaid)
	})

	r.Route("/desks", func(r chi.Router) {
		r.Get("/", h.listDesks)
		r.Post("/{deskID}/release", h.releaseDesk)
	})

	return r
}
