package routes

import (
	"net/http"

	"github.com/zatekoja/orderdesk/backend/internal/api/handlers"
	"github.com/zatekoja/orderdesk/backend/internal/api/middleware"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	orderHandler *handlers.OrderHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(orderHandler *handlers.OrderHandler, metrics *observability.Metrics, allowedOrigins []string) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		orderHandler:   orderHandler,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Order board
	r.mux.HandleFunc("GET /api/orders", r.orderHandler.ListOrders)
	r.mux.HandleFunc("GET /api/orders/{id}", r.orderHandler.GetOrder)
	r.mux.HandleFunc("POST /api/orders/reload", r.orderHandler.ReloadOrders)
	r.mux.HandleFunc("POST /api/orders/collapse", r.orderHandler.CollapseOrder)
	r.mux.HandleFunc("POST /api/orders/{id}/expand", r.orderHandler.ExpandOrder)

	// Decisions
	r.mux.HandleFunc("POST /api/orders/{id}/approve", r.orderHandler.ApproveOrder)
	r.mux.HandleFunc("POST /api/orders/{id}/reject", r.orderHandler.RejectOrder)
	r.mux.HandleFunc("PUT /api/orders/{id}/nurse", r.orderHandler.AssignNurse)

	// Medicine quantity adjustments
	r.mux.HandleFunc("PUT /api/orders/{id}/items/{itemId}/quantity", r.orderHandler.SetQuantity)
	r.mux.HandleFunc("POST /api/orders/{id}/items/{itemId}/increment", r.orderHandler.IncrementQuantity)
	r.mux.HandleFunc("POST /api/orders/{id}/items/{itemId}/decrement", r.orderHandler.DecrementQuantity)
	r.mux.HandleFunc("PUT /api/orders/{id}/items/{itemId}/reason", r.orderHandler.SetReductionReason)

	r.mux.HandleFunc("GET /api/nurses", r.orderHandler.ListNurses)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS is outermost so preflight requests never reach the mux.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
