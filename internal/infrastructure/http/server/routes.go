package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(monitoring.HTTPMetrics)
	r.Use(middleware.NewLoggingMiddleware(s.logger))
	r.Use(middleware.NewRecoveryMiddleware(s.logger))
	r.Use(middleware.Identity)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, http.StatusNotFound, response.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, response.StatusError, "Method not allowed")
	})

	if s.serveMetrics {
		r.Handle("/metrics", monitoring.MetricsHandler())
	}
	r.Get("/health", s.handlers.Health.HandleHealth())

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handlers.Catalog.HandleListProducts())
		r.Get("/{productID}", s.handlers.Catalog.HandleGetProduct())
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handlers.Cart.HandleGetCart())
		r.Delete("/", s.handlers.Cart.HandleClearCart())
		r.Post("/items", s.handlers.Cart.HandleAddItem())
		r.Put("/items/{productID}", s.handlers.Cart.HandleSetQuantity())
		r.Delete("/items/{productID}", s.handlers.Cart.HandleRemoveItem())
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", s.handlers.Checkout.HandleBegin())
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handlers.Checkout.HandleGet())
			r.Post("/address", s.handlers.Checkout.HandleSubmitAddress())
			r.Post("/payment/await", s.handlers.Checkout.HandleAwaitPayment())
			r.Post("/payment/retry", s.handlers.Checkout.HandleRetryPayment())
			r.Post("/abandon", s.handlers.Checkout.HandleAbandon())
		})
	})

	r.Post("/payments/webhook", s.handlers.Webhook.HandlePaymentResult())
	r.Get("/admin/reconciliation", s.handlers.Admin.HandleListUnreconciled())

	var handler http.Handler = r
	handler = s.corsMiddleware(handler)
	handler = s.timeoutMiddleware(handler)

	return handler
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-User-ID, X-Cart-Session")
		w.Header().Set("Access-Control-Expose-Headers", "Link")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, s.requestTimeout, `{"status":"error","code":"request_timeout","message":"Request timeout"}`)
}
