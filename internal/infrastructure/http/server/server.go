package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/config"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

// requestSlack is added to the payment timeout so a long-polling await can
// report the timeout itself before the server cuts the connection.
const requestSlack = 15 * time.Second

type Handlers struct {
	Health   *handlers.HealthHandler
	Catalog  *handlers.CatalogHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.PaymentWebhookHandler
	Admin    *handlers.AdminHandler
}

type Server struct {
	server         *http.Server
	logger         *logger.Logger
	handlers       Handlers
	requestTimeout time.Duration
	serveMetrics   bool
}

func NewServer(cfg *config.Config, h Handlers, logger *logger.Logger) *Server {
	requestTimeout := cfg.Checkout.PaymentTimeout.Duration + requestSlack

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s := &Server{
		server:         server,
		logger:         logger,
		handlers:       h,
		requestTimeout: requestTimeout,
		serveMetrics:   cfg.Server.MetricsPort == 0,
	}
	server.Handler = s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe returns nil once Shutdown has been called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
