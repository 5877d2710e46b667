package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yuzvak/cart-checkout-service/internal/application/commands"
	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/application/sessions"
	"github.com/yuzvak/cart-checkout-service/internal/config"
	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/server"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/payment"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/memory"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/postgres"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/generator"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

const dbMetricsInterval = 30 * time.Second

type reconciliationStore interface {
	order.ReconciliationLog
	ports.ReconciliationReader
}

// adapters are the port implementations picked by storage.driver.
type adapters struct {
	carts          cart.Storage
	products       ports.ProductCatalog
	orders         order.Repository
	reconciliation reconciliationStore
	payments       ports.PaymentGateway

	db      *sql.DB
	redis   *goredis.Client
	closers []func() error
}

func (a *adapters) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func serve(parent context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	log.Info("Starting cart and checkout service", "storage", cfg.Storage.Driver)

	clk := clock.NewRealClock()
	codes := generator.NewCodeGenerator()

	a, err := buildAdapters(ctx, cfg, codes, clk, log)
	if err != nil {
		return err
	}
	defer a.Close()

	taxRate, err := cfg.Checkout.TaxRateDecimal()
	if err != nil {
		return err
	}
	pricer := monitoring.WrapPricer(pricing.NewEngine(a.products, pricing.Config{
		TaxRate:     taxRate,
		Shipping:    pricing.FlatBelowThreshold(money.Money(cfg.Checkout.ShippingFeeCents), money.Money(cfg.Checkout.FreeShippingThreshold)),
		Currency:    cfg.Checkout.Currency,
		Concurrency: cfg.Checkout.CatalogConcurrency,
	}))

	registry := sessions.NewRegistry(&checkout.Dependencies{
		Pricing:        pricer,
		Payments:       monitoring.WrapPaymentProvider(a.payments),
		Orders:         monitoring.WrapOrderSubmitter(order.NewSubmitter(a.orders, a.reconciliation, clk, log)),
		Identity:       middleware.ContextIdentity{},
		Clock:          clk,
		Log:            log,
		PaymentTimeout: cfg.Checkout.PaymentTimeout.Duration,
		OnTransition:   monitoring.CheckoutObserver,
	}, codes, cfg.Checkout.SessionTTL.Duration, log)
	registry.OnSweep(func(active int, _ sessions.SweepStats) {
		monitoring.SetActiveSessions(active)
	})

	carts := commands.NewStorageCarts(a.carts)
	cartCommands := commands.NewCartHandler(carts, pricer, log)
	cartCommands.OnMutation(monitoring.RecordCartOperation)
	httpServer := server.NewServer(cfg, server.Handlers{
		Health:   handlers.NewHealthHandler(a.db, a.redis, registry, log),
		Catalog:  handlers.NewCatalogHandler(a.products, log),
		Cart:     handlers.NewCartHandler(cartCommands, log),
		Checkout: handlers.NewCheckoutHandler(commands.NewCheckoutHandler(carts, registry, log), log),
		Webhook:  handlers.NewPaymentWebhookHandler(commands.NewPaymentWebhookHandler(a.payments, registry, carts, a.reconciliation, clk, log), log),
		Admin:    handlers.NewAdminHandler(a.reconciliation, log),
	}, log)

	var metricsServer *monitoring.MetricsServer
	if cfg.Server.MetricsPort != 0 {
		metricsServer = monitoring.NewMetricsServer(cfg.Server.Host, cfg.Server.MetricsPort)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.ListenAndServe)
	g.Go(func() error {
		return registry.Run(gctx, cfg.Checkout.SweepInterval.Duration)
	})
	if a.db != nil {
		pool := monitoring.NewPoolCollector(a.db, log)
		g.Go(func() error {
			return pool.Run(gctx, dbMetricsInterval)
		})
	}
	if metricsServer != nil {
		g.Go(func() error {
			log.Info("Starting metrics server", "address", metricsServer.Addr())
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()

		registry.Stop()
		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		return err
	}
	log.Info("Server stopped")
	return nil
}

func buildAdapters(ctx context.Context, cfg *config.Config, codes *generator.CodeGenerator, clk clock.Clock, log *logger.Logger) (*adapters, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("Using in-memory storage; carts and orders are lost on restart")
		payments := memory.NewPaymentProvider(codes, clk)
		return &adapters{
			carts:          memory.NewStorage(),
			products:       memory.NewCatalog(demoProducts()...),
			orders:         memory.NewOrderRepository(),
			reconciliation: memory.NewReconciliationLog(),
			payments:       payments,
		}, nil
	}

	a := &adapters{}

	db, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if _, err := postgres.RunMigrations(ctx, db.GetDB(), cfg.Database.MigrationsPath, log); err != nil {
		a.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisConn, err := redis.NewConnection(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, redisConn.Close)

	a.db = db.GetDB()
	a.redis = redisConn.GetClient()
	a.carts = redis.NewCartStorage(redisConn, cfg.Storage.CartTTL.Duration)
	a.products = postgres.NewCatalogRepository(db)
	a.orders = postgres.NewOrderRepository(db)
	a.reconciliation = redis.NewReconciliationLog(redisConn)
	a.payments = payment.NewRedisProvider(redisConn, codes, clk, log)
	return a, nil
}
