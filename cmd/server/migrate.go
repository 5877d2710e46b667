package main

import (
	"context"
	"fmt"

	"github.com/yuzvak/cart-checkout-service/internal/config"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/postgres"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

func migrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db.GetDB(), cfg.Database.MigrationsPath, log)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	log.Info("Database is up to date", "newly_applied", applied)
	return nil
}
