package ports

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
)

// ReconciliationReader lists paid orders that could not be recorded, oldest first.
type ReconciliationReader interface {
	List(ctx context.Context, limit int) ([]order.Reconciliation, error)
}
