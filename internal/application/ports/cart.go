package ports

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
)

// CartRepository opens the persisted cart of one owner. Owner keys are
// "user:<id>" or "guest:<session>".
type CartRepository interface {
	Open(ctx context.Context, ownerKey string) (*cart.Store, error)
}
