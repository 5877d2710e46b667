package ports

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
)

type ProductCatalog interface {
	catalog.Lookup
	List(ctx context.Context) ([]*catalog.Product, error)
}
