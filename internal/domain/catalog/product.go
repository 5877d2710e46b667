package catalog

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
)

type Product struct {
	ID             string
	Name           string
	Price          money.Money
	SalePrice      *money.Money
	AvailableStock int
}

// UnitPrice is the sale price when one is set and strictly lower than the list price.
func (p *Product) UnitPrice() money.Money {
	if p.SalePrice != nil && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}

func (p *Product) OnSale() bool {
	return p.UnitPrice() < p.Price
}

// Lookup resolves current price and stock. Implementations return
// errors.ErrProductNotFound (possibly wrapped) for unknown products.
type Lookup interface {
	Get(ctx context.Context, productID string) (*Product, error)
}
