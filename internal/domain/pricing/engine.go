package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
)

const defaultConcurrency = 8

// ShippingPolicy maps a subtotal to a shipping charge. It must be pure.
type ShippingPolicy func(subtotal money.Money) money.Money

// FlatBelowThreshold charges fee unless the subtotal reaches threshold.
// A zero threshold means shipping is never free. Empty carts ship for nothing.
func FlatBelowThreshold(fee, threshold money.Money) ShippingPolicy {
	return func(subtotal money.Money) money.Money {
		if subtotal <= 0 {
			return 0
		}
		if threshold > 0 && subtotal >= threshold {
			return 0
		}
		return fee
	}
}

type PricedLineItem struct {
	ProductID         string
	Name              string
	Quantity          int
	RequestedQuantity int
	AvailableStock    int
	ListPrice         money.Money
	UnitPrice         money.Money
	LineTotal         money.Money
	Clamped           bool
}

type Result struct {
	Lines        []PricedLineItem
	RemovedLines []string
	Subtotal     money.Money
	Tax          money.Money
	Shipping     money.Money
	Total        money.Money
	Currency     string
}

func (r *Result) HasStockIssues() bool {
	if len(r.RemovedLines) > 0 {
		return true
	}
	for _, line := range r.Lines {
		if line.Clamped {
			return true
		}
	}
	return false
}

func (r *Result) StockIssues() []domainErrors.StockIssue {
	var issues []domainErrors.StockIssue
	for _, line := range r.Lines {
		if line.Clamped {
			issues = append(issues, domainErrors.StockIssue{
				ProductID: line.ProductID,
				Requested: line.RequestedQuantity,
				Available: line.AvailableStock,
			})
		}
	}
	for _, id := range r.RemovedLines {
		issues = append(issues, domainErrors.StockIssue{ProductID: id, Removed: true})
	}
	return issues
}

// ItemCount is the number of billed units across all lines.
func (r *Result) ItemCount() int {
	n := 0
	for _, line := range r.Lines {
		n += line.Quantity
	}
	return n
}

type Config struct {
	TaxRate     decimal.Decimal
	Shipping    ShippingPolicy
	Currency    string
	Concurrency int
}

type Engine struct {
	lookup      catalog.Lookup
	taxRate     decimal.Decimal
	shipping    ShippingPolicy
	currency    string
	concurrency int
}

func NewEngine(lookup catalog.Lookup, cfg Config) *Engine {
	shipping := cfg.Shipping
	if shipping == nil {
		shipping = func(money.Money) money.Money { return 0 }
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Engine{
		lookup:      lookup,
		taxRate:     cfg.TaxRate,
		shipping:    shipping,
		currency:    cfg.Currency,
		concurrency: concurrency,
	}
}

// Price looks every product up in the live catalog and derives the totals.
// Products the catalog no longer knows are left out and listed in
// RemovedLines. Any other lookup failure fails the whole call.
func (e *Engine) Price(ctx context.Context, items []cart.LineItem) (*Result, error) {
	products, err := e.fetch(ctx, items)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Lines:    make([]PricedLineItem, 0, len(items)),
		Currency: e.currency,
	}

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			result.RemovedLines = append(result.RemovedLines, item.ProductID)
			continue
		}

		line := priceLine(item, product)
		result.Subtotal += line.LineTotal
		result.Lines = append(result.Lines, line)
	}

	result.Tax = result.Subtotal.MulRate(e.taxRate)
	result.Shipping = e.shipping(result.Subtotal)
	result.Total = result.Subtotal + result.Tax + result.Shipping

	return result, nil
}

// Price is a one-shot form of Engine.Price.
func Price(ctx context.Context, items []cart.LineItem, lookup catalog.Lookup, taxRate decimal.Decimal, shipping ShippingPolicy) (*Result, error) {
	return NewEngine(lookup, Config{TaxRate: taxRate, Shipping: shipping}).Price(ctx, items)
}

func priceLine(item cart.LineItem, product *catalog.Product) PricedLineItem {
	stock := product.AvailableStock
	if stock < 0 {
		stock = 0
	}

	billed := item.Quantity
	clamped := false
	if billed > stock {
		billed = stock
		clamped = true
	}

	unit := product.UnitPrice()
	return PricedLineItem{
		ProductID:         item.ProductID,
		Name:              product.Name,
		Quantity:          billed,
		RequestedQuantity: item.Quantity,
		AvailableStock:    stock,
		ListPrice:         product.Price,
		UnitPrice:         unit,
		LineTotal:         unit.Times(billed),
		Clamped:           clamped,
	}
}

// fetch resolves each distinct product id once. Missing products are simply
// absent from the returned map.
func (e *Engine) fetch(ctx context.Context, items []cart.LineItem) (map[string]*catalog.Product, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	found := make([]*catalog.Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			product, err := e.lookup.Get(gctx, id)
			if err != nil {
				if errors.Is(err, domainErrors.ErrProductNotFound) {
					return nil
				}
				return fmt.Errorf("lookup product %s: %w", id, err)
			}
			found[i] = product
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products := make(map[string]*catalog.Product, len(ids))
	for i, id := range ids {
		if found[i] != nil {
			products[id] = found[i]
		}
	}
	return products, nil
}
