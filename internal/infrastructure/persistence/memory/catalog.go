package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
)

type Catalog struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewCatalog(products ...catalog.Product) *Catalog {
	c := &Catalog{products: make(map[string]catalog.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *Catalog) Get(_ context.Context, productID string) (*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, &domainErrors.ProductError{ProductID: productID}
	}
	return &p, nil
}

func (c *Catalog) List(_ context.Context) ([]*catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) Put(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, productID)
}

func (c *Catalog) SetStock(productID string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[productID]; ok {
		p.AvailableStock = stock
		c.products[productID] = p
	}
}
