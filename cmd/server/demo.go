package main

import (
	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
)

// demoProducts mirrors migrations/002_seed_products so both storage drivers
// start with the same catalog.
func demoProducts() []catalog.Product {
	sale := func(m money.Money) *money.Money { return &m }
	return []catalog.Product{
		{ID: "mug-classic", Name: "Classic Mug", Price: 2500, SalePrice: sale(2000), AvailableStock: 40},
		{ID: "poster-a2", Name: "A2 Poster", Price: 1500, AvailableStock: 12},
		{ID: "tote-canvas", Name: "Canvas Tote", Price: 1800, AvailableStock: 25},
		{ID: "notebook-dot", Name: "Dotted Notebook", Price: 1250, SalePrice: sale(999), AvailableStock: 60},
	}
}
