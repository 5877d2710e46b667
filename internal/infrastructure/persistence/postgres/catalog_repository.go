package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/monitoring"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{db: conn.GetDB()}
}

// Get reads the live price and stock. Inactive products count as gone.
func (r *CatalogRepository) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	query := `
		SELECT id, name, price_cents, sale_price_cents, stock
		FROM products
		WHERE id = $1 AND active
	`

	var (
		p         catalog.Product
		price     int64
		salePrice sql.NullInt64
	)
	row := monitoring.TimedQueryRow(ctx, r.db, "SELECT", "products", query, productID)
	err := row.Scan(&p.ID, &p.Name, &price, &salePrice, &p.AvailableStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domainErrors.ProductError{ProductID: productID}
		}
		return nil, fmt.Errorf("query product %s: %w", productID, err)
	}

	p.Price = money.Money(price)
	if salePrice.Valid {
		sp := money.Money(salePrice.Int64)
		p.SalePrice = &sp
	}
	return &p, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	query := `
		SELECT id, name, price_cents, sale_price_cents, stock
		FROM products
		WHERE active
		ORDER BY id
	`

	rows, err := monitoring.TimedQuery(ctx, r.db, "SELECT", "products", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*catalog.Product
	for rows.Next() {
		var (
			p         catalog.Product
			price     int64
			salePrice sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &salePrice, &p.AvailableStock); err != nil {
			return nil, err
		}
		p.Price = money.Money(price)
		if salePrice.Valid {
			sp := money.Money(salePrice.Int64)
			p.SalePrice = &sp
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}
