package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/monitoring"
)

const uniqueViolation = "23505"

var ErrDuplicateOrder = errors.New("an order already exists for this transaction")

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(conn *Connection) *OrderRepository {
	return &OrderRepository{db: conn.GetDB()}
}

// Save writes the order and its lines in one transaction. orders.transaction_id
// is unique, so a payment can back at most one order.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (
			id, user_id, session_id, subtotal_cents, tax_cents, shipping_cents, total_cents, currency,
			ship_name, ship_line1, ship_line2, ship_city, ship_region, ship_postal_code, ship_country,
			payment_intent_id, transaction_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	addr := o.ShippingAddress
	_, err = monitoring.TimedExec(ctx, tx, "INSERT", "orders", orderQuery,
		o.ID, o.UserID, o.SessionID,
		int64(o.Subtotal), int64(o.Tax), int64(o.Shipping), int64(o.Total), o.Currency,
		addr.Name, addr.Line1, addr.Line2, addr.City, addr.Region, addr.PostalCode, addr.Country,
		o.PaymentIntentID, o.TransactionID, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateOrder, o.TransactionID)
		}
		return "", fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, position, product_id, name, quantity, unit_price_cents, line_total_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, line := range o.Lines {
		_, err = monitoring.TimedExec(ctx, tx, "INSERT", "order_lines", lineQuery,
			uuid.NewString(), o.ID, i, line.ProductID, line.Name, line.Quantity,
			int64(line.UnitPrice), int64(line.LineTotal),
		)
		if err != nil {
			return "", fmt.Errorf("insert order line %s: %w", line.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit order: %w", err)
	}
	return o.ID, nil
}

// isUniqueViolation understands both drivers' error types.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
