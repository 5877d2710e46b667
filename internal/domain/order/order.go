package order

import (
	"context"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
)

type Line struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice money.Money
	LineTotal money.Money
}

type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

type Order struct {
	ID              string
	UserID          string
	SessionID       string
	Lines           []Line
	Subtotal        money.Money
	Tax             money.Money
	Shipping        money.Money
	Total           money.Money
	Currency        string
	ShippingAddress Address
	PaymentIntentID string
	TransactionID   string
	CreatedAt       time.Time
}

type Repository interface {
	Save(ctx context.Context, o *Order) (string, error)
}

// Reconciliation is the evidence kept when a charge succeeded but the order
// row could not be written.
type Reconciliation struct {
	TransactionID   string      `json:"transaction_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	SessionID       string      `json:"session_id"`
	UserID          string      `json:"user_id"`
	Total           money.Money `json:"total"`
	Currency        string      `json:"currency"`
	Error           string      `json:"error"`
	RecordedAt      time.Time   `json:"recorded_at"`
}

type ReconciliationLog interface {
	Record(ctx context.Context, r Reconciliation) error
}
