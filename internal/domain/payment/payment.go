package payment

import (
	"context"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
)

type Intent struct {
	ID        string
	Amount    money.Money
	Currency  string
	CreatedAt time.Time
}

// Result is what the provider reports for an intent. TransactionID is only
// meaningful when Success is true.
type Result struct {
	IntentID      string `json:"intent_id"`
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type Provider interface {
	CreateCharge(ctx context.Context, amount money.Money, currency string) (*Intent, error)
	// AwaitResult blocks until the provider reports on the intent or ctx is done.
	AwaitResult(ctx context.Context, intentID string) (*Result, error)
}
