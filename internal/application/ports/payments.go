package ports

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
)

// PaymentWebhook is the inbound side of the provider: it hands a verdict to
// whoever is waiting on the intent. accepted is false when an earlier
// verdict for the same intent was already recorded.
type PaymentWebhook interface {
	Notify(ctx context.Context, result payment.Result) (accepted bool, err error)
}

type PaymentGateway interface {
	payment.Provider
	PaymentWebhook
}
