package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
)

// CheckoutObserver matches checkout.Dependencies.OnTransition.
func CheckoutObserver(from, to checkout.State, reason string) {
	RecordCheckoutTransition(from.String(), to.String(), reason)

	switch to {
	case checkout.StateConfirmed:
		RecordPaymentResult("success")
	case checkout.StateFailed:
		switch reason {
		case "timeout":
			RecordPaymentResult("timeout")
		case "declined":
			RecordPaymentResult("declined")
		default:
			RecordPaymentResult("error")
		}
	}
}

type pricer interface {
	Price(ctx context.Context, items []cart.LineItem) (*pricing.Result, error)
}

type timedPricer struct {
	next pricer
}

// WrapPricer times every pricing pass.
func WrapPricer(next pricer) checkout.Pricer {
	return &timedPricer{next: next}
}

func (p *timedPricer) Price(ctx context.Context, items []cart.LineItem) (*pricing.Result, error) {
	end := TimePricing()
	result, err := p.next.Price(ctx, items)
	end()
	if err != nil {
		return nil, err
	}

	clamped := 0
	for _, line := range result.Lines {
		if line.Clamped {
			clamped++
		}
	}
	RecordStockIssues(clamped, len(result.RemovedLines))
	return result, nil
}

type countedProvider struct {
	payment.Provider
}

// WrapPaymentProvider counts created intents and times waits.
func WrapPaymentProvider(next payment.Provider) payment.Provider {
	return &countedProvider{Provider: next}
}

func (p *countedProvider) CreateCharge(ctx context.Context, amount money.Money, currency string) (*payment.Intent, error) {
	intent, err := p.Provider.CreateCharge(ctx, amount, currency)
	if err == nil {
		RecordPaymentIntent()
	}
	return intent, err
}

func (p *countedProvider) AwaitResult(ctx context.Context, intentID string) (*payment.Result, error) {
	start := time.Now()
	res, err := p.Provider.AwaitResult(ctx, intentID)
	PaymentWaitDuration.Observe(time.Since(start).Seconds())
	return res, err
}

type countedSubmitter struct {
	next checkout.OrderSubmitter
}

func WrapOrderSubmitter(next checkout.OrderSubmitter) checkout.OrderSubmitter {
	return &countedSubmitter{next: next}
}

func (s *countedSubmitter) Submit(ctx context.Context, o *order.Order) (string, error) {
	id, err := s.next.Submit(ctx, o)
	switch {
	case err == nil:
		RecordOrderRecorded()
	case errors.Is(err, domainErrors.ErrPersistence):
		RecordOrderPersistenceFailure()
	}
	return id, err
}
