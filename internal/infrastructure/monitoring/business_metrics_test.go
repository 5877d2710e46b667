package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCheckoutObserverCountsOutcomes(t *testing.T) {
	declined := PaymentResultsTotal.WithLabelValues("declined")
	timeout := PaymentResultsTotal.WithLabelValues("timeout")
	success := PaymentResultsTotal.WithLabelValues("success")
	beforeDeclined, beforeTimeout, beforeSuccess := counterValue(t, declined), counterValue(t, timeout), counterValue(t, success)

	CheckoutObserver(checkout.StatePaymentPending, checkout.StateFailed, "declined")
	CheckoutObserver(checkout.StatePaymentPending, checkout.StateFailed, "timeout")
	CheckoutObserver(checkout.StatePaymentPending, checkout.StateConfirmed, "")
	CheckoutObserver(checkout.StateCart, checkout.StateAddressEntry, "")

	assert.Equal(t, beforeDeclined+1, counterValue(t, declined))
	assert.Equal(t, beforeTimeout+1, counterValue(t, timeout))
	assert.Equal(t, beforeSuccess+1, counterValue(t, success))
	assert.GreaterOrEqual(t, counterValue(t, CheckoutTransitionsTotal.WithLabelValues("Cart", "AddressEntry", "none")), 1.0)
}

type stubPricer struct {
	result *pricing.Result
	err    error
}

func (p stubPricer) Price(context.Context, []cart.LineItem) (*pricing.Result, error) {
	return p.result, p.err
}

func TestWrapPricerCountsStockIssues(t *testing.T) {
	clamped := PricingStockIssuesTotal.WithLabelValues("clamped")
	removed := PricingStockIssuesTotal.WithLabelValues("removed")
	beforeClamped, beforeRemoved := counterValue(t, clamped), counterValue(t, removed)

	p := WrapPricer(stubPricer{result: &pricing.Result{
		Lines:        []pricing.PricedLineItem{{ProductID: "p1", Clamped: true}, {ProductID: "p2"}},
		RemovedLines: []string{"p3", "p4"},
	}})
	_, err := p.Price(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, beforeClamped+1, counterValue(t, clamped))
	assert.Equal(t, beforeRemoved+2, counterValue(t, removed))

	_, err = WrapPricer(stubPricer{err: errors.New("catalog down")}).Price(context.Background(), nil)
	require.Error(t, err)
}

type stubSubmitter struct {
	err error
}

func (s stubSubmitter) Submit(context.Context, *order.Order) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ORD-1", nil
}

func TestWrapOrderSubmitter(t *testing.T) {
	beforeOK, beforeFailed := counterValue(t, OrdersRecordedTotal), counterValue(t, OrderPersistenceFailuresTotal)

	_, err := WrapOrderSubmitter(stubSubmitter{}).Submit(context.Background(), &order.Order{})
	require.NoError(t, err)
	_, err = WrapOrderSubmitter(stubSubmitter{err: &domainErrors.PersistenceError{TransactionID: "tx", Err: errors.New("db")}}).
		Submit(context.Background(), &order.Order{})
	require.ErrorIs(t, err, domainErrors.ErrPersistence)

	assert.Equal(t, beforeOK+1, counterValue(t, OrdersRecordedTotal))
	assert.Equal(t, beforeFailed+1, counterValue(t, OrderPersistenceFailuresTotal))
}
