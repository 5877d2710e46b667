package commands

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/cart-checkout-service/internal/application/sessions"
	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/memory"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/generator"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type userIdentity string

func (u userIdentity) CurrentUserID(context.Context) (string, bool) { return string(u), u != "" }

type harness struct {
	clock    *clock.MockClock
	products *memory.Catalog
	payments *memory.PaymentProvider
	orders   *memory.OrderRepository
	recon    *memory.ReconciliationLog
	registry *sessions.Registry
	cart     *CartHandler
	checkout *CheckoutHandler
	webhook  *PaymentWebhookHandler
}

func sale(m money.Money) *money.Money { return &m }

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := clock.NewMockClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	codes := generator.NewCodeGenerator()
	log := logger.NewNop()

	h := &harness{
		products: memory.NewCatalog(
			catalog.Product{ID: "p1", Name: "Mug", Price: 2500, SalePrice: sale(2000), AvailableStock: 10},
			catalog.Product{ID: "p2", Name: "Poster", Price: 1500, AvailableStock: 1},
		),
		payments: memory.NewPaymentProvider(codes, clk),
		orders:   memory.NewOrderRepository(),
		recon:    memory.NewReconciliationLog(),
		clock:    clk,
	}

	engine := pricing.NewEngine(h.products, pricing.Config{
		TaxRate:  decimal.RequireFromString("0.08"),
		Shipping: pricing.FlatBelowThreshold(500, 5000),
		Currency: "USD",
	})
	deps := &checkout.Dependencies{
		Pricing:        engine,
		Payments:       h.payments,
		Orders:         order.NewSubmitter(h.orders, h.recon, clk, log),
		Identity:       userIdentity("u1"),
		Clock:          clk,
		Log:            log,
		PaymentTimeout: time.Minute,
	}

	carts := NewStorageCarts(memory.NewStorage())
	h.registry = sessions.NewRegistry(deps, codes, 30*time.Minute, log)

	h.cart = NewCartHandler(carts, engine, log)
	h.checkout = NewCheckoutHandler(carts, h.registry, log)
	h.webhook = NewPaymentWebhookHandler(h.payments, h.registry, carts, h.recon, clk, log)
	return h
}

func (h *harness) toPending(t *testing.T, owner string) checkout.Session {
	t.Helper()
	ctx := context.Background()

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: owner, ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	begun, err := h.checkout.Begin(ctx, CheckoutCommand{OwnerKey: owner})
	require.NoError(t, err)

	session, err := h.checkout.SubmitAddress(ctx, CheckoutCommand{
		OwnerKey:  owner,
		SessionID: begun.Session.ID,
		Address:   checkout.Address{Name: "A", Line1: "1 Road", City: "Town", PostalCode: "12345", Country: "US"},
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatePaymentPending, session.State)
	return session
}

func TestCartCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	view, err = h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	require.NotNil(t, view.Pricing)
	assert.Equal(t, money.Money(4820), view.Pricing.Total)

	view, err = h.cart.SetQuantity(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, money.Money(0), view.Pricing.Total)

	_, err = h.cart.SetQuantity(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 3})
	require.ErrorIs(t, err, domainErrors.ErrItemNotFound)

	_, err = h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: -1})
	require.ErrorIs(t, err, domainErrors.ErrInvalidQuantity)

	_, err = h.cart.View(ctx, "")
	require.ErrorIs(t, err, domainErrors.ErrCartOwnerRequired)
}

func TestCartMutationsAreObserved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	type observed struct {
		op  string
		err error
	}
	var seen []observed
	h.cart.OnMutation(func(op string, err error) {
		seen = append(seen, observed{op: op, err: err})
	})

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	_, err = h.cart.SetQuantity(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p2", Quantity: 1})
	require.Error(t, err)
	_, err = h.cart.RemoveItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1"})
	require.NoError(t, err)
	_, err = h.cart.Clear(ctx, "")
	require.Error(t, err)

	_, err = h.cart.View(ctx, "user:u1")
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, "add", seen[0].op)
	assert.NoError(t, seen[0].err)
	assert.Equal(t, "set_quantity", seen[1].op)
	assert.ErrorIs(t, seen[1].err, domainErrors.ErrItemNotFound)
	assert.Equal(t, "remove", seen[2].op)
	assert.NoError(t, seen[2].err)
	assert.Equal(t, "clear", seen[3].op)
	assert.ErrorIs(t, seen[3].err, domainErrors.ErrCartOwnerRequired)
}

func TestCartIsSharedAcrossOpens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: "guest:abc", ProductID: "p2", Quantity: 1})
	require.NoError(t, err)

	view, err := h.cart.View(ctx, "guest:abc")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	view, err = h.cart.View(ctx, "guest:other")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckoutFlowThroughWebhook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := "user:u1"

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: owner, ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	begun, err := h.checkout.Begin(ctx, CheckoutCommand{OwnerKey: owner})
	require.NoError(t, err)
	id := begun.Session.ID
	assert.Equal(t, checkout.StateAddressEntry, begun.Session.State)

	session, err := h.checkout.SubmitAddress(ctx, CheckoutCommand{
		OwnerKey:  owner,
		SessionID: id,
		Address:   checkout.Address{Name: "A", Line1: "1 Road", City: "Town", PostalCode: "12345", Country: "US"},
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatePaymentPending, session.State)

	accepted, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{
		IntentID:      session.PaymentIntentID,
		Success:       true,
		TransactionID: "tx-42",
	}})
	require.NoError(t, err)
	assert.True(t, accepted)

	session, err = h.checkout.AwaitPayment(ctx, CheckoutCommand{OwnerKey: owner, SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmed, session.State)

	orders := h.orders.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "tx-42", orders[0].TransactionID)
	assert.Equal(t, money.Money(4820), orders[0].Total)

	view, err := h.cart.View(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestBeginWithStockIssueDiscardsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p2", Quantity: 4})
	require.NoError(t, err)

	resp, err := h.checkout.Begin(ctx, CheckoutCommand{OwnerKey: "user:u1"})
	require.ErrorIs(t, err, domainErrors.ErrStockUnavailable)
	require.NotNil(t, resp)
	assert.Empty(t, resp.Session.ID)
	assert.Equal(t, 1, resp.Pricing.Lines[0].Quantity)
}

func TestSessionsAreScopedToOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.cart.AddItem(ctx, CartCommand{OwnerKey: "user:u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	begun, err := h.checkout.Begin(ctx, CheckoutCommand{OwnerKey: "user:u1"})
	require.NoError(t, err)

	_, err = h.checkout.Get(ctx, CheckoutCommand{OwnerKey: "user:u2", SessionID: begun.Session.ID})
	require.ErrorIs(t, err, domainErrors.ErrSessionNotFound)

	session, err := h.checkout.Abandon(ctx, CheckoutCommand{OwnerKey: "user:u1", SessionID: begun.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateAbandoned, session.State)
}

func TestWebhookValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{Success: true}})
	require.ErrorIs(t, err, domainErrors.ErrInvalidPaymentResult)

	_, err = h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{IntentID: "PI-x", Success: true}})
	require.ErrorIs(t, err, domainErrors.ErrInvalidPaymentResult)

	_, err = h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{IntentID: "PI-x", Success: false}})
	require.ErrorIs(t, err, domainErrors.ErrIntentNotFound)
}

func TestWebhookConfirmsWithoutWaitingClient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := "user:u1"
	pending := h.toPending(t, owner)

	accepted, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{
		IntentID:      pending.PaymentIntentID,
		Success:       true,
		TransactionID: "tx123",
	}})
	require.NoError(t, err)
	assert.True(t, accepted)

	h.clock.Advance(3 * time.Minute)
	stats := h.registry.Sweep(h.clock.Now())
	assert.Zero(t, stats.Expired)

	session, err := h.checkout.Get(ctx, CheckoutCommand{OwnerKey: owner, SessionID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmed, session.State)
	assert.Equal(t, "tx123", session.TransactionID)
	assert.NotEmpty(t, session.OrderID)

	orders := h.orders.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "tx123", orders[0].TransactionID)

	view, err := h.cart.View(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = h.checkout.RetryPayment(ctx, CheckoutCommand{OwnerKey: owner, SessionID: pending.ID})
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)

	session, err = h.checkout.AwaitPayment(ctx, CheckoutCommand{OwnerKey: owner, SessionID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateConfirmed, session.State)
}

func TestDuplicateWebhookIsNotReapplied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pending := h.toPending(t, "user:u1")

	result := payment.Result{IntentID: pending.PaymentIntentID, Success: true, TransactionID: "tx1"}
	accepted, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: result})
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = h.webhook.Handle(ctx, PaymentWebhookCommand{Result: result})
	require.NoError(t, err)
	assert.False(t, accepted)

	assert.Len(t, h.orders.Orders(), 1)
	assert.Empty(t, h.recon.Entries())
}

func TestWebhookDeclineFailsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := "user:u1"
	pending := h.toPending(t, owner)

	_, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{
		IntentID: pending.PaymentIntentID,
		Reason:   "card declined",
	}})
	require.NoError(t, err)

	session, err := h.checkout.AwaitPayment(ctx, CheckoutCommand{OwnerKey: owner, SessionID: pending.ID})
	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)
	assert.Equal(t, checkout.StateFailed, session.State)
	assert.Equal(t, "card declined", session.FailureReason)

	view, err := h.cart.View(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestLateSuccessIsReconciled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := "user:u1"
	pending := h.toPending(t, owner)

	h.clock.Advance(2 * time.Minute)
	stats := h.registry.Sweep(h.clock.Now())
	require.Equal(t, 1, stats.Expired)

	accepted, err := h.webhook.Handle(ctx, PaymentWebhookCommand{Result: payment.Result{
		IntentID:      pending.PaymentIntentID,
		Success:       true,
		TransactionID: "tx-late",
	}})
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Empty(t, h.orders.Orders())

	entries := h.recon.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "tx-late", entries[0].TransactionID)
	assert.Equal(t, pending.PaymentIntentID, entries[0].PaymentIntentID)
	assert.Equal(t, pending.ID, entries[0].SessionID)
	assert.Equal(t, money.Money(4820), entries[0].Total)
}
