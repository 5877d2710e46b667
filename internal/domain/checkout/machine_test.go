package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testCart struct {
	items    []cart.LineItem
	clearErr error
	cleared  int
}

func (c *testCart) List() []cart.LineItem {
	return append([]cart.LineItem(nil), c.items...)
}

func (c *testCart) Clear(context.Context) error {
	if c.clearErr != nil {
		return c.clearErr
	}
	c.items = nil
	c.cleared++
	return nil
}

type catalogStub struct {
	mu       sync.Mutex
	products map[string]catalog.Product
}

func (s *catalogStub) Get(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, &domainErrors.ProductError{ProductID: id}
	}
	return &p, nil
}

func (s *catalogStub) setStock(id string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.AvailableStock = stock
	s.products[id] = p
}

type fakeProvider struct {
	mu        sync.Mutex
	n         int
	createErr error
	charged   []money.Money
	results   map[string]chan payment.Result
}

func (p *fakeProvider) CreateCharge(_ context.Context, amount money.Money, currency string) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.n++
	id := fmt.Sprintf("PI-%d", p.n)
	p.results[id] = make(chan payment.Result, 1)
	p.charged = append(p.charged, amount)
	return &payment.Intent{ID: id, Amount: amount, Currency: currency}, nil
}

func (p *fakeProvider) AwaitResult(ctx context.Context, intentID string) (*payment.Result, error) {
	p.mu.Lock()
	ch, ok := p.results[intentID]
	p.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown intent")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return &r, nil
	}
}

func (p *fakeProvider) resolve(r payment.Result) {
	p.mu.Lock()
	ch := p.results[r.IntentID]
	p.mu.Unlock()
	ch <- r
}

type orderRepo struct {
	saved []*order.Order
	err   error
}

func (r *orderRepo) Save(_ context.Context, o *order.Order) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, o)
	return o.ID, nil
}

type blockingSubmitter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) Submit(context.Context, *order.Order) (string, error) {
	close(b.entered)
	<-b.release
	return "order-1", nil
}

type reconciliationLog struct {
	entries []order.Reconciliation
}

func (l *reconciliationLog) Record(_ context.Context, r order.Reconciliation) error {
	l.entries = append(l.entries, r)
	return nil
}

type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) (string, bool) {
	return string(s), s != ""
}

type fixture struct {
	catalog     *catalogStub
	provider    *fakeProvider
	repo        *orderRepo
	recon       *reconciliationLog
	clock       *clock.MockClock
	deps        *Dependencies
	transitions []string
}

func salePrice(m money.Money) *money.Money { return &m }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		catalog: &catalogStub{products: map[string]catalog.Product{
			"p1": {ID: "p1", Name: "Mug", Price: 2500, SalePrice: salePrice(2000), AvailableStock: 10},
			"p2": {ID: "p2", Name: "Poster", Price: 1500, AvailableStock: 3},
		}},
		provider: &fakeProvider{results: map[string]chan payment.Result{}},
		repo:     &orderRepo{},
		recon:    &reconciliationLog{},
		clock:    clock.NewMockClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)),
	}

	engine := pricing.NewEngine(f.catalog, pricing.Config{
		TaxRate:  decimal.RequireFromString("0.08"),
		Shipping: pricing.FlatBelowThreshold(500, 5000),
		Currency: "USD",
	})

	f.deps = &Dependencies{
		Pricing:        engine,
		Payments:       f.provider,
		Orders:         order.NewSubmitter(f.repo, f.recon, f.clock, logger.NewNop()),
		Identity:       staticIdentity("u1"),
		Clock:          f.clock,
		Log:            logger.NewNop(),
		PaymentTimeout: time.Minute,
		OnTransition: func(from, to State, _ string) {
			f.transitions = append(f.transitions, from.String()+">"+to.String())
		},
	}
	return f
}

var validAddress = Address{
	Name:       "Ada Lovelace",
	Line1:      "12 St James's Square",
	City:       "London",
	PostalCode: "SW1Y 4JH",
	Country:    "GB",
}

func (f *fixture) toPending(t *testing.T, c *testCart) *Machine {
	t.Helper()
	m := NewMachine("CHK-1", "user:u1", f.deps)
	_, err := m.Begin(context.Background(), c)
	require.NoError(t, err)
	_, err = m.SubmitAddress(context.Background(), c, validAddress)
	require.NoError(t, err)
	require.Equal(t, StatePaymentPending, m.State())
	return m
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := NewMachine("CHK-1", "user:u1", f.deps)

	priced, err := m.Begin(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, money.Money(4820), priced.Total)
	assert.Equal(t, StateAddressEntry, m.State())

	s, err := m.SubmitAddress(context.Background(), c, validAddress)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentPending, s.State)
	assert.Equal(t, "PI-1", s.PaymentIntentID)
	assert.Equal(t, []money.Money{4820}, f.provider.charged)

	f.provider.resolve(payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	s, err = m.AwaitPayment(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, s.State)
	assert.Equal(t, "tx1", s.TransactionID)
	assert.NotEmpty(t, s.OrderID)
	assert.Empty(t, c.items)

	require.Len(t, f.repo.saved, 1)
	saved := f.repo.saved[0]
	assert.Equal(t, money.Money(4000), saved.Subtotal)
	assert.Equal(t, money.Money(320), saved.Tax)
	assert.Equal(t, money.Money(500), saved.Shipping)
	assert.Equal(t, money.Money(4820), saved.Total)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, "London", saved.ShippingAddress.City)
	require.Len(t, saved.Lines, 1)
	assert.Equal(t, money.Money(2000), saved.Lines[0].UnitPrice)

	assert.Equal(t, []string{
		"Cart>AddressEntry",
		"AddressEntry>PaymentPending",
		"PaymentPending>Confirmed",
	}, f.transitions)
}

func TestBeginRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	f.deps.Identity = staticIdentity("")
	m := NewMachine("CHK-1", "guest:abc", f.deps)

	_, err := m.Begin(context.Background(), &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}})
	require.ErrorIs(t, err, domainErrors.ErrUnauthenticated)
	assert.Equal(t, StateCart, m.State())
}

func TestBeginRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	m := NewMachine("CHK-1", "user:u1", f.deps)

	_, err := m.Begin(context.Background(), &testCart{})
	require.ErrorIs(t, err, domainErrors.ErrEmptyCart)
	assert.Equal(t, StateCart, m.State())
}

func TestBeginReportsStockIssues(t *testing.T) {
	f := newFixture(t)
	m := NewMachine("CHK-1", "user:u1", f.deps)
	c := &testCart{items: []cart.LineItem{
		{ProductID: "p2", Quantity: 5},
		{ProductID: "gone", Quantity: 1},
	}}

	priced, err := m.Begin(context.Background(), c)

	var stockErr *domainErrors.StockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Issues, 2)
	assert.Equal(t, "p2", stockErr.Issues[0].ProductID)
	assert.Equal(t, 3, stockErr.Issues[0].Available)
	assert.True(t, stockErr.Issues[1].Removed)

	require.NotNil(t, priced)
	assert.Equal(t, 3, priced.Lines[0].Quantity)
	assert.Equal(t, StateCart, m.State())
}

func TestBeginCancelledLeavesState(t *testing.T) {
	f := newFixture(t)
	m := NewMachine("CHK-1", "user:u1", f.deps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Begin(ctx, &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCart, m.State())
}

func TestSubmitAddressValidates(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := NewMachine("CHK-1", "user:u1", f.deps)
	_, err := m.Begin(context.Background(), c)
	require.NoError(t, err)

	_, err = m.SubmitAddress(context.Background(), c, Address{Name: "  ", Line1: "x", Country: "GB"})

	var addrErr *domainErrors.AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, []string{"name", "city", "postal_code"}, addrErr.Fields)
	assert.Equal(t, StateAddressEntry, m.State())
	assert.Empty(t, f.provider.charged)
}

func TestSubmitAddressRechecksStock(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p2", Quantity: 3}}}
	m := NewMachine("CHK-1", "user:u1", f.deps)
	_, err := m.Begin(context.Background(), c)
	require.NoError(t, err)

	f.catalog.setStock("p2", 1)

	_, err = m.SubmitAddress(context.Background(), c, validAddress)
	require.ErrorIs(t, err, domainErrors.ErrStockUnavailable)
	assert.Equal(t, StateAddressEntry, m.State())
	assert.Empty(t, f.provider.charged)
}

func TestSnapshotIgnoresLaterCartEdits(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := f.toPending(t, c)

	c.items = append(c.items, cart.LineItem{ProductID: "p2", Quantity: 1})

	f.provider.resolve(payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	s, err := m.AwaitPayment(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, money.Money(4820), s.Snapshot.Total)
	assert.Equal(t, money.Money(4820), f.repo.saved[0].Total)
}

func TestChargeCreationFailure(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := NewMachine("CHK-1", "user:u1", f.deps)
	_, err := m.Begin(context.Background(), c)
	require.NoError(t, err)

	f.provider.createErr = errors.New("provider unreachable")
	s, err := m.SubmitAddress(context.Background(), c, validAddress)

	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)
	assert.Equal(t, StateFailed, s.State)
	assert.NotNil(t, s.Snapshot)
	assert.Len(t, c.items, 1)
}

func TestPaymentFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := f.toPending(t, c)

	f.provider.resolve(payment.Result{IntentID: "PI-1", Success: false, Reason: "card declined"})
	s, err := m.AwaitPayment(context.Background(), c)

	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, "card declined", s.FailureReason)
	assert.Len(t, c.items, 1)
	assert.Zero(t, c.cleared)
	assert.Empty(t, f.repo.saved)
}

func TestRetryAfterFailureUsesSnapshot(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := f.toPending(t, c)

	_, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: false})
	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)

	s, err := m.RetryPayment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePaymentPending, s.State)
	assert.Equal(t, "PI-2", s.PaymentIntentID)
	assert.Equal(t, 2, s.Attempts)
	assert.Equal(t, []money.Money{4820, 4820}, f.provider.charged)

	_, err = m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "late"})
	require.ErrorIs(t, err, domainErrors.ErrStaleIntent)

	s, err = m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-2", Success: true, TransactionID: "tx2"})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, s.State)
	assert.Equal(t, "tx2", s.TransactionID)
}

func TestRetryOnlyFromFailed(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	_, err := m.RetryPayment(context.Background())
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
}

func TestPersistenceFailureAfterPayment(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errors.New("connection reset")
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := f.toPending(t, c)

	s, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx123"})

	require.ErrorIs(t, err, domainErrors.ErrPersistence)
	var pe *domainErrors.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "tx123", pe.TransactionID)

	assert.Equal(t, StateConfirmed, s.State)
	assert.Empty(t, s.OrderID)
	assert.NotEmpty(t, s.OrderError)
	require.Len(t, f.recon.entries, 1)
	assert.Equal(t, "tx123", f.recon.entries[0].TransactionID)
}

func TestConfirmedEvenIfCartClearFails(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)
	c.clearErr = errors.New("redis down")

	s, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, s.State)
	assert.Len(t, f.repo.saved, 1)
}

func TestDuplicateSuccessIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	result := payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"}
	_, err := m.HandlePaymentResult(context.Background(), c, result)
	require.NoError(t, err)
	_, err = m.HandlePaymentResult(context.Background(), c, result)
	require.NoError(t, err)

	assert.Len(t, f.repo.saved, 1)
}

func TestAwaitPaymentTimesOut(t *testing.T) {
	f := newFixture(t)
	f.deps.PaymentTimeout = 30 * time.Millisecond
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	s, err := m.AwaitPayment(context.Background(), c)

	require.ErrorIs(t, err, domainErrors.ErrPaymentTimeout)
	assert.Equal(t, StateFailed, s.State)
	assert.Len(t, c.items, 1)
}

func TestAwaitPaymentAfterDeadlineFailsImmediately(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	f.clock.Advance(2 * time.Minute)

	_, err := m.AwaitPayment(context.Background(), c)
	require.ErrorIs(t, err, domainErrors.ErrPaymentTimeout)
	assert.Equal(t, StateFailed, m.State())
}

func TestAwaitPaymentCallerGivesUp(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.AwaitPayment(ctx, c)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatePaymentPending, m.State())

	f.provider.resolve(payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	s, err := m.AwaitPayment(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, s.State)
}

func TestExpirePayment(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	assert.False(t, m.ExpirePayment(f.clock.Now().Add(30*time.Second)))
	assert.True(t, m.ExpirePayment(f.clock.Now().Add(time.Minute)))
	assert.Equal(t, StateFailed, m.State())
	assert.False(t, m.ExpirePayment(f.clock.Now().Add(time.Hour)))
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	require.NoError(t, m.Abandon("user navigated away"))
	assert.Equal(t, StateAbandoned, m.State())
	require.NoError(t, m.Abandon("again"))
	assert.Len(t, c.items, 1)

	_, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
	assert.Empty(t, f.repo.saved)
}

func TestAbandonConfirmedRejected(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)
	_, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"})
	require.NoError(t, err)

	err = m.Abandon("too late")
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
	assert.Equal(t, StateConfirmed, m.State())
}

func TestOutOfOrderActionsRejected(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := NewMachine("CHK-1", "user:u1", f.deps)

	_, err := m.SubmitAddress(context.Background(), c, validAddress)
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)

	_, err = m.AwaitPayment(context.Background(), c)
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)

	_, err = m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx"})
	require.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
}

func TestSessionReturnsCopy(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 2}}}
	m := f.toPending(t, c)

	s := m.Session()
	s.Snapshot.Lines[0].Quantity = 99

	assert.Equal(t, 2, m.Session().Snapshot.Lines[0].Quantity)
}

func TestOrderWriteDoesNotHoldSessionLock(t *testing.T) {
	f := newFixture(t)
	submitter := &blockingSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	f.deps.Orders = submitter
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	result := payment.Result{IntentID: "PI-1", Success: true, TransactionID: "tx1"}
	done := make(chan Session, 1)
	go func() {
		s, _ := m.HandlePaymentResult(context.Background(), c, result)
		done <- s
	}()
	<-submitter.entered

	state := make(chan State, 1)
	go func() { state <- m.State() }()

	select {
	case st := <-state:
		assert.Equal(t, StateConfirmed, st)
	case <-time.After(time.Second):
		close(submitter.release)
		t.Fatal("session locked while the order is written")
	}

	s, err := m.HandlePaymentResult(context.Background(), &testCart{}, result)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, s.State)
	assert.Empty(t, s.OrderID)

	close(submitter.release)
	s = <-done
	assert.Equal(t, "order-1", s.OrderID)
	assert.Equal(t, "order-1", m.Session().OrderID)
}

func TestAwaitReturnsDecidedPayment(t *testing.T) {
	f := newFixture(t)
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	_, err := m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Reason: "insufficient funds"})
	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)

	s, err := m.AwaitPayment(context.Background(), c)
	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)
	assert.Equal(t, StateFailed, s.State)

	// the same decline delivered again, as from a waiting client
	_, err = m.HandlePaymentResult(context.Background(), c, payment.Result{IntentID: "PI-1", Reason: "insufficient funds"})
	require.ErrorIs(t, err, domainErrors.ErrPaymentFailed)
	assert.Equal(t, []string{
		"Cart>AddressEntry",
		"AddressEntry>PaymentPending",
		"PaymentPending>Failed",
	}, f.transitions)
}

func TestPaymentIntentHook(t *testing.T) {
	f := newFixture(t)
	var intents []string
	f.deps.OnPaymentIntent = func(sessionID, intentID string) {
		intents = append(intents, sessionID+"/"+intentID)
	}
	c := &testCart{items: []cart.LineItem{{ProductID: "p1", Quantity: 1}}}
	m := f.toPending(t, c)

	require.True(t, m.ExpirePayment(f.clock.Now().Add(time.Minute)))
	_, err := m.RetryPayment(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"CHK-1/PI-1", "CHK-1/PI-2"}, intents)
}
