package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

// Cart is the part of the cart store checkout needs. It is passed to every
// call so the machine never holds on to cart contents.
type Cart interface {
	List() []cart.LineItem
	Clear(ctx context.Context) error
}

type Pricer interface {
	Price(ctx context.Context, items []cart.LineItem) (*pricing.Result, error)
}

type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, o *order.Order) (string, error)
}

type Dependencies struct {
	Pricing        Pricer
	Payments       payment.Provider
	Orders         OrderSubmitter
	Identity       Identity
	Clock          clock.Clock
	Log            *logger.Logger
	PaymentTimeout time.Duration
	// OnTransition, when set, is called with the lock held after every state change.
	OnTransition func(from, to State, reason string)
	// OnPaymentIntent, when set, is called with the lock held each time a
	// session starts waiting on a new payment intent.
	OnPaymentIntent func(sessionID, intentID string)
}

type Session struct {
	ID               string
	OwnerKey         string
	UserID           string
	State            State
	Snapshot         *pricing.Result
	Address          Address
	PaymentIntentID  string
	PaymentStartedAt time.Time
	Attempts         int
	TransactionID    string
	OrderID          string
	OrderError       string
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Machine drives one checkout session. Network calls (pricing, charge
// creation, waiting for the provider, clearing the cart, writing the order)
// run without the lock; their outcome is applied only if no other transition
// happened meanwhile and the caller's context is still live.
type Machine struct {
	mu      sync.Mutex
	deps    *Dependencies
	session Session
	version int
	// outcome is the error of the last decided payment: a decline, a
	// timeout or an order that could not be recorded.
	outcome error
}

func NewMachine(id, ownerKey string, deps *Dependencies) *Machine {
	now := deps.Clock.Now()
	return &Machine{
		deps: deps,
		session: Session{
			ID:        id,
			OwnerKey:  ownerKey,
			State:     StateCart,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State
}

// Begin moves Cart → AddressEntry. The cart must be non-empty and every line
// must be within live stock; otherwise the priced result is returned together
// with a *StockError listing the offending lines.
func (m *Machine) Begin(ctx context.Context, c Cart) (*pricing.Result, error) {
	_, version, err := m.expect("begin", StateCart)
	if err != nil {
		return nil, err
	}

	userID, ok := m.deps.Identity.CurrentUserID(ctx)
	if !ok || userID == "" {
		return nil, domainErrors.ErrUnauthenticated
	}

	priced, err := m.priceCart(ctx, c)
	if err != nil {
		return priced, err
	}

	err = m.apply(ctx, version, "begin", func(s *Session) {
		s.UserID = userID
		m.moveTo(StateAddressEntry, "")
	})
	if err != nil {
		return nil, err
	}
	return priced, nil
}

// SubmitAddress moves AddressEntry → PaymentPending. The cart is priced again
// and that result becomes the session snapshot; cart edits after this point
// do not change what is charged.
func (m *Machine) SubmitAddress(ctx context.Context, c Cart, addr Address) (Session, error) {
	_, version, err := m.expect("submit address", StateAddressEntry)
	if err != nil {
		return Session{}, err
	}

	if err := addr.Validate(); err != nil {
		return Session{}, err
	}

	priced, err := m.priceCart(ctx, c)
	if err != nil {
		return Session{}, err
	}

	intent, chargeErr := m.deps.Payments.CreateCharge(ctx, priced.Total, priced.Currency)
	if chargeErr != nil && ctx.Err() != nil {
		return Session{}, ctx.Err()
	}

	var result error
	err = m.apply(ctx, version, "submit address", func(s *Session) {
		s.Snapshot = priced
		s.Address = addr
		s.Attempts++
		if chargeErr != nil {
			s.FailureReason = chargeErr.Error()
			result = &domainErrors.PaymentError{Reason: chargeErr.Error(), Err: domainErrors.ErrPaymentFailed}
			m.outcome = result
			m.moveTo(StateFailed, "charge_error")
			return
		}
		m.startIntent(intent.ID)
		m.moveTo(StatePaymentPending, "")
	})
	if err != nil {
		return Session{}, err
	}

	return m.Session(), result
}

// AwaitPayment waits for the provider's verdict on the pending intent, bounded
// by the payment timeout measured from when the intent was created. If ctx is
// cancelled first nothing changes; if the timeout elapses the session fails
// with ErrPaymentTimeout. When the verdict was already applied, for instance
// by the webhook, the decided session is returned straight away.
func (m *Machine) AwaitPayment(ctx context.Context, c Cart) (Session, error) {
	if s, ok, outcome := m.settled(); ok {
		return s, outcome
	}

	snapshot, _, err := m.expect("await payment", StatePaymentPending)
	if err != nil {
		return Session{}, err
	}

	remaining := m.deps.PaymentTimeout - m.deps.Clock.Since(snapshot.PaymentStartedAt)
	if remaining <= 0 {
		return m.failPending(snapshot.PaymentIntentID, domainErrors.ErrPaymentTimeout, "payment confirmation timed out")
	}

	waitCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	res, err := m.deps.Payments.AwaitResult(waitCtx, snapshot.PaymentIntentID)
	if err != nil {
		if ctx.Err() != nil {
			return Session{}, ctx.Err()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return m.failPending(snapshot.PaymentIntentID, domainErrors.ErrPaymentTimeout, "payment confirmation timed out")
		}
		return m.failPending(snapshot.PaymentIntentID, domainErrors.ErrPaymentFailed, err.Error())
	}

	return m.HandlePaymentResult(ctx, c, *res)
}

// HandlePaymentResult applies a provider verdict. Success moves
// PaymentPending → Confirmed, clears the cart and submits the order; failure
// moves to Failed and leaves the cart alone. The same verdict may arrive
// through the webhook and a waiting AwaitPayment; applying it twice is a
// no-op.
//
// Only the transition runs under the lock. Clearing the cart and writing the
// order happen after it is released.
func (m *Machine) HandlePaymentResult(ctx context.Context, c Cart, res payment.Result) (Session, error) {
	s, confirmed, err := m.settle(res)
	if !confirmed {
		return s, err
	}

	// money has moved; the rest must not depend on the caller staying around
	bg := context.WithoutCancel(ctx)

	if err := c.Clear(bg); err != nil {
		m.deps.Log.Error("Failed to clear cart after confirmed payment",
			"error", err,
			"session_id", s.ID,
			"owner", s.OwnerKey,
		)
	}

	orderID, submitErr := m.deps.Orders.Submit(bg, s.toOrder())

	m.mu.Lock()
	defer m.mu.Unlock()

	if submitErr != nil {
		m.session.OrderError = submitErr.Error()
		m.outcome = submitErr
	} else {
		m.session.OrderID = orderID
	}
	m.session.UpdatedAt = m.deps.Clock.Now()
	return m.session.clone(), submitErr
}

// settle moves the session on a verdict. confirmed is true only for the call
// that performed PaymentPending → Confirmed; that caller owns the order write.
func (m *Machine) settle(res payment.Result) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.session
	if res.IntentID == s.PaymentIntentID {
		switch {
		case s.State == StateConfirmed && res.Success && res.TransactionID == s.TransactionID:
			return s.clone(), false, m.outcome
		case s.State == StateFailed && !res.Success && errors.Is(m.outcome, domainErrors.ErrPaymentFailed):
			return s.clone(), false, m.outcome
		}
	}
	if s.State != StatePaymentPending {
		return Session{}, false, &domainErrors.TransitionError{From: s.State.String(), Action: "apply payment result"}
	}
	if res.IntentID != s.PaymentIntentID {
		return Session{}, false, fmt.Errorf("%w: got %s, pending %s", domainErrors.ErrStaleIntent, res.IntentID, s.PaymentIntentID)
	}

	if !res.Success {
		reason := res.Reason
		if reason == "" {
			reason = "declined by provider"
		}
		s.FailureReason = reason
		m.outcome = &domainErrors.PaymentError{IntentID: res.IntentID, Reason: reason, Err: domainErrors.ErrPaymentFailed}
		m.moveTo(StateFailed, "declined")
		return s.clone(), false, m.outcome
	}
	if res.TransactionID == "" {
		return Session{}, false, &domainErrors.PaymentError{IntentID: res.IntentID, Reason: "success reported without transaction id", Err: domainErrors.ErrPaymentFailed}
	}

	s.TransactionID = res.TransactionID
	s.FailureReason = ""
	m.outcome = nil
	m.moveTo(StateConfirmed, "")
	return s.clone(), true, nil
}

// settled returns the outcome of a payment that has already been decided.
func (m *Machine) settled() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != StateConfirmed && m.session.State != StateFailed {
		return Session{}, false, nil
	}
	return m.session.clone(), true, m.outcome
}

// RetryPayment starts a fresh attempt from Failed against the same snapshot.
func (m *Machine) RetryPayment(ctx context.Context) (Session, error) {
	snapshot, version, err := m.expect("retry payment", StateFailed)
	if err != nil {
		return Session{}, err
	}
	if snapshot.Snapshot == nil {
		return Session{}, &domainErrors.TransitionError{From: StateFailed.String(), Action: "retry payment without a priced snapshot"}
	}

	intent, chargeErr := m.deps.Payments.CreateCharge(ctx, snapshot.Snapshot.Total, snapshot.Snapshot.Currency)
	if chargeErr != nil {
		if ctx.Err() != nil {
			return Session{}, ctx.Err()
		}
		failure := &domainErrors.PaymentError{Reason: chargeErr.Error(), Err: domainErrors.ErrPaymentFailed}
		err = m.apply(ctx, version, "retry payment", func(s *Session) {
			s.Attempts++
			s.FailureReason = chargeErr.Error()
			s.UpdatedAt = m.deps.Clock.Now()
			m.outcome = failure
		})
		if err != nil {
			return Session{}, err
		}
		return m.Session(), failure
	}

	err = m.apply(ctx, version, "retry payment", func(s *Session) {
		s.Attempts++
		m.startIntent(intent.ID)
		m.moveTo(StatePaymentPending, "retry")
	})
	if err != nil {
		return Session{}, err
	}
	return m.Session(), nil
}

// Abandon discards the session from any state but Confirmed. Abandoning twice
// is a no-op.
func (m *Machine) Abandon(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.session.State {
	case StateAbandoned:
		return nil
	case StateConfirmed:
		return &domainErrors.TransitionError{From: StateConfirmed.String(), Action: "abandon"}
	}

	m.session.FailureReason = reason
	m.moveTo(StateAbandoned, reason)
	return nil
}

// ExpirePayment fails a PaymentPending session whose timeout has elapsed.
// It reports whether the session was expired.
func (m *Machine) ExpirePayment(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.session
	if s.State != StatePaymentPending || now.Sub(s.PaymentStartedAt) < m.deps.PaymentTimeout {
		return false
	}
	s.FailureReason = "payment confirmation timed out"
	m.outcome = &domainErrors.PaymentError{IntentID: s.PaymentIntentID, Reason: s.FailureReason, Err: domainErrors.ErrPaymentTimeout}
	m.moveTo(StateFailed, "timeout")
	return true
}

func (m *Machine) priceCart(ctx context.Context, c Cart) (*pricing.Result, error) {
	items := c.List()
	if len(items) == 0 {
		return nil, domainErrors.ErrEmptyCart
	}

	priced, err := m.deps.Pricing.Price(ctx, items)
	if err != nil {
		return nil, err
	}
	if priced.HasStockIssues() {
		return priced, &domainErrors.StockError{Issues: priced.StockIssues()}
	}
	return priced, nil
}

func (m *Machine) failPending(intentID string, cause error, reason string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &m.session
	if s.PaymentIntentID == intentID && (s.State == StateConfirmed || s.State == StateFailed) {
		return s.clone(), m.outcome
	}
	if s.State != StatePaymentPending || s.PaymentIntentID != intentID {
		return Session{}, &domainErrors.TransitionError{From: s.State.String(), Action: "fail payment"}
	}

	label := "provider_error"
	if errors.Is(cause, domainErrors.ErrPaymentTimeout) {
		label = "timeout"
	}
	s.FailureReason = reason
	m.outcome = &domainErrors.PaymentError{IntentID: intentID, Reason: reason, Err: cause}
	m.moveTo(StateFailed, label)

	return s.clone(), m.outcome
}

// startIntent points the session at a freshly created charge. The lock must
// be held.
func (m *Machine) startIntent(intentID string) {
	m.session.PaymentIntentID = intentID
	m.session.PaymentStartedAt = m.deps.Clock.Now()
	m.session.FailureReason = ""
	m.outcome = nil

	if m.deps.OnPaymentIntent != nil {
		m.deps.OnPaymentIntent(m.session.ID, intentID)
	}
}

func (m *Machine) expect(action string, allowed State) (Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != allowed {
		return Session{}, 0, &domainErrors.TransitionError{From: m.session.State.String(), Action: action}
	}
	return m.session.clone(), m.version, nil
}

// apply runs fn under the lock if nothing moved the session since version
// was read and ctx is still live.
func (m *Machine) apply(ctx context.Context, version int, action string, fn func(s *Session)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.version != version {
		return &domainErrors.TransitionError{From: m.session.State.String(), Action: action}
	}
	fn(&m.session)
	return nil
}

// moveTo must be called with the lock held.
func (m *Machine) moveTo(to State, reason string) {
	from := m.session.State
	m.session.State = to
	m.session.UpdatedAt = m.deps.Clock.Now()
	m.version++

	if m.deps.OnTransition != nil {
		m.deps.OnTransition(from, to, reason)
	}
	m.deps.Log.Info("Checkout transition",
		"session_id", m.session.ID,
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
	)
}

func (s *Session) clone() Session {
	out := *s
	if s.Snapshot != nil {
		snap := *s.Snapshot
		snap.Lines = append([]pricing.PricedLineItem(nil), s.Snapshot.Lines...)
		snap.RemovedLines = append([]string(nil), s.Snapshot.RemovedLines...)
		out.Snapshot = &snap
	}
	return out
}

func (s *Session) toOrder() *order.Order {
	o := &order.Order{
		UserID:          s.UserID,
		SessionID:       s.ID,
		Subtotal:        s.Snapshot.Subtotal,
		Tax:             s.Snapshot.Tax,
		Shipping:        s.Snapshot.Shipping,
		Total:           s.Snapshot.Total,
		Currency:        s.Snapshot.Currency,
		PaymentIntentID: s.PaymentIntentID,
		TransactionID:   s.TransactionID,
		ShippingAddress: order.Address{
			Name:       s.Address.Name,
			Line1:      s.Address.Line1,
			Line2:      s.Address.Line2,
			City:       s.Address.City,
			Region:     s.Address.Region,
			PostalCode: s.Address.PostalCode,
			Country:    s.Address.Country,
		},
	}
	for _, line := range s.Snapshot.Lines {
		o.Lines = append(o.Lines, order.Line{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	return o
}
