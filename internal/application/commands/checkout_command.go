package commands

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type CheckoutCommand struct {
	OwnerKey  string
	SessionID string
	Address   checkout.Address
	Reason    string
}

type BeginResponse struct {
	Session checkout.Session
	Pricing *pricing.Result
}

type CheckoutHandler struct {
	carts    ports.CartRepository
	sessions ports.SessionRegistry
	log      *logger.Logger
}

func NewCheckoutHandler(carts ports.CartRepository, sessions ports.SessionRegistry, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		sessions: sessions,
		log:      log,
	}
}

// Begin opens a session for the owner's cart. On a stock problem the priced
// cart is returned alongside the error so the caller can show what changed;
// the session is discarded.
func (h *CheckoutHandler) Begin(ctx context.Context, cmd CheckoutCommand) (*BeginResponse, error) {
	store, err := h.carts.Open(ctx, cmd.OwnerKey)
	if err != nil {
		return nil, err
	}

	m, err := h.sessions.Create(cmd.OwnerKey)
	if err != nil {
		h.log.Error("Failed to create checkout session", "error", err, "owner", cmd.OwnerKey)
		return nil, err
	}

	priced, err := m.Begin(ctx, store)
	if err != nil {
		h.sessions.Delete(m.Session().ID)
		if priced != nil {
			return &BeginResponse{Pricing: priced}, err
		}
		return nil, err
	}

	return &BeginResponse{Session: m.Session(), Pricing: priced}, nil
}

func (h *CheckoutHandler) Get(_ context.Context, cmd CheckoutCommand) (checkout.Session, error) {
	m, err := h.machine(cmd)
	if err != nil {
		return checkout.Session{}, err
	}
	return m.Session(), nil
}

func (h *CheckoutHandler) SubmitAddress(ctx context.Context, cmd CheckoutCommand) (checkout.Session, error) {
	m, err := h.machine(cmd)
	if err != nil {
		return checkout.Session{}, err
	}

	store, err := h.carts.Open(ctx, cmd.OwnerKey)
	if err != nil {
		return checkout.Session{}, err
	}

	return m.SubmitAddress(ctx, store, cmd.Address)
}

func (h *CheckoutHandler) AwaitPayment(ctx context.Context, cmd CheckoutCommand) (checkout.Session, error) {
	m, err := h.machine(cmd)
	if err != nil {
		return checkout.Session{}, err
	}

	store, err := h.carts.Open(ctx, cmd.OwnerKey)
	if err != nil {
		return checkout.Session{}, err
	}

	session, err := m.AwaitPayment(ctx, store)
	if err != nil && session.TransactionID != "" {
		h.log.Error("Payment taken but order not recorded",
			"error", err,
			"session_id", cmd.SessionID,
			"transaction_id", session.TransactionID,
		)
	}
	return session, err
}

func (h *CheckoutHandler) RetryPayment(ctx context.Context, cmd CheckoutCommand) (checkout.Session, error) {
	m, err := h.machine(cmd)
	if err != nil {
		return checkout.Session{}, err
	}
	return m.RetryPayment(ctx)
}

func (h *CheckoutHandler) Abandon(_ context.Context, cmd CheckoutCommand) (checkout.Session, error) {
	m, err := h.machine(cmd)
	if err != nil {
		return checkout.Session{}, err
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "abandoned by user"
	}
	if err := m.Abandon(reason); err != nil {
		return checkout.Session{}, err
	}
	return m.Session(), nil
}

// machine hides sessions that belong to another owner.
func (h *CheckoutHandler) machine(cmd CheckoutCommand) (*checkout.Machine, error) {
	m, err := h.sessions.Get(cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if m.Session().OwnerKey != cmd.OwnerKey {
		return nil, domainErrors.ErrSessionNotFound
	}
	return m, nil
}
