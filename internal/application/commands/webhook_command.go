package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type PaymentWebhookCommand struct {
	Result payment.Result
}

type PaymentWebhookHandler struct {
	webhook        ports.PaymentWebhook
	sessions       ports.SessionRegistry
	carts          ports.CartRepository
	reconciliation order.ReconciliationLog
	clock          clock.Clock
	log            *logger.Logger
}

func NewPaymentWebhookHandler(
	webhook ports.PaymentWebhook,
	sessions ports.SessionRegistry,
	carts ports.CartRepository,
	reconciliation order.ReconciliationLog,
	clk clock.Clock,
	log *logger.Logger,
) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		webhook:        webhook,
		sessions:       sessions,
		carts:          carts,
		reconciliation: reconciliation,
		clock:          clk,
		log:            log,
	}
}

// Handle records the provider verdict and applies it to the checkout session
// the intent belongs to, so a paid session confirms whether or not a client
// is waiting on it. It reports whether the verdict was the first one for the
// intent. A success that no session can take is kept in the reconciliation
// log.
func (h *PaymentWebhookHandler) Handle(ctx context.Context, cmd PaymentWebhookCommand) (bool, error) {
	res := cmd.Result
	if res.IntentID == "" {
		return false, fmt.Errorf("%w: intent_id is required", domainErrors.ErrInvalidPaymentResult)
	}
	if res.Success && res.TransactionID == "" {
		return false, fmt.Errorf("%w: transaction_id is required on success", domainErrors.ErrInvalidPaymentResult)
	}

	accepted, err := h.webhook.Notify(ctx, res)
	if err != nil {
		h.log.Error("Failed to deliver payment result", "error", err, "intent_id", res.IntentID)
		return false, err
	}
	if !accepted {
		return false, nil
	}

	h.log.Info("Payment result received",
		"intent_id", res.IntentID,
		"success", res.Success,
		"transaction_id", res.TransactionID,
	)

	m, err := h.sessions.ByIntent(res.IntentID)
	if err != nil {
		h.unmatched(ctx, res, checkout.Session{}, "no checkout session for payment intent")
		return true, nil
	}
	session := m.Session()

	store, err := h.carts.Open(ctx, session.OwnerKey)
	if err != nil {
		h.log.Error("Failed to open cart for payment result",
			"error", err,
			"session_id", session.ID,
			"intent_id", res.IntentID,
		)
		return true, err
	}

	_, err = m.HandlePaymentResult(ctx, store, res)
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrPersistence):
		// the submitter already wrote the reconciliation entry
		h.log.Error("Payment confirmed but order not recorded",
			"error", err,
			"session_id", session.ID,
			"transaction_id", res.TransactionID,
		)
	case errors.Is(err, domainErrors.ErrPaymentFailed), errors.Is(err, domainErrors.ErrPaymentTimeout):
		h.log.Info("Payment declined", "session_id", session.ID, "intent_id", res.IntentID, "reason", res.Reason)
	case errors.Is(err, domainErrors.ErrStaleIntent), errors.Is(err, domainErrors.ErrInvalidTransition):
		h.unmatched(ctx, res, session, err.Error())
	default:
		return true, err
	}
	return true, nil
}

// unmatched keeps evidence of a charge that succeeded after its session
// moved on: expired, retried with a new intent, abandoned or evicted.
func (h *PaymentWebhookHandler) unmatched(ctx context.Context, res payment.Result, session checkout.Session, reason string) {
	if !res.Success {
		h.log.Warn("Payment result ignored", "intent_id", res.IntentID, "reason", reason)
		return
	}

	entry := order.Reconciliation{
		TransactionID:   res.TransactionID,
		PaymentIntentID: res.IntentID,
		SessionID:       session.ID,
		UserID:          session.UserID,
		Error:           reason,
		RecordedAt:      h.clock.Now(),
	}
	if session.Snapshot != nil {
		entry.Total = session.Snapshot.Total
		entry.Currency = session.Snapshot.Currency
	}

	h.log.Error("Successful payment has no checkout to confirm",
		"intent_id", res.IntentID,
		"transaction_id", res.TransactionID,
		"session_id", session.ID,
		"reason", reason,
	)
	if err := h.reconciliation.Record(context.WithoutCancel(ctx), entry); err != nil {
		h.log.Error("Failed to record unreconciled payment", "error", err, "transaction_id", res.TransactionID)
	}
}
