package order

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type Submitter struct {
	repo           Repository
	reconciliation ReconciliationLog
	clock          clock.Clock
	log            *logger.Logger
}

func NewSubmitter(repo Repository, reconciliation ReconciliationLog, clk clock.Clock, log *logger.Logger) *Submitter {
	return &Submitter{
		repo:           repo,
		reconciliation: reconciliation,
		clock:          clk,
		log:            log,
	}
}

// Submit writes a paid order exactly once. It does not retry: if the write
// fails the charge is recorded in the reconciliation log and a
// *PersistenceError carrying the transaction id is returned.
func (s *Submitter) Submit(ctx context.Context, o *Order) (string, error) {
	if o.TransactionID == "" {
		return "", errors.New("order has no payment transaction id")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.clock.Now()
	}

	orderID, err := s.repo.Save(ctx, o)
	if err == nil {
		s.log.Info("Order recorded",
			"order_id", orderID,
			"session_id", o.SessionID,
			"transaction_id", o.TransactionID,
			"total", o.Total.String(),
		)
		return orderID, nil
	}

	s.log.Error("Order persistence failed after successful payment",
		"error", err,
		"session_id", o.SessionID,
		"user_id", o.UserID,
		"payment_intent_id", o.PaymentIntentID,
		"transaction_id", o.TransactionID,
		"total", o.Total.String(),
	)

	entry := Reconciliation{
		TransactionID:   o.TransactionID,
		PaymentIntentID: o.PaymentIntentID,
		SessionID:       o.SessionID,
		UserID:          o.UserID,
		Total:           o.Total,
		Currency:        o.Currency,
		Error:           err.Error(),
		RecordedAt:      s.clock.Now(),
	}
	// the caller may already have given up on the request
	if recErr := s.reconciliation.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		s.log.Error("Failed to record unreconciled payment",
			"error", recErr,
			"transaction_id", o.TransactionID,
		)
	}

	return "", &domainErrors.PersistenceError{
		TransactionID: o.TransactionID,
		IntentID:      o.PaymentIntentID,
		Err:           err,
	}
}
