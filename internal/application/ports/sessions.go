package ports

import (
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
)

type SessionRegistry interface {
	// Create starts a new session for the owner, abandoning any previous
	// unfinished one.
	Create(ownerKey string) (*checkout.Machine, error)
	Get(sessionID string) (*checkout.Machine, error)
	// ByIntent finds the session a payment intent was created for.
	ByIntent(intentID string) (*checkout.Machine, error)
	Delete(sessionID string)
}
