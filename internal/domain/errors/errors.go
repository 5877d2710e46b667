package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrProductNotFound = errors.New("product not found")

	ErrEmptyCart        = errors.New("cart is empty")
	ErrStockUnavailable = errors.New("requested quantity exceeds available stock")
	ErrInvalidAddress   = errors.New("shipping address is invalid")

	ErrUnauthenticated   = errors.New("sign in required to check out")
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrInvalidTransition = errors.New("checkout transition not allowed")
	ErrStaleIntent       = errors.New("payment result does not match the pending intent")

	ErrPaymentFailed        = errors.New("payment failed")
	ErrPaymentTimeout       = errors.New("payment confirmation timed out")
	ErrIntentNotFound       = errors.New("payment intent not found")
	ErrInvalidPaymentResult = errors.New("invalid payment result")

	ErrPersistence = errors.New("order could not be recorded")

	ErrStorageUnavailable = errors.New("cart storage unavailable")
	ErrCartOwnerRequired  = errors.New("cart owner is required")
)

type QuantityError struct {
	ProductID string
	Quantity  int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

func (e *QuantityError) Unwrap() error { return ErrInvalidQuantity }

type ItemError struct {
	ProductID string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("product %s is not in the cart", e.ProductID)
}

func (e *ItemError) Unwrap() error { return ErrItemNotFound }

type ProductError struct {
	ProductID string
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductError) Unwrap() error { return ErrProductNotFound }

// StockIssue describes one line that cannot be fulfilled as requested.
// Available is zero and Removed is true when the product left the catalog.
type StockIssue struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Removed   bool   `json:"removed,omitempty"`
}

type StockError struct {
	Issues []StockIssue
}

func (e *StockError) Error() string {
	ids := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		ids = append(ids, issue.ProductID)
	}
	return fmt.Sprintf("stock unavailable for %s", strings.Join(ids, ", "))
}

func (e *StockError) Unwrap() error { return ErrStockUnavailable }

type AddressError struct {
	Fields []string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("shipping address missing %s", strings.Join(e.Fields, ", "))
}

func (e *AddressError) Unwrap() error { return ErrInvalidAddress }

// PaymentError wraps ErrPaymentFailed or ErrPaymentTimeout.
type PaymentError struct {
	IntentID      string
	TransactionID string
	Reason        string
	Err           error
}

func (e *PaymentError) Error() string {
	msg := fmt.Sprintf("%v (intent %s)", e.Err, e.IntentID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PaymentError) Unwrap() error { return e.Err }

// PersistenceError is returned when a paid order could not be written.
// TransactionID is the provider's proof of charge and must reach the user.
type PersistenceError struct {
	TransactionID string
	IntentID      string
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order for transaction %s could not be recorded: %v", e.TransactionID, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
