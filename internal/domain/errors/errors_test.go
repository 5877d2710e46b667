package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&QuantityError{ProductID: "p1", Quantity: 0}, ErrInvalidQuantity},
		{&ItemError{ProductID: "p1"}, ErrItemNotFound},
		{&ProductError{ProductID: "p1"}, ErrProductNotFound},
		{&StockError{Issues: []StockIssue{{ProductID: "p1"}}}, ErrStockUnavailable},
		{&AddressError{Fields: []string{"city"}}, ErrInvalidAddress},
		{&PaymentError{IntentID: "PI-1", Err: ErrPaymentTimeout}, ErrPaymentTimeout},
		{&TransitionError{From: "Cart", Action: "confirm"}, ErrInvalidTransition},
	}

	for _, tc := range cases {
		wrapped := fmt.Errorf("handler: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel, tc.err.Error())
	}
}

func TestPersistenceErrorKeepsTransactionAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit: %w", &PersistenceError{TransactionID: "tx123", Err: cause})

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "tx123", pe.TransactionID)
	assert.Contains(t, err.Error(), "tx123")
}

func TestStockErrorMessageListsProducts(t *testing.T) {
	err := &StockError{Issues: []StockIssue{{ProductID: "a"}, {ProductID: "b"}}}
	assert.Equal(t, "stock unavailable for a, b", err.Error())
}
