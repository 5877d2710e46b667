package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
)

type ErrorMapping struct {
	Err        error
	HTTPStatus int
	Status     Status
	Code       string
	Message    string
}

// Checked in order. ErrPersistence sits first because a PersistenceError also
// unwraps to whatever the store returned.
var errorMappings = []ErrorMapping{
	{
		Err:        domainErrors.ErrPersistence,
		HTTPStatus: http.StatusInternalServerError,
		Status:     StatusOrderNotRecorded,
		Code:       "order_not_recorded",
		Message:    "Payment was taken but the order could not be recorded. Keep the transaction id for support.",
	},
	{
		Err:        domainErrors.ErrCartOwnerRequired,
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
		Code:       "cart_owner_required",
		Message:    "Send X-User-ID or X-Cart-Session to identify the cart",
	},
	{
		Err:        domainErrors.ErrInvalidQuantity,
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
		Code:       "invalid_quantity",
		Message:    fmt.Sprintf("Quantity must be between 1 and %d", cart.MaxQuantity),
	},
	{
		Err:        domainErrors.ErrItemNotFound,
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Code:       "item_not_found",
		Message:    "Item not in cart",
	},
	{
		Err:        domainErrors.ErrProductNotFound,
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Code:       "product_not_found",
		Message:    "Product not found",
	},
	{
		Err:        domainErrors.ErrEmptyCart,
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusError,
		Code:       "empty_cart",
		Message:    "Cart is empty",
	},
	{
		Err:        domainErrors.ErrStockUnavailable,
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Code:       "stock_unavailable",
		Message:    "Some items are no longer available in the requested quantity",
	},
	{
		Err:        domainErrors.ErrInvalidAddress,
		HTTPStatus: http.StatusUnprocessableEntity,
		Status:     StatusValidationError,
		Code:       "invalid_address",
		Message:    "Shipping address is incomplete",
	},
	{
		Err:        domainErrors.ErrUnauthenticated,
		HTTPStatus: http.StatusUnauthorized,
		Status:     StatusUnauthorized,
		Code:       "unauthenticated",
		Message:    "Sign in to check out",
	},
	{
		Err:        domainErrors.ErrSessionNotFound,
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Code:       "session_not_found",
		Message:    "Checkout session not found",
	},
	{
		Err:        domainErrors.ErrInvalidTransition,
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Code:       "invalid_transition",
		Message:    "Checkout is not in a state that allows this action",
	},
	{
		Err:        domainErrors.ErrStaleIntent,
		HTTPStatus: http.StatusConflict,
		Status:     StatusConflict,
		Code:       "stale_intent",
		Message:    "Payment result does not match the pending payment",
	},
	{
		Err:        domainErrors.ErrPaymentTimeout,
		HTTPStatus: http.StatusGatewayTimeout,
		Status:     StatusPaymentTimeout,
		Code:       "payment_timeout",
		Message:    "Payment was not confirmed in time",
	},
	{
		Err:        domainErrors.ErrPaymentFailed,
		HTTPStatus: http.StatusPaymentRequired,
		Status:     StatusPaymentFailed,
		Code:       "payment_failed",
		Message:    "Payment failed",
	},
	{
		Err:        domainErrors.ErrIntentNotFound,
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
		Code:       "intent_not_found",
		Message:    "Payment intent not found",
	},
	{
		Err:        domainErrors.ErrInvalidPaymentResult,
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
		Code:       "invalid_payment_result",
		Message:    "Invalid payment result",
	},
	{
		Err:        domainErrors.ErrStorageUnavailable,
		HTTPStatus: http.StatusServiceUnavailable,
		Status:     StatusServiceUnavailable,
		Code:       "storage_unavailable",
		Message:    "Cart storage is unavailable, try again",
	},
	{
		Err:        context.DeadlineExceeded,
		HTTPStatus: http.StatusGatewayTimeout,
		Status:     StatusError,
		Code:       "deadline_exceeded",
		Message:    "Request timed out",
	},
	{
		Err:        context.Canceled,
		HTTPStatus: http.StatusRequestTimeout,
		Status:     StatusError,
		Code:       "request_canceled",
		Message:    "Request was canceled",
	},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.Err) {
			resp := Error(mapping.Status, mapping.Message, err.Error())
			resp.Code = mapping.Code
			resp.Details = details(err)
			return mapping.HTTPStatus, resp
		}
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "Internal server error", err.Error())
}

func WriteDomainError(w http.ResponseWriter, err error) {
	statusCode, errorResponse := MapDomainError(err)
	WriteJSON(w, statusCode, errorResponse)
}

func details(err error) map[string]any {
	out := map[string]any{}

	var persistence *domainErrors.PersistenceError
	if errors.As(err, &persistence) {
		out["transaction_id"] = persistence.TransactionID
		out["payment_intent_id"] = persistence.IntentID
	}

	var stock *domainErrors.StockError
	if errors.As(err, &stock) {
		out["stock_issues"] = stock.Issues
	}

	var address *domainErrors.AddressError
	if errors.As(err, &address) {
		out["missing_fields"] = address.Fields
	}

	var pay *domainErrors.PaymentError
	if errors.As(err, &pay) {
		out["payment_intent_id"] = pay.IntentID
		if pay.Reason != "" {
			out["reason"] = pay.Reason
		}
	}

	var transition *domainErrors.TransitionError
	if errors.As(err, &transition) {
		out["state"] = transition.From
		out["action"] = transition.Action
	}

	var item *domainErrors.ItemError
	if errors.As(err, &item) {
		out["product_id"] = item.ProductID
	}

	var product *domainErrors.ProductError
	if errors.As(err, &product) {
		out["product_id"] = product.ProductID
	}

	var quantity *domainErrors.QuantityError
	if errors.As(err, &quantity) {
		out["product_id"] = quantity.ProductID
		out["quantity"] = quantity.Quantity
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
