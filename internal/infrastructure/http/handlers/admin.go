package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

const (
	defaultReconciliationLimit = 50
	maxReconciliationLimit     = 500
)

type AdminHandler struct {
	reconciliation ports.ReconciliationReader
	log            *logger.Logger
}

func NewAdminHandler(reconciliation ports.ReconciliationReader, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		reconciliation: reconciliation,
		log:            log,
	}
}

type ReconciliationResponse struct {
	TransactionID   string        `json:"transaction_id"`
	PaymentIntentID string        `json:"payment_intent_id"`
	SessionID       string        `json:"session_id"`
	UserID          string        `json:"user_id"`
	Total           MoneyResponse `json:"total"`
	Currency        string        `json:"currency"`
	Error           string        `json:"error"`
	RecordedAt      string        `json:"recorded_at"`
}

// HandleListUnreconciled lists charges that succeeded without an order row.
func (h *AdminHandler) HandleListUnreconciled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultReconciliationLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxReconciliationLimit {
				response.WriteValidationError(w, "Validation failed", map[string]string{
					"limit": "Limit must be between 1 and " + strconv.Itoa(maxReconciliationLimit),
				})
				return
			}
			limit = n
		}

		entries, err := h.reconciliation.List(r.Context(), limit)
		if err != nil {
			h.log.Error("Failed to list unreconciled orders", "error", err)
			response.WriteError(w, http.StatusInternalServerError, response.StatusInternalError, "Failed to list unreconciled orders", err.Error())
			return
		}

		out := make([]ReconciliationResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, ReconciliationResponse{
				TransactionID:   e.TransactionID,
				PaymentIntentID: e.PaymentIntentID,
				SessionID:       e.SessionID,
				UserID:          e.UserID,
				Total:           toMoney(e.Total),
				Currency:        e.Currency,
				Error:           e.Error,
				RecordedAt:      e.RecordedAt.Format(time.RFC3339),
			})
		}
		response.WriteSuccess(w, out)
	}
}
