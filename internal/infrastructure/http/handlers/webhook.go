package handlers

import (
	"net/http"

	"github.com/yuzvak/cart-checkout-service/internal/application/commands"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type PaymentWebhookHandler struct {
	webhook *commands.PaymentWebhookHandler
	log     *logger.Logger
}

func NewPaymentWebhookHandler(webhook *commands.PaymentWebhookHandler, log *logger.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		webhook: webhook,
		log:     log,
	}
}

type PaymentWebhookResponse struct {
	IntentID string `json:"intent_id"`
	Accepted bool   `json:"accepted"`
}

func (h *PaymentWebhookHandler) HandlePaymentResult() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res payment.Result
		if err := decodeJSON(w, r, &res, false); err != nil {
			writeBadBody(w, err)
			return
		}

		accepted, err := h.webhook.Handle(r.Context(), commands.PaymentWebhookCommand{Result: res})
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusAccepted, response.Success(PaymentWebhookResponse{
			IntentID: res.IntentID,
			Accepted: accepted,
		}))
	}
}
