package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuzvak/cart-checkout-service/internal/application/commands"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type CheckoutHandler struct {
	checkout *commands.CheckoutHandler
	log      *logger.Logger
}

func NewCheckoutHandler(checkout *commands.CheckoutHandler, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		log:      log,
	}
}

type AbandonRequest struct {
	Reason string `json:"reason"`
}

type sessionAction func(*commands.CheckoutHandler, *http.Request, commands.CheckoutCommand) (checkout.Session, error)

func (h *CheckoutHandler) HandleBegin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		resp, err := h.checkout.Begin(r.Context(), commands.CheckoutCommand{OwnerKey: owner})
		if err != nil {
			status, body := response.MapDomainError(err)
			if resp != nil && resp.Pricing != nil {
				if body.Details == nil {
					body.Details = map[string]any{}
				}
				body.Details["pricing"] = toPricing(resp.Pricing)
			}
			response.WriteJSON(w, status, body)
			return
		}

		h.log.Info("Checkout started", "session_id", resp.Session.ID, "owner", owner)
		response.WriteCreated(w, toSession(resp.Session))
	}
}

func (h *CheckoutHandler) HandleGet() http.HandlerFunc {
	return h.session(func(c *commands.CheckoutHandler, r *http.Request, cmd commands.CheckoutCommand) (checkout.Session, error) {
		return c.Get(r.Context(), cmd)
	})
}

func (h *CheckoutHandler) HandleSubmitAddress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var addr checkout.Address
		if err := decodeJSON(w, r, &addr, false); err != nil {
			writeBadBody(w, err)
			return
		}

		h.session(func(c *commands.CheckoutHandler, r *http.Request, cmd commands.CheckoutCommand) (checkout.Session, error) {
			cmd.Address = addr
			return c.SubmitAddress(r.Context(), cmd)
		})(w, r)
	}
}

// HandleAwaitPayment long-polls until the provider reports on the pending
// payment or the payment timeout passes.
func (h *CheckoutHandler) HandleAwaitPayment() http.HandlerFunc {
	return h.session(func(c *commands.CheckoutHandler, r *http.Request, cmd commands.CheckoutCommand) (checkout.Session, error) {
		return c.AwaitPayment(r.Context(), cmd)
	})
}

func (h *CheckoutHandler) HandleRetryPayment() http.HandlerFunc {
	return h.session(func(c *commands.CheckoutHandler, r *http.Request, cmd commands.CheckoutCommand) (checkout.Session, error) {
		return c.RetryPayment(r.Context(), cmd)
	})
}

func (h *CheckoutHandler) HandleAbandon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AbandonRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeBadBody(w, err)
			return
		}

		h.session(func(c *commands.CheckoutHandler, r *http.Request, cmd commands.CheckoutCommand) (checkout.Session, error) {
			cmd.Reason = req.Reason
			return c.Abandon(r.Context(), cmd)
		})(w, r)
	}
}

func (h *CheckoutHandler) session(action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		session, err := action(h.checkout, r, commands.CheckoutCommand{
			OwnerKey:  owner,
			SessionID: chi.URLParam(r, "sessionID"),
		})
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toSession(session))
	}
}
