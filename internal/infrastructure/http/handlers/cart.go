package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuzvak/cart-checkout-service/internal/application/commands"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/middleware"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type CartHandler struct {
	cart *commands.CartHandler
	log  *logger.Logger
}

func NewCartHandler(cart *commands.CartHandler, log *logger.Logger) *CartHandler {
	return &CartHandler{
		cart: cart,
		log:  log,
	}
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) HandleGetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		view, err := h.cart.View(r.Context(), owner)
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toCart(view))
	}
}

func (h *CartHandler) HandleAddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		req := AddItemRequest{Quantity: 1}
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadBody(w, err)
			return
		}
		if req.ProductID == "" {
			response.WriteValidationError(w, "Validation failed", map[string]string{
				"product_id": "Product ID is required",
			})
			return
		}

		view, err := h.cart.AddItem(r.Context(), commands.CartCommand{
			OwnerKey:  owner,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		})
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toCart(view))
	}
}

func (h *CartHandler) HandleSetQuantity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		var req SetQuantityRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadBody(w, err)
			return
		}

		view, err := h.cart.SetQuantity(r.Context(), commands.CartCommand{
			OwnerKey:  owner,
			ProductID: chi.URLParam(r, "productID"),
			Quantity:  req.Quantity,
		})
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toCart(view))
	}
}

func (h *CartHandler) HandleRemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		view, err := h.cart.RemoveItem(r.Context(), commands.CartCommand{
			OwnerKey:  owner,
			ProductID: chi.URLParam(r, "productID"),
		})
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toCart(view))
	}
}

func (h *CartHandler) HandleClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := middleware.OwnerKey(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		view, err := h.cart.Clear(r.Context(), owner)
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toCart(view))
	}
}
