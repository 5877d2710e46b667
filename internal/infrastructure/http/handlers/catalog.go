package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type CatalogHandler struct {
	products ports.ProductCatalog
	log      *logger.Logger
}

func NewCatalogHandler(products ports.ProductCatalog, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		products: products,
		log:      log,
	}
}

func (h *CatalogHandler) HandleListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := h.products.List(r.Context())
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}

		out := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			out = append(out, toProduct(p))
		}
		response.WriteSuccess(w, out)
	}
}

func (h *CatalogHandler) HandleGetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			writeError(h.log, w, r, err)
			return
		}
		response.WriteSuccess(w, toProduct(p))
	}
}
