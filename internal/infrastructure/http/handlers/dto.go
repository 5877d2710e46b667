package handlers

import (
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/application/commands"
	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/catalog"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
)

// MoneyResponse carries minor units for machines and a fixed two-decimal
// string for display.
type MoneyResponse struct {
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

func toMoney(m money.Money) MoneyResponse {
	return MoneyResponse{Amount: int64(m), Display: m.String()}
}

type PricedLineResponse struct {
	ProductID         string        `json:"product_id"`
	Name              string        `json:"name"`
	Quantity          int           `json:"quantity"`
	RequestedQuantity int           `json:"requested_quantity"`
	ListPrice         MoneyResponse `json:"list_price"`
	UnitPrice         MoneyResponse `json:"unit_price"`
	LineTotal         MoneyResponse `json:"line_total"`
	OnSale            bool          `json:"on_sale"`
	Clamped           bool          `json:"clamped,omitempty"`
}

type PricingResponse struct {
	Lines        []PricedLineResponse      `json:"lines"`
	RemovedLines []string                  `json:"removed_lines,omitempty"`
	StockIssues  []domainErrors.StockIssue `json:"stock_issues,omitempty"`
	ItemCount    int                       `json:"item_count"`
	Subtotal     MoneyResponse             `json:"subtotal"`
	Tax          MoneyResponse             `json:"tax"`
	Shipping     MoneyResponse             `json:"shipping"`
	Total        MoneyResponse             `json:"total"`
	Currency     string                    `json:"currency"`
}

func toPricing(r *pricing.Result) *PricingResponse {
	if r == nil {
		return nil
	}
	resp := &PricingResponse{
		Lines:        make([]PricedLineResponse, 0, len(r.Lines)),
		RemovedLines: r.RemovedLines,
		StockIssues:  r.StockIssues(),
		ItemCount:    r.ItemCount(),
		Subtotal:     toMoney(r.Subtotal),
		Tax:          toMoney(r.Tax),
		Shipping:     toMoney(r.Shipping),
		Total:        toMoney(r.Total),
		Currency:     r.Currency,
	}
	for _, line := range r.Lines {
		resp.Lines = append(resp.Lines, PricedLineResponse{
			ProductID:         line.ProductID,
			Name:              line.Name,
			Quantity:          line.Quantity,
			RequestedQuantity: line.RequestedQuantity,
			ListPrice:         toMoney(line.ListPrice),
			UnitPrice:         toMoney(line.UnitPrice),
			LineTotal:         toMoney(line.LineTotal),
			OnSale:            line.UnitPrice < line.ListPrice,
			Clamped:           line.Clamped,
		})
	}
	return resp
}

type CartResponse struct {
	Items   []cart.LineItem  `json:"items"`
	Pricing *PricingResponse `json:"pricing,omitempty"`
}

func toCart(view *commands.CartView) CartResponse {
	items := view.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartResponse{Items: items, Pricing: toPricing(view.Pricing)}
}

type SessionResponse struct {
	ID              string            `json:"id"`
	State           checkout.State    `json:"state"`
	Pricing         *PricingResponse  `json:"pricing,omitempty"`
	Address         *checkout.Address `json:"address,omitempty"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	Attempts        int               `json:"attempts"`
	TransactionID   string            `json:"transaction_id,omitempty"`
	OrderID         string            `json:"order_id,omitempty"`
	OrderError      string            `json:"order_error,omitempty"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

func toSession(s checkout.Session) SessionResponse {
	resp := SessionResponse{
		ID:              s.ID,
		State:           s.State,
		Pricing:         toPricing(s.Snapshot),
		PaymentIntentID: s.PaymentIntentID,
		Attempts:        s.Attempts,
		TransactionID:   s.TransactionID,
		OrderID:         s.OrderID,
		OrderError:      s.OrderError,
		FailureReason:   s.FailureReason,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
	if s.Address != (checkout.Address{}) {
		addr := s.Address
		resp.Address = &addr
	}
	return resp
}

type ProductResponse struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Price          MoneyResponse `json:"price"`
	UnitPrice      MoneyResponse `json:"unit_price"`
	OnSale         bool          `json:"on_sale"`
	AvailableStock int           `json:"available_stock"`
}

func toProduct(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          toMoney(p.Price),
		UnitPrice:      toMoney(p.UnitPrice()),
		OnSale:         p.OnSale(),
		AvailableStock: p.AvailableStock,
	}
}
