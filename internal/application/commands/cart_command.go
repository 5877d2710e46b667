package commands

import (
	"context"

	"github.com/yuzvak/cart-checkout-service/internal/application/ports"
	"github.com/yuzvak/cart-checkout-service/internal/domain/cart"
	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	"github.com/yuzvak/cart-checkout-service/internal/domain/pricing"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type CartCommand struct {
	OwnerKey  string
	ProductID string
	Quantity  int
}

// CartView is the cart as stored plus a live pricing pass. Pricing is nil
// when the catalog could not be reached after a successful mutation.
type CartView struct {
	OwnerKey string
	Items    []cart.LineItem
	Pricing  *pricing.Result
}

type StorageCarts struct {
	storage cart.Storage
}

func NewStorageCarts(storage cart.Storage) *StorageCarts {
	return &StorageCarts{storage: storage}
}

func (c *StorageCarts) Open(ctx context.Context, ownerKey string) (*cart.Store, error) {
	return cart.Open(ctx, c.storage, ownerKey)
}

type CartHandler struct {
	carts      ports.CartRepository
	pricer     checkout.Pricer
	log        *logger.Logger
	onMutation func(op string, err error)
}

func NewCartHandler(carts ports.CartRepository, pricer checkout.Pricer, log *logger.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		pricer: pricer,
		log:    log,
	}
}

// OnMutation registers a callback run after every add, remove, set or clear
// with the operation name and its error, if any.
func (h *CartHandler) OnMutation(fn func(op string, err error)) {
	h.onMutation = fn
}

func (h *CartHandler) View(ctx context.Context, ownerKey string) (*CartView, error) {
	store, err := h.carts.Open(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	priced, err := h.pricer.Price(ctx, store.List())
	if err != nil {
		h.log.Error("Failed to price cart", "error", err, "owner", ownerKey)
		return nil, err
	}

	return &CartView{OwnerKey: ownerKey, Items: store.List(), Pricing: priced}, nil
}

func (h *CartHandler) AddItem(ctx context.Context, cmd CartCommand) (*CartView, error) {
	return h.mutate(ctx, "add", cmd.OwnerKey, func(store *cart.Store) error {
		return store.AddItem(ctx, cmd.ProductID, cmd.Quantity)
	})
}

func (h *CartHandler) RemoveItem(ctx context.Context, cmd CartCommand) (*CartView, error) {
	return h.mutate(ctx, "remove", cmd.OwnerKey, func(store *cart.Store) error {
		return store.RemoveItem(ctx, cmd.ProductID)
	})
}

func (h *CartHandler) SetQuantity(ctx context.Context, cmd CartCommand) (*CartView, error) {
	return h.mutate(ctx, "set_quantity", cmd.OwnerKey, func(store *cart.Store) error {
		return store.SetQuantity(ctx, cmd.ProductID, cmd.Quantity)
	})
}

func (h *CartHandler) Clear(ctx context.Context, ownerKey string) (*CartView, error) {
	return h.mutate(ctx, "clear", ownerKey, func(store *cart.Store) error {
		return store.Clear(ctx)
	})
}

func (h *CartHandler) mutate(ctx context.Context, op, ownerKey string, fn func(*cart.Store) error) (*CartView, error) {
	store, err := h.carts.Open(ctx, ownerKey)
	if err != nil {
		h.mutated(op, err)
		return nil, err
	}

	err = fn(store)
	h.mutated(op, err)
	if err != nil {
		return nil, err
	}

	view := &CartView{OwnerKey: ownerKey, Items: store.List()}
	priced, err := h.pricer.Price(ctx, view.Items)
	if err != nil {
		h.log.Warn("Cart updated but pricing failed", "error", err, "owner", ownerKey, "operation", op)
		return view, nil
	}
	view.Pricing = priced
	return view, nil
}

func (h *CartHandler) mutated(op string, err error) {
	if h.onMutation != nil {
		h.onMutation(op, err)
	}
}
