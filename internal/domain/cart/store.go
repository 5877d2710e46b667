package cart

import (
	"context"
	"encoding/json"
	"fmt"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
)

const documentVersion = 1

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 9999

type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Storage is the durable key/value store behind a cart. Set must be durable
// when it returns; concurrent writers to the same key are last-write-wins.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type document struct {
	Version int        `json:"version"`
	Items   []LineItem `json:"items"`
}

// Store holds the line items of one cart owner. It is not safe for concurrent
// use; open one Store per request or session.
type Store struct {
	storage Storage
	key     string
	items   []LineItem
}

func Open(ctx context.Context, storage Storage, ownerKey string) (*Store, error) {
	if ownerKey == "" {
		return nil, domainErrors.ErrCartOwnerRequired
	}

	s := &Store{storage: storage, key: ownerKey}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) OwnerKey() string {
	return s.key
}

// AddItem increments an existing line or appends a new one. The resulting
// line may not exceed MaxQuantity.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return &domainErrors.QuantityError{ProductID: productID, Quantity: quantity}
	}

	next := s.List()
	if i := indexOf(next, productID); i >= 0 {
		if quantity > MaxQuantity-next[i].Quantity {
			return &domainErrors.QuantityError{ProductID: productID, Quantity: quantity}
		}
		next[i].Quantity += quantity
	} else {
		next = append(next, LineItem{ProductID: productID, Quantity: quantity})
	}

	return s.commit(ctx, next)
}

// RemoveItem is a no-op when the product is not in the cart.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	i := indexOf(s.items, productID)
	if i < 0 {
		return nil
	}

	next := make([]LineItem, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)

	return s.commit(ctx, next)
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero
// or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	i := indexOf(s.items, productID)
	if i < 0 {
		return &domainErrors.ItemError{ProductID: productID}
	}
	if quantity > MaxQuantity {
		return &domainErrors.QuantityError{ProductID: productID, Quantity: quantity}
	}

	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	next := s.List()
	next[i].Quantity = quantity

	return s.commit(ctx, next)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, []LineItem{})
}

// List returns a copy of the items in insertion order.
func (s *Store) List() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

// Reload replaces the in-memory items with whatever is stored now, picking up
// writes made by another tab.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx)
}

// commit persists next and only then makes it the current state, so a failed
// write leaves the Store as it was.
func (s *Store) commit(ctx context.Context, next []LineItem) error {
	payload, err := json.Marshal(document{Version: documentVersion, Items: next})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	if err := s.storage.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrStorageUnavailable, err)
	}

	s.items = next
	return nil
}

func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrStorageUnavailable, err)
	}
	if !ok || raw == "" {
		s.items = []LineItem{}
		return nil
	}

	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decode cart %s: %w", s.key, err)
	}

	s.items = normalize(doc.Items)
	return nil
}

// normalize drops empty lines and folds duplicate product ids into the first
// occurrence, keeping the unique-product invariant for documents written by
// older clients. Quantities are capped at MaxQuantity.
func normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		item.Quantity = min(item.Quantity, MaxQuantity)
		if i := indexOf(out, item.ProductID); i >= 0 {
			out[i].Quantity = min(out[i].Quantity+item.Quantity, MaxQuantity)
			continue
		}
		out = append(out, item)
	}
	return out
}

func indexOf(items []LineItem, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
