package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
)

type OrderRepository struct {
	mu      sync.Mutex
	orders  []order.Order
	byTx    map[string]string
	FailErr error
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byTx: make(map[string]string)}
}

// Save rejects a second order for the same payment transaction.
func (r *OrderRepository) Save(_ context.Context, o *order.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailErr != nil {
		return "", r.FailErr
	}
	if existing, ok := r.byTx[o.TransactionID]; ok {
		return "", fmt.Errorf("order %s already recorded for transaction %s", existing, o.TransactionID)
	}

	stored := *o
	stored.Lines = append([]order.Line(nil), o.Lines...)
	r.orders = append(r.orders, stored)
	r.byTx[o.TransactionID] = o.ID
	return o.ID, nil
}

func (r *OrderRepository) Orders() []order.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]order.Order(nil), r.orders...)
}

type ReconciliationLog struct {
	mu      sync.Mutex
	entries []order.Reconciliation
}

func NewReconciliationLog() *ReconciliationLog {
	return &ReconciliationLog{}
}

func (l *ReconciliationLog) Record(_ context.Context, r order.Reconciliation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, r)
	return nil
}

func (l *ReconciliationLog) Entries() []order.Reconciliation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]order.Reconciliation(nil), l.entries...)
}

func (l *ReconciliationLog) List(_ context.Context, limit int) ([]order.Reconciliation, error) {
	entries := l.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
