package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yuzvak/cart-checkout-service/internal/domain/order"
)

const unreconciledKey = "orders:unreconciled"

// ReconciliationLog appends paid-but-unrecorded orders to a redis list for
// an operator to replay.
type ReconciliationLog struct {
	client *redis.Client
}

func NewReconciliationLog(conn *Connection) *ReconciliationLog {
	return &ReconciliationLog{client: conn.GetClient()}
}

func (l *ReconciliationLog) Record(ctx context.Context, r order.Reconciliation) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return l.client.RPush(ctx, unreconciledKey, payload).Err()
}

// List returns up to limit entries, oldest first.
func (l *ReconciliationLog) List(ctx context.Context, limit int) ([]order.Reconciliation, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := l.client.LRange(ctx, unreconciledKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]order.Reconciliation, 0, len(raw))
	for _, item := range raw {
		var r order.Reconciliation
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode reconciliation entry: %w", err)
		}
		entries = append(entries, r)
	}
	return entries, nil
}
