package monitoring

import (
	"context"
	"database/sql"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

// PoolStatter is satisfied by *sql.DB.
type PoolStatter interface {
	Stats() sql.DBStats
}

// Querier is the part of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PoolCollector publishes connection pool gauges and counts how often
// catalog reads and order writes had to wait for a free connection.
type PoolCollector struct {
	pool PoolStatter
	log  *logger.Logger
	last sql.DBStats
}

func NewPoolCollector(pool PoolStatter, log *logger.Logger) *PoolCollector {
	return &PoolCollector{pool: pool, log: log}
}

// Run samples the pool every interval until ctx is done.
func (c *PoolCollector) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Sample()
		}
	}
}

// Sample publishes one reading. Wait counters only ever grow by the delta
// since the previous reading.
func (c *PoolCollector) Sample() sql.DBStats {
	stats := c.pool.Stats()

	DBConnectionsActive.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
	DBConnectionsMax.Set(float64(stats.MaxOpenConnections))

	waits := stats.WaitCount - c.last.WaitCount
	waited := stats.WaitDuration - c.last.WaitDuration
	if waits > 0 {
		DBConnectionWaitsTotal.Add(float64(waits))
		DBConnectionWaitSeconds.Add(waited.Seconds())
		c.log.Warn("Database pool saturated",
			"waits", waits,
			"waited", waited.String(),
			"in_use", stats.InUse,
			"max_open", stats.MaxOpenConnections,
		)
	}

	c.last = stats
	return stats
}

func TimedQuery(ctx context.Context, q Querier, queryType, table, query string, args ...any) (*sql.Rows, error) {
	defer TimeDBQuery(queryType, table)()
	return q.QueryContext(ctx, query, args...)
}

func TimedQueryRow(ctx context.Context, q Querier, queryType, table, query string, args ...any) *sql.Row {
	defer TimeDBQuery(queryType, table)()
	return q.QueryRowContext(ctx, query, args...)
}

func TimedExec(ctx context.Context, q Querier, queryType, table, query string, args ...any) (sql.Result, error) {
	defer TimeDBQuery(queryType, table)()
	return q.ExecContext(ctx, query, args...)
}
