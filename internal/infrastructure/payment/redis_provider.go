package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	redisPersistence "github.com/yuzvak/cart-checkout-service/internal/infrastructure/persistence/redis"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/generator"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

const (
	defaultIntentTTL = 24 * time.Hour
	pollSlice        = time.Second
)

// The first verdict wins; later ones for the same intent are ignored.
const notifyLuaScript = `
local intent = KEYS[1]
local results = KEYS[2]
if redis.call("EXISTS", intent) == 0 then
	return -1
end
if redis.call("HGET", intent, "status") ~= "pending" then
	return 0
end
redis.call("HSET", intent, "status", ARGV[2])
redis.call("RPUSH", results, ARGV[1])
redis.call("EXPIRE", results, ARGV[3])
return 1
`

// RedisProvider records intents in redis and receives verdicts from the
// provider webhook. A verdict is pushed to a per-intent list that
// AwaitResult pops with BLPOP, so any replica can serve the wait.
type RedisProvider struct {
	client       *redis.Client
	codes        *generator.CodeGenerator
	clock        clock.Clock
	log          *logger.Logger
	intentTTL    time.Duration
	notifyScript *redis.Script
}

func NewRedisProvider(conn *redisPersistence.Connection, codes *generator.CodeGenerator, clk clock.Clock, log *logger.Logger) *RedisProvider {
	return &RedisProvider{
		client:       conn.GetClient(),
		codes:        codes,
		clock:        clk,
		log:          log,
		intentTTL:    defaultIntentTTL,
		notifyScript: redis.NewScript(notifyLuaScript),
	}
}

func (p *RedisProvider) CreateCharge(ctx context.Context, amount money.Money, currency string) (*payment.Intent, error) {
	id, err := p.codes.GeneratePaymentIntentID()
	if err != nil {
		return nil, err
	}

	intent := &payment.Intent{
		ID:        id,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: p.clock.Now(),
	}

	key := intentKey(id)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"amount", int64(amount),
			"currency", currency,
			"created_at", intent.CreatedAt.Format(time.RFC3339Nano),
			"status", "pending",
		)
		pipe.Expire(ctx, key, p.intentTTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store payment intent: %w", err)
	}

	p.log.Info("Payment intent created", "intent_id", id, "amount", amount.String(), "currency", currency)
	return intent, nil
}

// AwaitResult blocks in short BLPOP slices so a cancelled ctx is noticed
// within pollSlice.
func (p *RedisProvider) AwaitResult(ctx context.Context, intentID string) (*payment.Result, error) {
	exists, err := p.client.Exists(ctx, intentKey(intentID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domainErrors.ErrIntentNotFound
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait := pollSlice
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
		}
		if wait <= 0 {
			return nil, context.DeadlineExceeded
		}

		values, err := p.client.BLPop(ctx, wait, resultKey(intentID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}

		var res payment.Result
		if err := json.Unmarshal([]byte(values[1]), &res); err != nil {
			return nil, fmt.Errorf("decode payment result: %w", err)
		}
		return &res, nil
	}
}

func (p *RedisProvider) Notify(ctx context.Context, result payment.Result) (bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return false, err
	}

	status := "failed"
	if result.Success {
		status = "succeeded"
	}

	ttl := strconv.Itoa(int(p.intentTTL.Seconds()))
	applied, err := p.notifyScript.Run(ctx, p.client,
		[]string{intentKey(result.IntentID), resultKey(result.IntentID)},
		payload, status, ttl,
	).Int()
	if err != nil {
		return false, fmt.Errorf("deliver payment result: %w", err)
	}

	switch applied {
	case -1:
		return false, domainErrors.ErrIntentNotFound
	case 0:
		p.log.Warn("Duplicate payment result ignored", "intent_id", result.IntentID)
		return false, nil
	}
	return true, nil
}

func intentKey(id string) string {
	return fmt.Sprintf("payment:intent:%s", id)
}

func resultKey(id string) string {
	return fmt.Sprintf("payment:intent:%s:result", id)
}
