package memory

import (
	"context"
	"sync"

	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/domain/money"
	"github.com/yuzvak/cart-checkout-service/internal/domain/payment"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/clock"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/generator"
)

// PaymentProvider keeps intents in process. Verdicts arrive through Notify,
// the same way the webhook feeds the redis-backed provider.
type PaymentProvider struct {
	mu      sync.Mutex
	intents map[string]*payment.Intent
	results map[string]chan payment.Result
	decided map[string]bool
	codes   *generator.CodeGenerator
	clock   clock.Clock
}

func NewPaymentProvider(codes *generator.CodeGenerator, clk clock.Clock) *PaymentProvider {
	return &PaymentProvider{
		intents: make(map[string]*payment.Intent),
		results: make(map[string]chan payment.Result),
		decided: make(map[string]bool),
		codes:   codes,
		clock:   clk,
	}
}

func (p *PaymentProvider) CreateCharge(ctx context.Context, amount money.Money, currency string) (*payment.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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

	p.mu.Lock()
	p.intents[id] = intent
	p.results[id] = make(chan payment.Result, 1)
	p.mu.Unlock()

	copied := *intent
	return &copied, nil
}

func (p *PaymentProvider) AwaitResult(ctx context.Context, intentID string) (*payment.Result, error) {
	p.mu.Lock()
	ch, ok := p.results[intentID]
	p.mu.Unlock()
	if !ok {
		return nil, domainErrors.ErrIntentNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return &res, nil
	}
}

// Notify queues the first verdict for an intent; later ones are reported as
// not accepted and dropped.
func (p *PaymentProvider) Notify(_ context.Context, result payment.Result) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.results[result.IntentID]
	if !ok {
		return false, domainErrors.ErrIntentNotFound
	}
	if p.decided[result.IntentID] {
		return false, nil
	}
	p.decided[result.IntentID] = true

	// buffered for exactly one verdict
	ch <- result
	return true, nil
}

func (p *PaymentProvider) Intent(intentID string) (*payment.Intent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[intentID]
	if !ok {
		return nil, false
	}
	copied := *intent
	return &copied, true
}
