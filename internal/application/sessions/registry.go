package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/cart-checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/cart-checkout-service/internal/domain/errors"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/generator"
	"github.com/yuzvak/cart-checkout-service/internal/pkg/logger"
)

type SweepStats struct {
	Expired   int
	Abandoned int
	Evicted   int
}

// Registry keeps checkout sessions in memory and sweeps them: pending
// payments past the timeout fail, idle unfinished sessions are abandoned,
// and finished ones are evicted once idle for the TTL.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*checkout.Machine
	byOwner  map[string]string

	// intentMu guards byIntent and is taken from inside machine locks, so it
	// is never held while acquiring mu or a machine.
	intentMu sync.Mutex
	byIntent map[string]string

	deps     *checkout.Dependencies
	codes    *generator.CodeGenerator
	ttl      time.Duration
	log      *logger.Logger
	onSweep  func(active int, stats SweepStats)
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewRegistry(deps *checkout.Dependencies, codes *generator.CodeGenerator, ttl time.Duration, log *logger.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*checkout.Machine),
		byOwner:  make(map[string]string),
		byIntent: make(map[string]string),
		codes:    codes,
		ttl:      ttl,
		log:      log,
		stopChan: make(chan struct{}),
	}

	machineDeps := *deps
	next := deps.OnPaymentIntent
	machineDeps.OnPaymentIntent = func(sessionID, intentID string) {
		r.trackIntent(sessionID, intentID)
		if next != nil {
			next(sessionID, intentID)
		}
	}
	r.deps = &machineDeps
	return r
}

// OnSweep registers a callback run after every sweep, outside the lock.
func (r *Registry) OnSweep(fn func(active int, stats SweepStats)) {
	r.onSweep = fn
}

func (r *Registry) Create(ownerKey string) (*checkout.Machine, error) {
	id, err := r.codes.GenerateSessionCode(ownerKey)
	if err != nil {
		return nil, err
	}
	m := checkout.NewMachine(id, ownerKey, r.deps)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prevID, ok := r.byOwner[ownerKey]; ok {
		if prev, ok := r.sessions[prevID]; ok && !prev.State().Final() {
			if err := prev.Abandon("superseded by a new checkout"); err == nil {
				r.log.Info("Checkout session superseded", "session_id", prevID, "owner", ownerKey)
			}
		}
	}

	r.sessions[id] = m
	r.byOwner[ownerKey] = id
	return m, nil
}

func (r *Registry) Get(sessionID string) (*checkout.Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.sessions[sessionID]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return m, nil
}

// ByIntent finds the session waiting on, or last paid through, a payment
// intent. Intents of earlier attempts still resolve to their session.
func (r *Registry) ByIntent(intentID string) (*checkout.Machine, error) {
	r.intentMu.Lock()
	sessionID, ok := r.byIntent[intentID]
	r.intentMu.Unlock()
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return r.Get(sessionID)
}

func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(sessionID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Sweep(now time.Time) SweepStats {
	var stats SweepStats

	r.mu.RLock()
	machines := make([]*checkout.Machine, 0, len(r.sessions))
	for _, m := range r.sessions {
		machines = append(machines, m)
	}
	r.mu.RUnlock()

	var evict []*checkout.Machine
	for _, m := range machines {
		if m.ExpirePayment(now) {
			stats.Expired++
			continue
		}

		s := m.Session()
		if now.Sub(s.UpdatedAt) < r.ttl {
			continue
		}

		switch {
		case s.State.Final():
			evict = append(evict, m)
		case s.State != checkout.StatePaymentPending:
			if err := m.Abandon("idle timeout"); err == nil {
				stats.Abandoned++
			}
		}
	}

	r.mu.Lock()
	for _, m := range evict {
		id := m.Session().ID
		// the id may have been deleted or reused while the lock was released
		if r.sessions[id] == m {
			r.deleteLocked(id)
			stats.Evicted++
		}
	}
	active := len(r.sessions)
	r.mu.Unlock()

	if stats != (SweepStats{}) {
		r.log.Info("Checkout sessions swept",
			"expired", stats.Expired,
			"abandoned", stats.Abandoned,
			"evicted", stats.Evicted,
			"active", active,
		)
	}
	if r.onSweep != nil {
		r.onSweep(active, stats)
	}
	return stats
}

// Run sweeps every interval until ctx is done or Stop is called.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	r.log.Info("Starting checkout session sweeper", "interval", interval.String(), "ttl", r.ttl.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Checkout session sweeper stopped")
			return nil
		case <-r.stopChan:
			r.log.Info("Checkout session sweeper stopped")
			return nil
		case <-ticker.C:
			r.Sweep(r.deps.Clock.Now())
		}
	}
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

func (r *Registry) deleteLocked(sessionID string) {
	m, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	owner := m.Session().OwnerKey
	if r.byOwner[owner] == sessionID {
		delete(r.byOwner, owner)
	}

	r.intentMu.Lock()
	for intentID, id := range r.byIntent {
		if id == sessionID {
			delete(r.byIntent, intentID)
		}
	}
	r.intentMu.Unlock()
}

func (r *Registry) trackIntent(sessionID, intentID string) {
	r.intentMu.Lock()
	r.byIntent[intentID] = sessionID
	r.intentMu.Unlock()
}
