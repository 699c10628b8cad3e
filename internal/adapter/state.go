package adapter

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// State is RenderAdapterState (spec §3.2): process-wide, one instance per
// tier, holding a last-error circuit breaker keyed by domain. Only the
// playwright adapter holds a State; the intelligence and lightweight
// adapters run without a breaker.
type State struct {
	tier string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	// ActivePages is a Playwright page counter. The playwright adapter
	// enforces its max-concurrent-pages ceiling with its own semaphore and
	// does not update this field.
	ActivePages int
}

// NewState creates an empty RenderAdapterState for tier.
func NewState(tier string) *State {
	return &State{tier: tier, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// BreakerFor returns the circuit breaker for domain, creating one with
// default settings on first use. Settings trip after 3 consecutive
// failures within a 1-minute window and probe again after 30s half-open.
func (s *State) BreakerFor(domain string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[domain]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.tier + ":" + domain,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	s.breakers[domain] = cb
	return cb
}
