// Package breaker exposes a circuit-breaker/health-monitor capability
// the live engine checks before each outbound call: three states
// {Closed, Open, HalfOpen} per external dependency, transitioning on
// per-call outcome, with the Open state returning a typed failure without
// attempting I/O.
package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/metrics"
)

// Breaker guards one external dependency (a REST client, a WS feed).
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New builds a Breaker named dependency, trip after 5 consecutive
// failures, half-open probe after 30s.
func New(dependency string) *Breaker {
	st := gobreaker.Settings{
		Name:        dependency,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, stateValue(to))
		},
	}
	return &Breaker{name: dependency, cb: gobreaker.NewCircuitBreaker(st)}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Call runs fn through the breaker. When the breaker is open, fn is never
// invoked and a typed, non-retryable remote-feed error is returned
// immediately.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == gobreaker.ErrOpenState {
		return errs.New(errs.RemoteFeed, false, fmt.Errorf("circuit open for %s", b.name))
	}
	return err
}
