// Package ratelimit wraps golang.org/x/time/rate as a token-bucket
// limiter guarding historical fetches, N calls per window (default
// 60/min), consumers await when the window is saturated.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter guards calls to a rate-limited external dependency.
type Limiter struct {
	l *rate.Limiter
}

// New builds a Limiter allowing callsPerMinute calls per minute, with a
// burst equal to the full per-minute allowance so a quiet period can be
// spent in one go.
func New(callsPerMinute int) *Limiter {
	if callsPerMinute <= 0 {
		callsPerMinute = 60
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.l.Wait(ctx)
}
