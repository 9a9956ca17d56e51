package optimizer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cryptomegabyte/gridsim/internal/errs"
	"github.com/cryptomegabyte/gridsim/internal/metrics"
	"github.com/cryptomegabyte/gridsim/internal/model"
)

// Evaluator runs one backtest for a parameter set, returning its metrics.
type Evaluator func(ctx context.Context, params model.OptimisationParameterSet) (model.BacktestMetrics, error)

// RetryPolicy configures retry behaviour for transient evaluation
// failures, applied functionally by EvaluateAll, never baked into call
// sites.
type RetryPolicy struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy allows up to 3 retries after the first attempt, with
// exponential backoff starting at 1s and a multiplier of 2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second, BackoffMultiplier: 2}
}

// EvaluateAll runs evaluate concurrently over every parameter set,
// retrying transient failures per policy and skipping sets whose failure
// persists, without aborting the whole run. Strategy is used only to
// label the grid_optimiser_evaluations_total metric.
func EvaluateAll(ctx context.Context, sets []model.OptimisationParameterSet, concurrency int, policy RetryPolicy, strategyLabel string, evaluate Evaluator) []model.OptimisationResult {
	results := make([]model.OptimisationResult, len(sets))
	ok := make([]bool, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, ps := range sets {
		i, ps := i, ps
		g.Go(func() error {
			metricsRow, err := evaluateWithRetry(gctx, ps, policy, evaluate)
			metrics.IncOptimiserEvaluation(strategyLabel)
			if err != nil {
				// Persistent failure skips this set; the run continues.
				return nil
			}
			results[i] = model.OptimisationResult{Parameters: ps, Metrics: metricsRow, CompositeScore: CompositeScore(metricsRow)}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.OptimisationResult, 0, len(sets))
	for i, v := range ok {
		if v {
			out = append(out, results[i])
		}
	}
	Rank(out)
	return out
}

func evaluateWithRetry(ctx context.Context, ps model.OptimisationParameterSet, policy RetryPolicy, evaluate Evaluator) (model.BacktestMetrics, error) {
	delay := policy.BaseDelay
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		m, err := evaluate(ctx, ps)
		if err == nil {
			return m, nil
		}
		lastErr = err
		if !errs.IsRetryable(err) {
			return model.BacktestMetrics{}, err
		}
		if attempt == policy.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return model.BacktestMetrics{}, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return model.BacktestMetrics{}, lastErr
}
