// FILE: metrics.go
// Package metrics – Prometheus metrics for observability.
//
// Exposes the counters/gauges the backtest engine, optimiser and live
// engine update during operation:
//   • grid_signals_total{side}                  – signal events emitted
//   • grid_trades_total{result}                  – trades by result (win|loss|open)
//   • grid_equity_usd                             – current mark-to-market equity
//   • grid_drawdown_pct                           – current drawdown from peak
//   • grid_risk_gate_rejections_total{reason}     – risk-gate vetoes by cause
//   • grid_matching_fills_total{type}             – matching engine fills by order type
//   • grid_optimiser_evaluations_total{strategy}  – optimiser evaluations by strategy
//   • grid_circuit_breaker_state{dependency}      – 0=closed,1=half-open,2=open
//
// Registered in init() and served by an HTTP handler on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grid_signals_total", Help: "Signal events emitted"},
		[]string{"side"},
	)

	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grid_trades_total", Help: "Trades by result"},
		[]string{"result"},
	)

	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "grid_equity_usd", Help: "Mark-to-market equity"},
	)

	DrawdownPct = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "grid_drawdown_pct", Help: "Current drawdown from peak value"},
	)

	RiskGateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grid_risk_gate_rejections_total", Help: "Risk-gate vetoes by cause"},
		[]string{"reason"},
	)

	MatchingFillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grid_matching_fills_total", Help: "Matching engine fills by order type"},
		[]string{"type"},
	)

	OptimiserEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grid_optimiser_evaluations_total", Help: "Optimiser evaluations by strategy"},
		[]string{"strategy"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "grid_circuit_breaker_state", Help: "0=closed 1=half-open 2=open"},
		[]string{"dependency"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		TradesTotal,
		EquityUSD,
		DrawdownPct,
		RiskGateRejectionsTotal,
		MatchingFillsTotal,
		OptimiserEvaluationsTotal,
		CircuitBreakerState,
	)
}

// IncSignal records a signal event for a side ("buy"/"sell").
func IncSignal(side string) { SignalsTotal.WithLabelValues(side).Inc() }

// IncTrade records a trade outcome ("win"/"loss"/"open").
func IncTrade(result string) { TradesTotal.WithLabelValues(result).Inc() }

// SetEquity publishes the current mark-to-market equity.
func SetEquity(usd float64) { EquityUSD.Set(usd) }

// SetDrawdown publishes the current drawdown fraction.
func SetDrawdown(pct float64) { DrawdownPct.Set(pct) }

// IncRiskGateRejection records a risk-gate veto by cause.
func IncRiskGateRejection(reason string) { RiskGateRejectionsTotal.WithLabelValues(reason).Inc() }

// IncMatchingFill records a matching-engine fill by order type.
func IncMatchingFill(orderType string) { MatchingFillsTotal.WithLabelValues(orderType).Inc() }

// IncOptimiserEvaluation records one optimiser evaluation by strategy name.
func IncOptimiserEvaluation(strategy string) { OptimiserEvaluationsTotal.WithLabelValues(strategy).Inc() }

// SetCircuitBreakerState publishes a dependency's breaker state (0/1/2).
func SetCircuitBreakerState(dependency string, state float64) {
	CircuitBreakerState.WithLabelValues(dependency).Set(state)
}
