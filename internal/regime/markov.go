// Package regime classifies recent price behaviour into {TrendingUp,
// TrendingDown, Ranging} and maintains a Markov transition matrix over
// observed regime changes: an additive-smoothed 3-state chain with
// entropy-based confidence.
package regime

import (
	"math"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// Thresholds configures the window classifier.
type Thresholds struct {
	TrendThreshold      float64 // default 0.005
	VolatilityThreshold float64 // default 0.02
}

// DefaultThresholds returns the standard 0.5%/2% thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{TrendThreshold: 0.005, VolatilityThreshold: 0.02}
}

// Classify returns the regime for a window of close prices. A window
// below 5 points is not an error: it yields Ranging.
func Classify(closes []float64, th Thresholds) model.MarketRegime {
	if len(closes) < 5 {
		return model.Ranging
	}
	first, last := closes[0], closes[len(closes)-1]
	if first == 0 {
		return model.Ranging
	}
	r := (last - first) / first

	mean := 0.0
	for _, p := range closes {
		mean += p
	}
	mean /= float64(len(closes))

	variance := 0.0
	for _, p := range closes {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(closes))
	v := math.Sqrt(variance)
	if mean != 0 {
		v /= mean
	}

	switch {
	case r > th.TrendThreshold && v < th.VolatilityThreshold:
		return model.TrendingUp
	case r < -th.TrendThreshold && v < th.VolatilityThreshold:
		return model.TrendingDown
	default:
		return model.Ranging
	}
}

// Prediction is the analyser's next-state estimate for the current regime.
type Prediction struct {
	Current        model.MarketRegime
	Predicted      model.MarketRegime
	Probabilities  [model.NumRegimes]float64
	Confidence     float64
	SampleSize     int
}

// Analyzer maintains the 3x3 transition matrix, updated by additive
// (Laplace) smoothing after every observed regime change.
type Analyzer struct {
	matrix          [model.NumRegimes][model.NumRegimes]float64
	counts          [model.NumRegimes][model.NumRegimes]int
	totals          [model.NumRegimes]int
	alpha           float64
	lastState       model.MarketRegime
	haveLastState   bool
	confidence      float64
	probabilities   [model.NumRegimes]float64
	haveProbabilities bool
}

// NewAnalyzer builds an analyser initialised with the symmetric prior:
// diagonal 0.6 for the trending states, 0.5 for Ranging, remainder split
// across the off-diagonals.
func NewAnalyzer(alpha float64) *Analyzer {
	a := &Analyzer{alpha: alpha}
	a.matrix[model.TrendingUp][model.TrendingUp] = 0.6
	a.matrix[model.TrendingUp][model.TrendingDown] = 0.2
	a.matrix[model.TrendingUp][model.Ranging] = 0.2

	a.matrix[model.TrendingDown][model.TrendingUp] = 0.2
	a.matrix[model.TrendingDown][model.TrendingDown] = 0.6
	a.matrix[model.TrendingDown][model.Ranging] = 0.2

	a.matrix[model.Ranging][model.TrendingUp] = 0.25
	a.matrix[model.Ranging][model.TrendingDown] = 0.25
	a.matrix[model.Ranging][model.Ranging] = 0.5
	return a
}

// TransitionMatrix returns a copy of the current 3x3 matrix.
func (a *Analyzer) TransitionMatrix() [model.NumRegimes][model.NumRegimes]float64 {
	return a.matrix
}

// Update feeds one observed regime and returns a prediction for the next
// state whenever history permits one (it always does once a state has
// been observed). On a state change it records the transition and
// re-smooths the matrix row for the prior state; between transitions
// (no change) it updates nothing.
func (a *Analyzer) Update(state model.MarketRegime) *Prediction {
	if a.haveLastState && a.lastState != state {
		a.counts[a.lastState][state]++
		a.totals[a.lastState]++
		a.resmoothRow(a.lastState)
	}
	a.lastState = state
	a.haveLastState = true
	return a.predict(state)
}

func (a *Analyzer) resmoothRow(from model.MarketRegime) {
	total := a.totals[from]
	if total == 0 {
		return
	}
	for to := model.MarketRegime(0); to < model.NumRegimes; to++ {
		count := a.counts[from][to]
		a.matrix[from][to] = (float64(count) + a.alpha) / (float64(total) + a.alpha*float64(model.NumRegimes))
	}
}

func (a *Analyzer) predict(current model.MarketRegime) *Prediction {
	row := a.matrix[current]
	a.probabilities = row
	a.haveProbabilities = true

	entropy := 0.0
	for _, p := range row {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	a.confidence = 1 - entropy/math.Log(float64(model.NumRegimes))

	predicted := model.TrendingUp
	for to := model.MarketRegime(1); to < model.NumRegimes; to++ {
		if row[to] > row[predicted] {
			predicted = to
		}
	}

	return &Prediction{
		Current:       current,
		Predicted:     predicted,
		Probabilities: row,
		Confidence:    a.confidence,
		SampleSize:    a.totals[current],
	}
}

// AdaptiveSpacing scales a base grid spacing by the analyser's current
// next-state distribution: wider when trending is likely, 1.0x
// when ranging dominates, 1.2x when the regime is uncertain.
func (a *Analyzer) AdaptiveSpacing(base float64) float64 {
	if !a.haveProbabilities {
		return base
	}
	trending := a.probabilities[model.TrendingUp] + a.probabilities[model.TrendingDown]
	ranging := a.probabilities[model.Ranging]
	switch {
	case trending > 0.6:
		return base * 1.5
	case ranging > 0.6:
		return base
	default:
		return base * 1.2
	}
}

// RiskAdjustment is a risk-scaling hint: when the regime prediction
// strongly favours a trending state at high confidence, suggest reducing
// risk 30%; when it strongly favours ranging, suggest increasing risk
// 10%. Returns (multiplier, true) only when an adjustment is suggested.
func (a *Analyzer) RiskAdjustment() (float64, bool) {
	if !a.haveProbabilities {
		return 1, false
	}
	trending := a.probabilities[model.TrendingUp] + a.probabilities[model.TrendingDown]
	ranging := a.probabilities[model.Ranging]
	switch {
	case trending > 0.7 && a.confidence > 0.6:
		return 0.7, true
	case ranging > 0.7:
		return 1.1, true
	default:
		return 1, false
	}
}

// Confidence returns the last computed confidence level.
func (a *Analyzer) Confidence() float64 { return a.confidence }
