package optimizer

import (
	"math/rand"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

// Space describes the search dimensions parameter-set generation draws
// from. DateRanges being empty means "use the caller's single range".
type Space struct {
	GridLevelsMin, GridLevelsMax int
	GridLevelsStep               int
	GridSpacingMin, GridSpacingMax float64
	GridSpacingStep                float64
	TimeframesMinutes              []int
	MaxDrawdownLimits              []float64
	StopLosses                     []float64
	PositionSizeFractions          []float64
	DateRanges                     []DateRange
}

// DateRange is one candidate backtest window.
type DateRange struct {
	Start, End time.Time
}

// Exhaustive returns the Cartesian product of every dimension.
func Exhaustive(space Space) []model.OptimisationParameterSet {
	var levels []int
	for l := space.GridLevelsMin; l <= space.GridLevelsMax; l += step(space.GridLevelsStep) {
		levels = append(levels, l)
	}
	var spacings []float64
	for s := space.GridSpacingMin; s <= space.GridSpacingMax+1e-12; s += stepF(space.GridSpacingStep) {
		spacings = append(spacings, s)
	}

	var out []model.OptimisationParameterSet
	for _, lv := range levels {
		for _, sp := range spacings {
			for _, tf := range orDefaultInts(space.TimeframesMinutes, []int{60}) {
				for _, dd := range orDefaultFloats(space.MaxDrawdownLimits, []float64{0.15}) {
					for _, sl := range orDefaultFloats(space.StopLosses, []float64{0.05}) {
						for _, pf := range orDefaultFloats(space.PositionSizeFractions, []float64{0.25}) {
							for _, dr := range orDefaultRanges(space.DateRanges) {
								out = append(out, model.OptimisationParameterSet{
									GridLevels:       lv,
									GridSpacing:      sp,
									TimeframeMinutes: tf,
									MaxDrawdownLimit: dd,
									StopLoss:         sl,
									PositionSizeFrac: pf,
									DateRangeStart:   dr.Start,
									DateRangeEnd:     dr.End,
								})
							}
						}
					}
				}
			}
		}
	}
	return out
}

// Random draws n independent uniform samples from each dimension.
func Random(space Space, n int, rng *rand.Rand) []model.OptimisationParameterSet {
	out := make([]model.OptimisationParameterSet, 0, n)
	tfs := orDefaultInts(space.TimeframesMinutes, []int{60})
	dds := orDefaultFloats(space.MaxDrawdownLimits, []float64{0.15})
	sls := orDefaultFloats(space.StopLosses, []float64{0.05})
	pfs := orDefaultFloats(space.PositionSizeFractions, []float64{0.25})
	drs := orDefaultRanges(space.DateRanges)

	for i := 0; i < n; i++ {
		dr := drs[rng.Intn(len(drs))]
		out = append(out, model.OptimisationParameterSet{
			GridLevels:       space.GridLevelsMin + rng.Intn(space.GridLevelsMax-space.GridLevelsMin+1),
			GridSpacing:      space.GridSpacingMin + rng.Float64()*(space.GridSpacingMax-space.GridSpacingMin),
			TimeframeMinutes: tfs[rng.Intn(len(tfs))],
			MaxDrawdownLimit: dds[rng.Intn(len(dds))],
			StopLoss:         sls[rng.Intn(len(sls))],
			PositionSizeFrac: pfs[rng.Intn(len(pfs))],
			DateRangeStart:   dr.Start,
			DateRangeEnd:     dr.End,
		})
	}
	return out
}

func step(s int) int {
	if s <= 0 {
		return 1
	}
	return s
}

func stepF(s float64) float64 {
	if s <= 0 {
		return 0.01
	}
	return s
}

func orDefaultInts(v, def []int) []int {
	if len(v) == 0 {
		return def
	}
	return v
}

func orDefaultFloats(v, def []float64) []float64 {
	if len(v) == 0 {
		return def
	}
	return v
}

func orDefaultRanges(v []DateRange) []DateRange {
	if len(v) == 0 {
		return []DateRange{{}}
	}
	return v
}
