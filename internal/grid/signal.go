package grid

import (
	"github.com/cryptomegabyte/gridsim/internal/model"
)

// DetectSignals walks series once against a fixed grid (the caller is
// responsible for only ever passing levels built once per run, since
// moving levels mid-walk would make detection non-deterministic) and
// emits one signal per bar at most, buy levels checked before sell
// levels, with a last-triggered-level memo so a price sitting at a level
// for several bars does not flood signals.
func DetectSignals(series model.PriceSeries, levels Levels) []model.SignalEvent {
	var events []model.SignalEvent
	var lastTriggered *float64

	for i, pt := range series.Points {
		p := pt.Close
		triggered := false

		for _, b := range levels.BuyLevels {
			if p <= b && (lastTriggered == nil || *lastTriggered != b) {
				events = append(events, model.SignalEvent{
					Timestamp:   pt.Timestamp,
					Index:       i,
					Side:        model.Buy,
					SignalPrice: p,
					GridLevel:   b,
				})
				bCopy := b
				lastTriggered = &bCopy
				triggered = true
				break
			}
		}
		if triggered {
			continue
		}
		for _, s := range levels.SellLevels {
			if p >= s && (lastTriggered == nil || *lastTriggered != s) {
				events = append(events, model.SignalEvent{
					Timestamp:   pt.Timestamp,
					Index:       i,
					Side:        model.Sell,
					SignalPrice: p,
					GridLevel:   s,
				})
				sCopy := s
				lastTriggered = &sCopy
				break
			}
		}
	}
	return events
}
