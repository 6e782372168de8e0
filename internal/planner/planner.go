// Package planner implements the Subscription Planner (C8): computing the
// set of upstream candle streams the orchestrator must open from the
// routing declared by every registered strategy instance.
package planner

import (
	"errors"

	"signal-engine-core/internal/strategy"
)

// ErrNoSubscriptions is returned when no registered instance declares any
// symbol/timeframe routing, leaving nothing for the orchestrator to stream.
var ErrNoSubscriptions = errors.New("planner: no required subscriptions")

// RequiredSubscriptions computes, for each timeframe any instance declares,
// the union of symbols that timeframe must be streamed for.
func RequiredSubscriptions(instances []strategy.Instance) (map[string][]string, error) {
	seen := make(map[string]map[string]bool)

	for _, inst := range instances {
		for _, tf := range inst.Timeframes() {
			if seen[tf] == nil {
				seen[tf] = make(map[string]bool)
			}
			for _, sym := range inst.Symbols() {
				seen[tf][sym] = true
			}
		}
	}

	if len(seen) == 0 {
		return nil, ErrNoSubscriptions
	}

	out := make(map[string][]string, len(seen))
	for tf, symbols := range seen {
		list := make([]string, 0, len(symbols))
		for sym := range symbols {
			list = append(list, sym)
		}
		out[tf] = list
	}
	return out, nil
}
