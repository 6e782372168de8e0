package engine

import "strings"

// lookbackBars converts a per-strategy lookback_days parameter into a bar
// count for the given timeframe, matching the original engine's
// per-unit conversion (minutes/hours per day for intraday timeframes,
// calendar days for daily ones).
func lookbackBars(timeframe string, lookbackDays int) int {
	if lookbackDays <= 0 {
		return 0
	}

	unit := timeframe[len(timeframe)-1:]
	amountStr := strings.TrimSuffix(timeframe, unit)
	amount := atoiOrDefault(amountStr, 1)
	if amount <= 0 {
		amount = 1
	}

	switch unit {
	case "m":
		barsPerDay := (24 * 60) / amount
		return lookbackDays * barsPerDay
	case "h":
		barsPerDay := 24 / amount
		if barsPerDay <= 0 {
			barsPerDay = 1
		}
		return lookbackDays * barsPerDay
	case "d":
		return lookbackDays / amount
	default:
		return lookbackDays
	}
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// requiredBars is the fetch size used at warmup priming and at gate 7:
// the larger of a 200-bar floor, the instance's declared init_periods, and
// its lookback-derived bar count.
func requiredBars(initPeriods, lookback int) int {
	bars := 200
	if initPeriods > bars {
		bars = initPeriods
	}
	if lookback > bars {
		bars = lookback
	}
	return bars
}
