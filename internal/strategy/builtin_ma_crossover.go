package strategy

import "signal-engine-core/internal/candle"

// NewMACrossoverFactory builds the "ma_crossover" built-in: a trend-following
// strategy on golden/death cross alignment of three simple moving averages,
// with confidence boosted by volume confirmation and trend separation.
func NewMACrossoverFactory() Factory {
	return func(id, version string, symbols, timeframes []string, mode string, initPeriods int, params map[string]any) (Instance, error) {
		fast := ParamInt(params, "fast_period", 20)
		mid := ParamInt(params, "mid_period", 50)
		slow := ParamInt(params, "slow_period", 200)
		stopLossPct := ParamFloat(params, "stop_loss_pct", 0.02)

		minBars := slow
		if initPeriods > minBars {
			minBars = initPeriods
		}

		cfg := Config{
			ID:          id,
			Name:        "ma_crossover",
			Version:     version,
			Symbols:     symbols,
			Timeframes:  timeframes,
			Params:      params,
			Mode:        mode,
			MinBars:     minBars,
			InitPeriods: initPeriods,
			StopLossPct: stopLossPct,
		}

		decide := func(bar candle.Bar, history candle.History, pos *Position) *Decision {
			if pos != nil {
				// In position: this strategy relies entirely on the
				// generic stop-loss exit rule, not a signal of its own.
				return nil
			}

			closes := closesOf(history)
			sma20 := sma(closes, fast)
			sma50 := sma(closes, mid)
			sma200 := sma(closes, slow)
			if sma20 == 0 || sma50 == 0 || sma200 == 0 {
				return nil
			}

			avgVol := avgVolume(history, fast)

			switch {
			case sma20 > sma50 && sma50 > sma200 && bar.Close > sma20:
				confidence := 0.65
				if bar.Volume > avgVol {
					confidence += 0.08
				}
				if (sma20-sma200)/sma200 > 0.05 {
					confidence += 0.10
				}
				if confidence > 1.0 {
					confidence = 1.0
				}
				return &Decision{
					Side:       SideLong,
					Price:      bar.Close,
					Confidence: confidence,
					Meta:       map[string]string{"reason": "golden_cross"},
				}
			case sma20 < sma50 && sma50 < sma200 && bar.Close < sma20:
				confidence := 0.65
				if bar.Volume > avgVol {
					confidence += 0.08
				}
				if (sma200-sma20)/sma200 > 0.05 {
					confidence += 0.10
				}
				if confidence > 1.0 {
					confidence = 1.0
				}
				return &Decision{
					Side:       SideShort,
					Price:      bar.Close,
					Confidence: confidence,
					Meta:       map[string]string{"reason": "death_cross"},
				}
			}
			return nil
		}

		return NewBase(cfg, decide), nil
	}
}

func closesOf(history candle.History) []float64 {
	out := make([]float64, len(history))
	for i, b := range history {
		out[i] = b.Close
	}
	return out
}

func sma(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

func avgVolume(history candle.History, period int) float64 {
	if period <= 0 || len(history) < period {
		period = len(history)
	}
	if period == 0 {
		return 0
	}
	sum := 0.0
	window := history[len(history)-period:]
	for _, b := range window {
		sum += b.Volume
	}
	return sum / float64(period)
}

func ParamInt(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func ParamFloat(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

func ParamString(params map[string]any, key string, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}
