package strategy

import (
	"strconv"
	"time"

	"signal-engine-core/internal/candle"
)

// NewATRBreakoutFactory builds the "atr_breakout" built-in: an ATR-band
// breakout with an EMA trend filter, restricted to a 14:00-18:00 UTC
// session window, with a max-hold exit rule instead of a fixed stop.
func NewATRBreakoutFactory() Factory {
	return func(id, version string, symbols, timeframes []string, mode string, initPeriods int, params map[string]any) (Instance, error) {
		atrLength := ParamInt(params, "atr_length", 14)
		emaFilter := ParamInt(params, "ema_filter", 50)
		atrMult := ParamFloat(params, "atr_mult", 0.5)
		maxHoldBars := ParamInt(params, "max_hold_bars", 24)

		minBars := 100
		if initPeriods > minBars {
			minBars = initPeriods
		}

		sessionStart := 14 * time.Hour
		sessionEnd := 18 * time.Hour

		// max_hold_bars is expressed in bars of the instance's own
		// timeframe; without a timeframe-duration table here the
		// scaffolding's duration-based max-hold rule is approximated by
		// assuming 5-minute bars, matching the default_timeframes config.
		maxHold := time.Duration(maxHoldBars) * 5 * time.Minute

		cfg := Config{
			ID:           id,
			Name:         "atr_breakout",
			Version:      version,
			Symbols:      symbols,
			Timeframes:   timeframes,
			Params:       params,
			Mode:         mode,
			MinBars:      minBars,
			InitPeriods:  initPeriods,
			SessionStart: &sessionStart,
			SessionEnd:   &sessionEnd,
			MaxHold:      maxHold,
		}

		decide := func(bar candle.Bar, history candle.History, pos *Position) *Decision {
			if pos != nil {
				return nil
			}
			if len(history) < atrLength+2 {
				return nil
			}

			atr := atrValue(history, atrLength)
			ema := emaValue(closesOf(history), emaFilter)
			if atr == 0 || ema == 0 {
				return nil
			}

			highs, lows := highLowWindow(history, atrLength)
			upperBand := highs + atr*atrMult
			lowerBand := lows - atr*atrMult

			prev := history[len(history)-1]
			aboveEMA := bar.Close > ema
			belowEMA := bar.Close < ema

			breakoutLong := bar.Close > upperBand && prev.Close <= upperBand
			breakoutShort := bar.Close < lowerBand && prev.Close >= lowerBand

			switch {
			case breakoutLong && aboveEMA:
				return &Decision{
					Side:       SideLong,
					Price:      bar.Close,
					Confidence: 0.7,
					Meta: map[string]string{
						"breakout_type": "atr_breakout",
						"ema_filter":    formatFloat(ema),
					},
				}
			case breakoutShort && belowEMA:
				return &Decision{
					Side:       SideShort,
					Price:      bar.Close,
					Confidence: 0.7,
					Meta: map[string]string{
						"breakout_type": "atr_breakout",
						"ema_filter":    formatFloat(ema),
					},
				}
			}
			return nil
		}

		return NewBase(cfg, decide), nil
	}
}

// atrValue computes a simple (non-smoothed) average true range over the
// last period bars of history.
func atrValue(history candle.History, period int) float64 {
	if len(history) < period+1 {
		return 0
	}
	window := history[len(history)-period-1:]
	sum := 0.0
	for i := 1; i < len(window); i++ {
		high := window[i].High
		low := window[i].Low
		prevClose := window[i-1].Close
		tr := high - low
		if hc := abs(high - prevClose); hc > tr {
			tr = hc
		}
		if lc := abs(low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period)
}

func emaValue(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	window := closes[len(closes)-period:]
	k := 2.0 / float64(period+1)
	ema := window[0]
	for _, c := range window[1:] {
		ema = c*k + ema*(1-k)
	}
	return ema
}

func highLowWindow(history candle.History, period int) (highest, lowest float64) {
	if len(history) < period {
		period = len(history)
	}
	window := history[len(history)-period:]
	highest, lowest = window[0].High, window[0].Low
	for _, b := range window[1:] {
		if b.High > highest {
			highest = b.High
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}
	return highest, lowest
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
