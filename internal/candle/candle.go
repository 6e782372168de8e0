// Package candle defines the market bar type the engine consumes and the
// history window type strategies evaluate against, along with the
// heterogeneous-timestamp normalization step described at the engine's
// ingestion boundary.
package candle

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar as received from the upstream market-data stream.
// Prices and volume carry exact decimal precision; Timestamp is normalized
// to UTC by the caller before the candle reaches the engine.
type Candle struct {
	Symbol    string
	Timeframe string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Count     int
}

// Bar is a float64-coerced history point, the shape strategies actually see
// in their rolling window. Indicator math operates on floats; only the wire
// and storage representations need decimal.Decimal's exactness.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// ToBar coerces a Candle's decimal columns to float64 for strategy
// evaluation.
func (c Candle) ToBar() Bar {
	return Bar{
		Timestamp: c.Timestamp,
		Open:      mustFloat(c.Open),
		High:      mustFloat(c.High),
		Low:       mustFloat(c.Low),
		Close:     mustFloat(c.Close),
		Volume:    mustFloat(c.Volume),
	}
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// History is an ordered, ascending-by-timestamp window of Bars. Strategies
// must not mutate it.
type History []Bar
