// Package strategy implements the strategy registration contract (C1), the
// strategy-instance scaffolding every concrete strategy shares (C4), and a
// handful of concrete built-in strategies.
package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a Signal or Position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
	SideFlat  Side = "flat"
)

// Opposite returns the opposite directional side, used to build exit
// signals from an open position.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideFlat
	}
}

// Signal is the output of a strategy evaluation, enriched by the engine
// before persistence and fan-out.
type Signal struct {
	Side            Side
	Price           decimal.Decimal
	Confidence      float64
	Meta            map[string]string
	StrategyID      string
	StrategyVersion string
	Symbol          string
	Timeframe       string
	IdempotencyKey  string
	CorrelationID   string
}

// Position is the state a Strategy Instance holds for one symbol while it
// has an open entry.
type Position struct {
	Side        Side
	EntryPrice  float64
	EntryTS     time.Time
	EntryRegime string
}

// Decision is what a concrete strategy's core logic returns for one candle.
// A nil Decision means no action. The scaffolding (Base.OnCandle) turns a
// Decision into a Signal, applying position discipline around it.
type Decision struct {
	Side       Side
	Price      float64
	Confidence float64
	Meta       map[string]string
	// ExitReason, when set, marks this Decision as a strategy-chosen exit:
	// it is copied into the signal's meta["exit_reason"] and the open
	// position is cleared. The scaffolding's own exits (stop-loss, max-hold,
	// regime reversal) are built directly and never pass through a Decision.
	ExitReason string
}
