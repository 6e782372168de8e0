package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"signal-engine-core/internal/candle"
)

// Instance is the capability type the engine drives: an identity, its
// declared routing (symbols/timeframes), and the single evaluation entry
// point. No inheritance is required — concrete strategies are built by
// handing a DecideFunc to NewBase.
type Instance interface {
	ID() string
	Name() string
	Version() string
	Symbols() []string
	Timeframes() []string
	Mode() string
	InitPeriods() int
	Params() map[string]any
	// InSession reports whether ts falls within this instance's declared
	// session window, if any. Instances with no session window always
	// report true. The engine calls this ahead of the warmup history
	// fetch to reject out-of-session candles cheaply (§4.5 gate 3).
	InSession(ts time.Time) bool
	OnCandle(c candle.Candle, history candle.History) (*Signal, error)
}

// RegimeFunc classifies the current market regime from a bar and its
// history window, used only for the optional regime-reversal exit rule.
type RegimeFunc func(bar candle.Bar, history candle.History) string

// DecideFunc is the strategy-specific core: given the current bar, its
// history window, and the instance's open position for this symbol (nil if
// flat), return a Decision or nil for no action. decide MUST NOT mutate
// history, and MUST NOT attempt a new entry while pos is non-nil — Base
// suppresses such attempts, but well-behaved strategies check pos
// themselves.
type DecideFunc func(bar candle.Bar, history candle.History, pos *Position) *Decision

// Config declares a strategy instance's identity, routing, and the generic
// scaffolding parameters (session window, exit rules) layered around
// DecideFunc.
type Config struct {
	ID          string
	Name        string
	Version     string
	Symbols     []string
	Timeframes  []string
	Params      map[string]any
	Mode        string
	MinBars     int
	InitPeriods int

	// SessionStart/SessionEnd are UTC time-of-day offsets from midnight. A
	// nil value disables the session filter.
	SessionStart *time.Duration
	SessionEnd   *time.Duration

	// StopLossPct, as a fraction of entry price (e.g. 0.02 == 2%). Zero
	// disables the stop-loss exit rule.
	StopLossPct float64
	// MaxHold bounds how long a position may remain open. Zero disables
	// the max-hold exit rule.
	MaxHold time.Duration
	// Regime, if set, drives the regime-reversal exit rule: a position is
	// closed when the classified regime diverges from the one recorded at
	// entry.
	Regime RegimeFunc
}

// Base implements Instance, applying the insufficient-data guard, session
// filter, and position discipline described in the strategy contract around
// a strategy-specific DecideFunc.
type Base struct {
	cfg    Config
	decide DecideFunc

	mu        sync.Mutex
	positions map[string]*Position
}

// NewBase builds a Base strategy instance from cfg and a core decision
// function.
func NewBase(cfg Config, decide DecideFunc) *Base {
	return &Base{
		cfg:       cfg,
		decide:    decide,
		positions: make(map[string]*Position),
	}
}

func (b *Base) ID() string             { return b.cfg.ID }
func (b *Base) Name() string           { return b.cfg.Name }
func (b *Base) Version() string        { return b.cfg.Version }
func (b *Base) Symbols() []string      { return b.cfg.Symbols }
func (b *Base) Timeframes() []string   { return b.cfg.Timeframes }
func (b *Base) Mode() string           { return b.cfg.Mode }
func (b *Base) InitPeriods() int       { return b.cfg.InitPeriods }
func (b *Base) Params() map[string]any { return b.cfg.Params }

// Position returns a copy of the instance's current position for symbol, or
// nil if flat. Exposed for tests and observability, not for mutation.
func (b *Base) Position(symbol string) *Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return nil
	}
	cp := *pos
	return &cp
}

// OnCandle implements the Strategy Instance contract (§4.4): insufficient
// data guard, session filter, generic exit-rule evaluation, then the
// strategy's own DecideFunc, with position discipline enforced around it.
func (b *Base) OnCandle(c candle.Candle, history candle.History) (*Signal, error) {
	if len(history) < b.cfg.MinBars {
		return nil, nil
	}
	bar := c.ToBar()
	if !b.inSession(bar.Timestamp) {
		return nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.positions[c.Symbol]

	if pos != nil {
		if reason, triggered := b.checkExit(bar, history, pos); triggered {
			sig := b.buildExit(c, bar, pos, reason)
			delete(b.positions, c.Symbol)
			return sig, nil
		}
	}

	decision := b.decide(bar, history, pos)
	if decision == nil {
		return nil, nil
	}

	isExit := decision.ExitReason != ""
	if pos != nil && !isExit {
		// A second entry attempt while already in position. Position
		// discipline forbids this; suppress it rather than trust the
		// strategy.
		return nil, nil
	}

	meta := decision.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	if isExit {
		meta["exit_reason"] = decision.ExitReason
	}

	sig := &Signal{
		Side:       decision.Side,
		Price:      decimal.NewFromFloat(decision.Price),
		Confidence: decision.Confidence,
		Meta:       meta,
		Symbol:     c.Symbol,
		Timeframe:  c.Timeframe,
	}

	if isExit {
		delete(b.positions, c.Symbol)
	} else {
		regime := ""
		if b.cfg.Regime != nil {
			regime = b.cfg.Regime(bar, history)
		}
		b.positions[c.Symbol] = &Position{
			Side:        decision.Side,
			EntryPrice:  decision.Price,
			EntryTS:     bar.Timestamp,
			EntryRegime: regime,
		}
	}

	return sig, nil
}

func (b *Base) buildExit(c candle.Candle, bar candle.Bar, pos *Position, reason string) *Signal {
	return &Signal{
		Side:       pos.Side.Opposite(),
		Price:      decimal.NewFromFloat(bar.Close),
		Confidence: 1.0,
		Meta:       map[string]string{"exit_reason": reason},
		Symbol:     c.Symbol,
		Timeframe:  c.Timeframe,
	}
}

// checkExit evaluates the generic exit rules (stop-loss, max-hold, regime
// reversal) that apply to every position regardless of which strategy
// opened it.
func (b *Base) checkExit(bar candle.Bar, history candle.History, pos *Position) (string, bool) {
	if b.cfg.StopLossPct > 0 {
		switch pos.Side {
		case SideLong:
			if bar.Close <= pos.EntryPrice*(1-b.cfg.StopLossPct) {
				return "stop_loss", true
			}
		case SideShort:
			if bar.Close >= pos.EntryPrice*(1+b.cfg.StopLossPct) {
				return "stop_loss", true
			}
		}
	}
	if b.cfg.MaxHold > 0 && bar.Timestamp.Sub(pos.EntryTS) >= b.cfg.MaxHold {
		return "max_hold", true
	}
	if b.cfg.Regime != nil && pos.EntryRegime != "" {
		current := b.cfg.Regime(bar, history)
		if current != "" && current != pos.EntryRegime {
			return "regime_reversal", true
		}
	}
	return "", false
}

// InSession implements Instance.
func (b *Base) InSession(ts time.Time) bool {
	return b.inSession(ts)
}

func (b *Base) inSession(ts time.Time) bool {
	if b.cfg.SessionStart == nil || b.cfg.SessionEnd == nil {
		return true
	}
	midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	tod := ts.Sub(midnight)
	return tod >= *b.cfg.SessionStart && tod <= *b.cfg.SessionEnd
}
