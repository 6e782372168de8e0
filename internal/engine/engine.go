// Package engine implements the Strategy Engine (C5): the gate sequence
// that routes a candle to registered strategy instances, evaluates them
// against a history window, and enriches, persists, and dispatches the
// resulting signal.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal-engine-core/internal/candle"
	"signal-engine-core/internal/catalog"
	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/clock"
	"signal-engine-core/pkg/observability"
)

// HistoryFetcher is C2's read surface, as the engine needs it.
type HistoryFetcher interface {
	Fetch(ctx context.Context, symbol, timeframe string, bars int, source string) (candle.History, error)
	LatestTimestamp(ctx context.Context, symbol, timeframe string) (time.Time, bool, error)
}

// SignalPersister is C3's write surface, as the engine needs it.
type SignalPersister interface {
	Persist(ctx context.Context, sig *strategy.Signal, mode string) error
}

// StrategyLister is the catalog read the engine uses at initialize.
type StrategyLister interface {
	ListActive(ctx context.Context, mode string) ([]catalog.StrategyConfig, error)
}

// Forwarder is C6's surface, as the engine dispatches to it.
type Forwarder interface {
	Execute(ctx context.Context, sig *strategy.Signal, mode string) error
}

// Hub is C7's surface, as the engine dispatches to it.
type Hub interface {
	Broadcast(sig *strategy.Signal)
}

// Engine is C5: it owns the live strategy instances and the bookkeeping
// maps that back the startup, de-duplication, and cooldown gates.
type Engine struct {
	registry *strategy.Registry
	history  HistoryFetcher
	signals  SignalPersister
	catalog  StrategyLister
	forward  Forwarder
	hub      Hub
	clock    clock.Clock
	metrics  *observability.EngineMetrics

	cooldown    time.Duration
	tradingMode string

	mu              sync.Mutex
	instances       []strategy.Instance
	warmupRequired  map[string]int
	warmupComplete  map[string]bool
	startupLatestTS map[string]time.Time
	lastCandleTS    map[string]time.Time
	lastSignalTS    map[string]time.Time
}

// New builds an Engine. cooldown is the minimum spacing between signals
// from the same (strategy, symbol); tradingMode, when non-empty, restricts
// initialize()'s strategy load to rows matching it.
func New(
	registry *strategy.Registry,
	history HistoryFetcher,
	signals SignalPersister,
	strategyCatalog StrategyLister,
	forward Forwarder,
	hub Hub,
	clk clock.Clock,
	metrics *observability.EngineMetrics,
	cooldown time.Duration,
	tradingMode string,
) *Engine {
	return &Engine{
		registry:    registry,
		history:     history,
		signals:     signals,
		catalog:     strategyCatalog,
		forward:     forward,
		hub:         hub,
		clock:       clk,
		metrics:     metrics,
		cooldown:    cooldown,
		tradingMode: tradingMode,
	}
}

// Initialize loads active strategy rows, builds their instances, and
// primes the bookkeeping maps (I1). Returns ErrNoActiveStrategies if no
// row loaded a working instance.
func (e *Engine) Initialize(ctx context.Context) error {
	configs, err := e.catalog.ListActive(ctx, e.tradingMode)
	if err != nil {
		return err
	}

	instances := make([]strategy.Instance, 0, len(configs))
	warmupRequired := make(map[string]int)
	warmupComplete := make(map[string]bool)

	for _, cfg := range configs {
		inst, err := e.registry.Create(cfg.Name, cfg.ID, cfg.Version, cfg.Symbols, cfg.Timeframes, cfg.Mode, cfg.InitPeriods, cfg.Params)
		if err != nil {
			var unknown *strategy.UnknownStrategy
			if errors.As(err, &unknown) {
				observability.LogEvent(ctx, "warn", "unknown_strategy", map[string]any{"name": cfg.Name, "strategy_id": cfg.ID})
				continue
			}
			return err
		}

		instances = append(instances, inst)
		for _, sym := range inst.Symbols() {
			for _, tf := range inst.Timeframes() {
				key := strategySymbolTimeframeKey(inst.ID(), sym, tf)
				warmupRequired[key] = cfg.InitPeriods
				warmupComplete[key] = cfg.InitPeriods == 0
			}
		}
	}

	if len(instances) == 0 {
		return ErrNoActiveStrategies
	}

	startupLatestTS := make(map[string]time.Time)
	seen := make(map[string]bool)
	for _, inst := range instances {
		for _, sym := range inst.Symbols() {
			for _, tf := range inst.Timeframes() {
				key := symbolTimeframeKey(sym, tf)
				if seen[key] {
					continue
				}
				seen[key] = true
				ts, ok, err := e.history.LatestTimestamp(ctx, sym, tf)
				if err != nil {
					return err
				}
				if ok {
					startupLatestTS[key] = ts
				}
			}
		}
	}

	for _, inst := range instances {
		lookback := lookbackBars(inst.Timeframes()[0], strategy.ParamInt(inst.Params(), "lookback_days", 0))
		bars := requiredBars(inst.InitPeriods(), lookback)
		source := strategy.ParamString(inst.Params(), "history_source", "primary")

		for _, sym := range inst.Symbols() {
			for _, tf := range inst.Timeframes() {
				history, err := e.history.Fetch(ctx, sym, tf, bars, source)
				if err != nil {
					observability.LogEvent(ctx, "warn", "warmup_fetch_failed", map[string]any{
						"strategy_id": inst.ID(), "symbol": sym, "timeframe": tf, "error": err,
					})
					continue
				}
				if len(history) >= inst.InitPeriods() {
					warmupComplete[strategySymbolTimeframeKey(inst.ID(), sym, tf)] = true
				}
			}
		}
	}

	e.mu.Lock()
	e.instances = instances
	e.warmupRequired = warmupRequired
	e.warmupComplete = warmupComplete
	e.startupLatestTS = startupLatestTS
	e.lastCandleTS = make(map[string]time.Time)
	e.lastSignalTS = make(map[string]time.Time)
	e.mu.Unlock()

	return nil
}

// Instances returns the engine's current live instance snapshot, used by
// the Subscription Planner to compute required upstream streams.
func (e *Engine) Instances() []strategy.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances
}

// ReloadStrategies clears the live instance map and bookkeeping, then
// re-runs steps 1-4 of Initialize. Candles already mid-evaluation keep the
// instance snapshot they started with, since they hold their own local
// reference rather than re-reading e.instances mid-flight.
func (e *Engine) ReloadStrategies(ctx context.Context) error {
	return e.Initialize(ctx)
}

// ProcessCandle runs the gate sequence in §4.5 against every registered
// instance, in registration order, stopping at the first instance that
// emits a signal.
func (e *Engine) ProcessCandle(ctx context.Context, c candle.Candle) (*strategy.Signal, error) {
	e.mu.Lock()
	instances := e.instances
	e.mu.Unlock()

	hasTS := !c.Timestamp.IsZero()

	for _, inst := range instances {
		if !routeMatches(inst, c) {
			continue
		}

		traceCtx := observability.WithTrace(ctx, observability.TraceContext{
			StrategyID: inst.ID(),
			Symbol:     c.Symbol,
		})

		if hasTS {
			if !inst.InSession(c.Timestamp) {
				observability.LogGateReject(traceCtx, "session", "outside_session_window")
				e.metrics.GateRejections.Inc("gate", "session")
				continue
			}

			e.mu.Lock()
			if latest, ok := e.startupLatestTS[symbolTimeframeKey(c.Symbol, c.Timeframe)]; ok && !c.Timestamp.After(latest) {
				e.mu.Unlock()
				observability.LogGateReject(traceCtx, "startup", "at_or_before_startup_latest_ts")
				e.metrics.GateRejections.Inc("gate", "startup")
				continue
			}

			ckey := strategySymbolTimeframeKey(inst.ID(), c.Symbol, c.Timeframe)
			if last, ok := e.lastCandleTS[ckey]; ok && !c.Timestamp.After(last) {
				e.mu.Unlock()
				observability.LogGateReject(traceCtx, "dedup", "at_or_before_last_candle_ts")
				e.metrics.GateRejections.Inc("gate", "dedup")
				continue
			}
			e.lastCandleTS[ckey] = c.Timestamp
			e.mu.Unlock()
		}

		// Cooldown gate (6) keys off wall time and last_signal_ts, not the
		// candle's own timestamp, so it applies even when gates 3-5 were
		// skipped for lacking a parseable ts.
		e.mu.Lock()
		skey := strategySymbolKey(inst.ID(), c.Symbol)
		last, ok := e.lastSignalTS[skey]
		e.mu.Unlock()
		if ok && clock.From(ctx).Now().Sub(last) < e.cooldown {
			observability.LogGateReject(traceCtx, "cooldown", "within_cooldown_window")
			e.metrics.GateRejections.Inc("gate", "cooldown")
			continue
		}

		lookback := lookbackBars(c.Timeframe, strategy.ParamInt(inst.Params(), "lookback_days", 0))
		bars := requiredBars(inst.InitPeriods(), lookback)
		source := strategy.ParamString(inst.Params(), "history_source", "primary")

		history, err := e.history.Fetch(ctx, c.Symbol, c.Timeframe, bars, source)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		wkey := strategySymbolTimeframeKey(inst.ID(), c.Symbol, c.Timeframe)
		if len(history) < inst.InitPeriods() {
			e.warmupComplete[wkey] = false
			e.mu.Unlock()
			observability.LogGateReject(traceCtx, "warmup", "insufficient_history")
			e.metrics.GateRejections.Inc("gate", "warmup")
			continue
		}
		e.warmupComplete[wkey] = true
		e.mu.Unlock()

		sig, err := inst.OnCandle(c, history)
		if err != nil {
			return nil, err
		}
		if sig == nil {
			continue
		}

		sig.StrategyID = inst.ID()
		sig.StrategyVersion = inst.Version()
		sig.Symbol = c.Symbol
		sig.Timeframe = c.Timeframe
		if sig.Meta == nil {
			sig.Meta = map[string]string{}
		}
		if _, ok := sig.Meta["mode"]; !ok && inst.Mode() != "" {
			sig.Meta["mode"] = inst.Mode()
		}
		if sig.IdempotencyKey == "" {
			sig.IdempotencyKey = observability.NewIdempotencyKey()
		}
		if sig.CorrelationID == "" {
			sig.CorrelationID = observability.NewCorrelationID()
		}

		traceCtx = observability.WithTrace(ctx, observability.TraceContext{
			CorrelationID:  sig.CorrelationID,
			IdempotencyKey: sig.IdempotencyKey,
			StrategyID:     sig.StrategyID,
			Symbol:         sig.Symbol,
		})

		e.mu.Lock()
		e.lastSignalTS[strategySymbolKey(inst.ID(), c.Symbol)] = clock.From(ctx).Now()
		e.mu.Unlock()

		if err := e.signals.Persist(traceCtx, sig, inst.Mode()); err != nil {
			observability.LogEvent(traceCtx, "error", "persist_failed", map[string]any{"error": err})
			return nil, err
		}

		observability.LogSignal(traceCtx, sig.IdempotencyKey, string(sig.Side), sig.Confidence)
		e.metrics.SignalsEmitted.Inc("strategy_id", sig.StrategyID, "side", string(sig.Side))

		e.hub.Broadcast(sig)
		go e.forward.Execute(traceCtx, sig, inst.Mode()) //nolint:errcheck // forwarder logs its own outcome

		return sig, nil
	}

	return nil, nil
}

func routeMatches(inst strategy.Instance, c candle.Candle) bool {
	symbolOK := false
	for _, s := range inst.Symbols() {
		if s == c.Symbol {
			symbolOK = true
			break
		}
	}
	if !symbolOK {
		return false
	}
	for _, tf := range inst.Timeframes() {
		if tf == c.Timeframe {
			return true
		}
	}
	return false
}
