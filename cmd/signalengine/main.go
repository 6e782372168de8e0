// Command signalengine runs the streaming signal engine service: it
// consumes upstream candles, evaluates registered trading strategies, and
// persists, broadcasts, and forwards the resulting signals.
package main

import (
	"context"
	"log"
	"os"

	"signal-engine-core/internal/catalog"
	"signal-engine-core/internal/config"
	"signal-engine-core/internal/engine"
	"signal-engine-core/internal/execservice"
	"signal-engine-core/internal/forwarder"
	"signal-engine-core/internal/hub"
	"signal-engine-core/internal/orchestrator"
	"signal-engine-core/internal/strategy"
	"signal-engine-core/internal/upstream"
	"signal-engine-core/pkg/clock"
	"signal-engine-core/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(clock.With(context.Background(), clock.SystemClock{}))
	defer cancel()

	db, err := catalog.Connect(ctx, cfg.DatabaseURL, 5, cfg.ForwarderRetryDelay)
	if err != nil {
		log.Fatalf("catalog connect: %v", err)
	}

	registry := strategy.NewRegistry()
	registry.Register("ma_crossover", strategy.NewMACrossoverFactory())
	registry.Register("atr_breakout", strategy.NewATRBreakoutFactory())

	metricsRegistry := observability.NewRegistry()
	metrics := observability.NewEngineMetrics(metricsRegistry)

	historyStore := catalog.NewHistoryStore(db)
	signalStore := catalog.NewSignalStore(db)
	strategyCatalog := catalog.NewStrategyCatalog(db)

	execClient := execservice.NewHTTPClient(cfg.ExecutionserviceAddr)
	fwd := forwarder.New(execClient, cfg.ForwarderMaxRetries, cfg.ForwarderRetryDelay, metrics)

	h := hub.New(cfg.HubSubscriberQueueSize, metrics)

	eng := engine.New(registry, historyStore, signalStore, strategyCatalog, fwd, h, clock.SystemClock{}, metrics, cfg.SignalCooldown, cfg.TradingMode)

	stream := upstream.NewWebSocketStream(cfg.DataserviceAddr)

	orch := orchestrator.New(eng, h, stream, metricsRegistry, cfg.MetricsAddr)
	orch.AddCloser(db.Close)

	if err := orch.Run(ctx); err != nil {
		observability.LogEvent(ctx, "error", "orchestrator_exited", map[string]any{"error": err})
		os.Exit(1)
	}
}
