// Package orchestrator implements the Service Orchestrator (C9): wiring the
// engine, fan-out hub, and upstream streams together, running one task per
// upstream timeframe, and coordinating graceful shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"signal-engine-core/internal/engine"
	"signal-engine-core/internal/hub"
	"signal-engine-core/internal/planner"
	"signal-engine-core/internal/upstream"
	"signal-engine-core/pkg/observability"
)

// drainGrace bounds how long Run waits for the fan-out server to drain
// in-flight connections before closing downstream resources.
const drainGrace = 5 * time.Second

// Orchestrator composes the engine, hub, and upstream stream and drives the
// process's run loop.
type Orchestrator struct {
	engine  *engine.Engine
	hub     *hub.Hub
	stream  upstream.Stream
	metrics *observability.Registry
	addr    string

	closers []func() error
}

// New builds an Orchestrator. addr is the bind address for the combined
// fan-out/metrics HTTP server.
func New(eng *engine.Engine, h *hub.Hub, stream upstream.Stream, metrics *observability.Registry, addr string) *Orchestrator {
	return &Orchestrator{engine: eng, hub: h, stream: stream, metrics: metrics, addr: addr}
}

// AddCloser registers a resource (such as the catalog connection pool) to
// be closed during shutdown, after every consumer task has stopped.
func (o *Orchestrator) AddCloser(closeFn func() error) {
	o.closers = append(o.closers, closeFn)
}

// Run initializes the engine, computes required subscriptions, starts the
// fan-out server and one consumer task per timeframe, then blocks until ctx
// is cancelled or SIGINT/SIGTERM is received, at which point it drains and
// shuts everything down.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.engine.Initialize(ctx); err != nil {
		return fmt.Errorf("orchestrator: engine initialize: %w", err)
	}

	subs, err := planner.RequiredSubscriptions(o.engine.Instances())
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", o.hub.HandleWS)
	mux.HandleFunc("/metrics", o.handleMetrics)
	mux.HandleFunc("/healthz", handleHealth)
	server := &http.Server{Addr: o.addr, Handler: mux}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for timeframe, symbols := range subs {
		wg.Add(1)
		go func(timeframe string, symbols []string) {
			defer wg.Done()
			o.consume(taskCtx, timeframe, symbols)
		}(timeframe, symbols)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		observability.LogEvent(ctx, "info", "shutdown_signal_received", nil)
	case <-ctx.Done():
	case err := <-serverErr:
		observability.LogEvent(ctx, "error", "fanout_server_failed", map[string]any{"error": err})
		runErr = fmt.Errorf("orchestrator: fan-out server: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainGrace)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	wg.Wait()

	for _, closeFn := range o.closers {
		if err := closeFn(); err != nil {
			observability.LogEvent(context.Background(), "warn", "closer_failed", map[string]any{"error": err})
		}
	}

	return runErr
}

// consume runs one upstream subscription for (timeframe, symbols) until ctx
// is cancelled or the stream closes, routing every candle into the engine.
func (o *Orchestrator) consume(ctx context.Context, timeframe string, symbols []string) {
	candles, err := o.stream.Subscribe(ctx, timeframe, symbols)
	if err != nil {
		observability.LogEvent(ctx, "error", "subscribe_failed", map[string]any{"timeframe": timeframe, "error": err})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-candles:
			if !ok {
				return
			}
			if _, err := o.engine.ProcessCandle(ctx, c); err != nil {
				observability.LogEvent(ctx, "error", "process_candle_failed", map[string]any{
					"symbol": c.Symbol, "timeframe": c.Timeframe, "error": err,
				})
			}
		}
	}
}

func (o *Orchestrator) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	o.metrics.WriteText(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
