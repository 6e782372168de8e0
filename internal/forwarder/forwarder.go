// Package forwarder implements the Execution Forwarder (C6): translating an
// emitted Signal into an OrderRequest and invoking the execution service,
// with circuit breaking and a linear backoff retry policy that fails fast
// on permanent errors.
package forwarder

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"signal-engine-core/internal/execservice"
	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/observability"
	"signal-engine-core/pkg/resilience"
)

// Forwarder implements engine.Forwarder.
type Forwarder struct {
	client     execservice.Client
	breaker    *resilience.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	metrics    *observability.EngineMetrics
}

// New builds a Forwarder. maxRetries is the total number of call attempts
// (not additional retries) and retryDelay drives the linear backoff policy:
// attempt N waits retryDelay*N before the next try.
func New(client execservice.Client, maxRetries int, retryDelay time.Duration, metrics *observability.EngineMetrics) *Forwarder {
	cfg := resilience.DefaultConfig("execservice")
	// Permanent application errors (bad request, precondition failure) say
	// nothing about the execution service's health, so they shouldn't count
	// toward tripping the breaker the way a timeout or 5xx does.
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || isPermanent(err)
	}
	return &Forwarder{
		client:     client,
		breaker:    resilience.New(cfg),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		metrics:    metrics,
	}
}

// Execute builds the OrderRequest for sig and invokes the execution
// service, making at most maxRetries total attempts with linear backoff
// between them and failing fast on ErrInvalidArgument / ErrFailedPrecondition.
func (f *Forwarder) Execute(ctx context.Context, sig *strategy.Signal, mode string) error {
	req := buildOrderRequest(sig, mode)

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		start := time.Now()
		_, err := f.breaker.ExecuteWithContext(ctx, func() (any, error) {
			return f.client.ExecuteSignal(ctx, req)
		})
		duration := time.Since(start)
		observability.LogForward(ctx, attempt, duration, err)
		f.metrics.ForwardLatency.ObserveDuration(duration)

		if err == nil {
			return nil
		}
		lastErr = err

		if isPermanent(err) {
			f.metrics.ForwardFailures.Inc("class", "permanent")
			return err
		}
		if attempt == f.maxRetries {
			break
		}

		f.metrics.ForwardRetries.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.retryDelay * time.Duration(attempt)):
		}
	}

	f.metrics.ForwardFailures.Inc("class", "retries_exhausted")
	return lastErr
}

func isPermanent(err error) bool {
	return errors.Is(err, execservice.ErrInvalidArgument) || errors.Is(err, execservice.ErrFailedPrecondition)
}

func buildOrderRequest(sig *strategy.Signal, mode string) execservice.OrderRequest {
	signalID := sig.IdempotencyKey
	if signalID == "" {
		signalID = observability.NewIdempotencyKey()
	}
	correlationID := sig.CorrelationID
	if correlationID == "" {
		correlationID = observability.NewCorrelationID()
	}

	price, _ := sig.Price.Float64()
	orderType := "limit"
	if price == 0 {
		orderType = "market"
	}

	riskChecks := make(map[string]string, len(sig.Meta))
	for k, v := range sig.Meta {
		riskChecks[k] = v
	}

	return execservice.OrderRequest{
		SignalID:        signalID,
		StrategyID:      sig.StrategyID,
		StrategyVersion: sig.StrategyVersion,
		Symbol:          sig.Symbol,
		Side:            normalizeSide(string(sig.Side)),
		Size:            sizeFromMeta(sig.Meta),
		Price:           price,
		OrderType:       orderType,
		Mode:            execservice.ParseMode(mode),
		RiskChecks:      riskChecks,
		Trace: execservice.TraceEnvelope{
			CorrelationID:  correlationID,
			IdempotencyKey: signalID,
			SourceService:  "signal-service",
			Timestamp:      time.Now().UTC(),
		},
	}
}

func normalizeSide(side string) string {
	switch strings.ToLower(side) {
	case "buy":
		return "long"
	case "sell":
		return "short"
	default:
		return side
	}
}

func sizeFromMeta(meta map[string]string) float64 {
	v, ok := meta["size"]
	if !ok {
		return 0
	}
	size, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return size
}
