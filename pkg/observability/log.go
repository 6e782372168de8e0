package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// LogEvent emits one structured JSON line, merging the ctx's TraceContext
// into the payload ahead of the caller-supplied fields.
func LogEvent(ctx context.Context, level string, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	tc := TraceFromContext(ctx)
	if tc.CorrelationID != "" {
		payload["correlation_id"] = tc.CorrelationID
	}
	if tc.IdempotencyKey != "" {
		payload["idempotency_key"] = tc.IdempotencyKey
	}
	if tc.StrategyID != "" {
		payload["strategy_id"] = tc.StrategyID
	}
	if tc.Symbol != "" {
		payload["symbol"] = tc.Symbol
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogGateReject records a candle dropped at one of the engine's gates.
func LogGateReject(ctx context.Context, gate string, reason string) {
	LogEvent(ctx, "info", "gate_reject", map[string]any{
		"gate":   gate,
		"reason": reason,
	})
}

// LogSignal records a signal emitted by the engine.
func LogSignal(ctx context.Context, signalID, side string, confidence float64) {
	LogEvent(ctx, "info", "signal_emitted", map[string]any{
		"signal_id":  signalID,
		"side":       side,
		"confidence": confidence,
	})
}

// LogForward records the outcome of an execution-service forward attempt.
func LogForward(ctx context.Context, attempt int, duration time.Duration, err error) {
	fields := map[string]any{
		"attempt":    attempt,
		"latency_ms": duration.Milliseconds(),
		"success":    err == nil,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogEvent(ctx, "info", "forward_attempt", fields)
}

func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}
