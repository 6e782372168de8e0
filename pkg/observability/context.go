package observability

import "context"

type contextKey string

const (
	correlationIDKey  contextKey = "correlation_id"
	idempotencyKeyKey contextKey = "idempotency_key"
	strategyIDKey     contextKey = "strategy_id"
	symbolKey         contextKey = "symbol"
)

// TraceContext carries the identifiers that correlate a candle through
// gating, evaluation, persistence and forwarding.
type TraceContext struct {
	CorrelationID  string
	IdempotencyKey string
	StrategyID     string
	Symbol         string
}

// WithTrace attaches a TraceContext to ctx.
func WithTrace(ctx context.Context, tc TraceContext) context.Context {
	if tc.CorrelationID != "" {
		ctx = context.WithValue(ctx, correlationIDKey, tc.CorrelationID)
	}
	if tc.IdempotencyKey != "" {
		ctx = context.WithValue(ctx, idempotencyKeyKey, tc.IdempotencyKey)
	}
	if tc.StrategyID != "" {
		ctx = context.WithValue(ctx, strategyIDKey, tc.StrategyID)
	}
	if tc.Symbol != "" {
		ctx = context.WithValue(ctx, symbolKey, tc.Symbol)
	}
	return ctx
}

// TraceFromContext reads back the TraceContext set by WithTrace.
func TraceFromContext(ctx context.Context) TraceContext {
	tc := TraceContext{}
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		tc.CorrelationID = v
	}
	if v, ok := ctx.Value(idempotencyKeyKey).(string); ok {
		tc.IdempotencyKey = v
	}
	if v, ok := ctx.Value(strategyIDKey).(string); ok {
		tc.StrategyID = v
	}
	if v, ok := ctx.Value(symbolKey).(string); ok {
		tc.Symbol = v
	}
	return tc
}

// WithSymbol attaches just the symbol, useful for upstream stages that
// haven't yet assigned a correlation/idempotency pair.
func WithSymbol(ctx context.Context, symbol string) context.Context {
	if symbol == "" {
		return ctx
	}
	return context.WithValue(ctx, symbolKey, symbol)
}
