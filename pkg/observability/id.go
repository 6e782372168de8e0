package observability

import "github.com/google/uuid"

// NewCorrelationID generates a fresh correlation id for a candle's journey
// through the engine.
func NewCorrelationID() string {
	return uuid.NewString()
}

// NewIdempotencyKey generates a fresh idempotency key for a signal about to
// be persisted and forwarded.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
