// Package upstream models the external market-data collaborator the
// per-timeframe consumer tasks read candles from, plus one concrete
// WebSocket adapter.
package upstream

import (
	"context"

	"signal-engine-core/internal/candle"
)

// Stream is the collaborator C9's per-timeframe consumer tasks depend on:
// a channel of normalized candles for one timeframe, filtered to symbols.
// The channel closes when ctx is cancelled or the upstream connection is
// exhausted.
type Stream interface {
	Subscribe(ctx context.Context, timeframe string, symbols []string) (<-chan candle.Candle, error)
}
