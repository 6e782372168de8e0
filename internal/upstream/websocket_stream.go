package upstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"signal-engine-core/internal/candle"
	"signal-engine-core/pkg/observability"
)

// wireCandle is the raw shape a candle arrives in over the wire. Timestamp
// is untyped because upstream feeds disagree on representation (epoch
// seconds/millis, ISO strings, {seconds,nanos} pairs); candle.Normalize
// resolves that heterogeneity.
type wireCandle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Timestamp any             `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// WebSocketStream implements Stream over a single upstream WebSocket
// endpoint that multiplexes every timeframe/symbol combination on one
// connection, reconnecting with backoff on drop.
type WebSocketStream struct {
	url string
}

// NewWebSocketStream targets url, a ws:// or wss:// endpoint.
func NewWebSocketStream(url string) *WebSocketStream {
	return &WebSocketStream{url: url}
}

// Subscribe opens a dedicated upstream connection for this subscription and
// returns a channel of candles matching timeframe and symbols. Reconnects
// transparently on connection loss until ctx is cancelled.
func (s *WebSocketStream) Subscribe(ctx context.Context, timeframe string, symbols []string) (<-chan candle.Candle, error) {
	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = true
	}

	out := make(chan candle.Candle, 256)
	go s.run(ctx, timeframe, wanted, out)
	return out, nil
}

func (s *WebSocketStream) run(ctx context.Context, timeframe string, wanted map[string]bool, out chan<- candle.Candle) {
	defer close(out)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			observability.LogEvent(ctx, "warn", "upstream_connect_failed", map[string]any{"error": err, "timeframe": timeframe})
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = time.Second
		s.readLoop(ctx, conn, timeframe, wanted, out)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *WebSocketStream) readLoop(ctx context.Context, conn *websocket.Conn, timeframe string, wanted map[string]bool, out chan<- candle.Candle) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			observability.LogEvent(ctx, "warn", "upstream_read_failed", map[string]any{"error": err, "timeframe": timeframe})
			return
		}

		var wire wireCandle
		if err := json.Unmarshal(raw, &wire); err != nil {
			observability.LogEvent(ctx, "warn", "upstream_decode_failed", map[string]any{"error": err})
			continue
		}
		if wire.Timeframe != timeframe || !wanted[wire.Symbol] {
			continue
		}

		ts, ok := candle.Normalize(wire.Timestamp)
		if !ok {
			ts = time.Time{}
		}

		c := candle.Candle{
			Symbol:    wire.Symbol,
			Timeframe: wire.Timeframe,
			Timestamp: ts,
			Open:      wire.Open,
			High:      wire.High,
			Low:       wire.Low,
			Close:     wire.Close,
			Volume:    wire.Volume,
		}

		select {
		case out <- c:
		case <-ctx.Done():
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	doubled := current * 2
	if doubled > max {
		return max
	}
	return doubled
}
