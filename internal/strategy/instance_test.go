package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/candle"
)

func mkCandle(symbol string, ts time.Time, close float64) candle.Candle {
	return candle.Candle{
		Symbol:    symbol,
		Timeframe: "5m",
		Timestamp: ts,
		Open:      decimal.NewFromFloat(close),
		High:      decimal.NewFromFloat(close),
		Low:       decimal.NewFromFloat(close),
		Close:     decimal.NewFromFloat(close),
		Volume:    decimal.NewFromFloat(1),
	}
}

func mkHistory(n int) candle.History {
	hist := make(candle.History, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range hist {
		hist[i] = candle.Bar{Timestamp: base.Add(time.Duration(i) * 5 * time.Minute), Close: 100, High: 101, Low: 99, Volume: 10}
	}
	return hist
}

// alwaysEnterDecide always opens a long when flat, never exits on its own.
func alwaysEnterDecide(bar candle.Bar, history candle.History, pos *Position) *Decision {
	if pos != nil {
		return nil
	}
	return &Decision{Side: SideLong, Price: bar.Close, Confidence: 0.9}
}

func TestInsufficientDataGuard(t *testing.T) {
	b := NewBase(Config{MinBars: 50}, alwaysEnterDecide)
	sig, err := b.OnCandle(mkCandle("BTC", time.Now(), 100), mkHistory(10))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestSessionFilterRejectsOutsideWindow(t *testing.T) {
	start := 14 * time.Hour
	end := 18 * time.Hour
	b := NewBase(Config{MinBars: 1, SessionStart: &start, SessionEnd: &end}, alwaysEnterDecide)

	outside := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	sig, err := b.OnCandle(mkCandle("BTC", outside, 100), mkHistory(5))
	require.NoError(t, err)
	assert.Nil(t, sig)

	inside := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	sig, err = b.OnCandle(mkCandle("BTC", inside, 100), mkHistory(5))
	require.NoError(t, err)
	require.NotNil(t, sig)
}

func TestPositionDisciplineNoDoubleEntry(t *testing.T) {
	b := NewBase(Config{MinBars: 1}, alwaysEnterDecide)
	history := mkHistory(5)

	sig1, err := b.OnCandle(mkCandle("BTC", time.Now(), 100), history)
	require.NoError(t, err)
	require.NotNil(t, sig1)
	assert.Equal(t, SideLong, sig1.Side)

	// Second candle: decide would try to enter again, but a position is
	// already open — scaffolding must suppress it (P8).
	sig2, err := b.OnCandle(mkCandle("BTC", time.Now(), 101), history)
	require.NoError(t, err)
	assert.Nil(t, sig2)
}

func TestPositionDisciplineStopLossExit(t *testing.T) {
	b := NewBase(Config{MinBars: 1, StopLossPct: 0.02}, alwaysEnterDecide)
	history := mkHistory(5)

	entryTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sig1, err := b.OnCandle(mkCandle("BTC", entryTime, 100), history)
	require.NoError(t, err)
	require.NotNil(t, sig1)
	assert.Equal(t, SideLong, sig1.Side)

	// Price drops more than 2% -> stop-loss exit, opposite side, with
	// exit_reason populated (P8: exit, never a second entry).
	laterTime := entryTime.Add(5 * time.Minute)
	sig2, err := b.OnCandle(mkCandle("BTC", laterTime, 97), history)
	require.NoError(t, err)
	require.NotNil(t, sig2)
	assert.Equal(t, SideShort, sig2.Side)
	assert.Equal(t, "stop_loss", sig2.Meta["exit_reason"])

	assert.Nil(t, b.Position("BTC"))
}

func TestPositionDisciplineMaxHoldExit(t *testing.T) {
	maxHold := 10 * time.Minute
	b := NewBase(Config{MinBars: 1, MaxHold: maxHold}, alwaysEnterDecide)
	history := mkHistory(5)

	entryTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := b.OnCandle(mkCandle("BTC", entryTime, 100), history)
	require.NoError(t, err)

	withinHold := entryTime.Add(5 * time.Minute)
	sig, err := b.OnCandle(mkCandle("BTC", withinHold, 100), history)
	require.NoError(t, err)
	assert.Nil(t, sig)

	pastHold := entryTime.Add(11 * time.Minute)
	sig, err = b.OnCandle(mkCandle("BTC", pastHold, 100), history)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "max_hold", sig.Meta["exit_reason"])
}

func TestPositionPerSymbolIndependence(t *testing.T) {
	b := NewBase(Config{MinBars: 1}, alwaysEnterDecide)
	history := mkHistory(5)

	sigBTC, err := b.OnCandle(mkCandle("BTC", time.Now(), 100), history)
	require.NoError(t, err)
	require.NotNil(t, sigBTC)

	sigETH, err := b.OnCandle(mkCandle("ETH", time.Now(), 100), history)
	require.NoError(t, err)
	require.NotNil(t, sigETH, "a position held on BTC must not block entries on ETH")
}
