package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/candle"
)

func risingHistory(n int, start, step float64) candle.History {
	hist := make(candle.History, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range hist {
		close := start + float64(i)*step
		hist[i] = candle.Bar{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      close,
			High:      close + 0.5,
			Low:       close - 0.5,
			Close:     close,
			Volume:    10,
		}
	}
	return hist
}

func TestMACrossoverGoldenCross(t *testing.T) {
	factory := NewMACrossoverFactory()
	inst, err := factory("id1", "v1", []string{"BTC"}, []string{"5m"}, "live", 200, nil)
	require.NoError(t, err)

	history := risingHistory(200, 50, 1)
	lastTS := history[len(history)-1].Timestamp.Add(5 * time.Minute)
	candleIn := mkCandle("BTC", lastTS, history[len(history)-1].Close+50)

	sig, err := inst.OnCandle(candleIn, history)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, SideLong, sig.Side)
}

func TestATRBreakoutOutsideSessionRejected(t *testing.T) {
	factory := NewATRBreakoutFactory()
	inst, err := factory("id2", "v1", []string{"BTC"}, []string{"5m"}, "live", 100, nil)
	require.NoError(t, err)

	history := risingHistory(120, 100, 0.1)
	outsideSession := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)
	sig, err := inst.OnCandle(mkCandle("BTC", outsideSession, 200), history)
	require.NoError(t, err)
	assert.Nil(t, sig)
}
