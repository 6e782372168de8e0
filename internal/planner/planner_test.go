package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/candle"
	"signal-engine-core/internal/strategy"
)

func instanceWith(symbols, timeframes []string) strategy.Instance {
	return strategy.NewBase(strategy.Config{
		ID: "x", Name: "x", Symbols: symbols, Timeframes: timeframes,
	}, func(bar candle.Bar, history candle.History, pos *strategy.Position) *strategy.Decision { return nil })
}

func TestRequiredSubscriptionsUnionsSymbolsPerTimeframe(t *testing.T) {
	instances := []strategy.Instance{
		instanceWith([]string{"BTC-USD"}, []string{"5m"}),
		instanceWith([]string{"ETH-USD", "BTC-USD"}, []string{"5m"}),
		instanceWith([]string{"SOL-USD"}, []string{"1h"}),
	}

	subs, err := RequiredSubscriptions(instances)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC-USD", "ETH-USD"}, subs["5m"])
	assert.ElementsMatch(t, []string{"SOL-USD"}, subs["1h"])
}

func TestRequiredSubscriptionsEmptyIsError(t *testing.T) {
	_, err := RequiredSubscriptions(nil)
	assert.ErrorIs(t, err, ErrNoSubscriptions)
}
