package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/candle"
	"signal-engine-core/internal/catalog"
	"signal-engine-core/internal/engine"
	"signal-engine-core/internal/hub"
	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/clock"
	"signal-engine-core/pkg/observability"
)

type fakeHistory struct{}

func (fakeHistory) Fetch(ctx context.Context, symbol, timeframe string, bars int, source string) (candle.History, error) {
	return candle.History{{Close: 1}}, nil
}
func (fakeHistory) LatestTimestamp(ctx context.Context, symbol, timeframe string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

type fakeSignals struct{}

func (fakeSignals) Persist(ctx context.Context, sig *strategy.Signal, mode string) error { return nil }

type fakeCatalog struct {
	configs []catalog.StrategyConfig
}

func (f fakeCatalog) ListActive(ctx context.Context, mode string) ([]catalog.StrategyConfig, error) {
	return f.configs, nil
}

type fakeForwarder struct{}

func (fakeForwarder) Execute(ctx context.Context, sig *strategy.Signal, mode string) error { return nil }

type fakeStream struct{}

func (fakeStream) Subscribe(ctx context.Context, timeframe string, symbols []string) (<-chan candle.Candle, error) {
	ch := make(chan candle.Candle)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestRunShutsDownCleanlyOnContextCancel(t *testing.T) {
	registry := strategy.NewRegistry()
	registry.Register("known", func(id, version string, symbols, timeframes []string, mode string, initPeriods int, params map[string]any) (strategy.Instance, error) {
		return strategy.NewBase(strategy.Config{ID: id, Name: "known", Symbols: symbols, Timeframes: timeframes}, func(candle.Bar, candle.History, *strategy.Position) *strategy.Decision { return nil }), nil
	})
	cat := fakeCatalog{configs: []catalog.StrategyConfig{
		{ID: "s1", Name: "known", Symbols: []string{"BTC-USD"}, Timeframes: []string{"5m"}},
	}}
	metricsReg := observability.NewRegistry()
	metrics := observability.NewEngineMetrics(metricsReg)
	h := hub.New(8, metrics)
	eng := engine.New(registry, fakeHistory{}, fakeSignals{}, cat, fakeForwarder{}, h, clock.SystemClock{}, metrics, time.Minute, "")

	orch := New(eng, h, fakeStream{}, metricsReg, "127.0.0.1:0")

	closed := false
	orch.AddCloser(func() error { closed = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not shut down in time")
	}
	assert.True(t, closed)
}
