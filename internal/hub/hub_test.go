package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/observability"
)

func newTestHub(queueSize int) *Hub {
	return New(queueSize, observability.NewEngineMetrics(observability.NewRegistry()))
}

func TestBroadcastDeliversToMatchingSubscriber(t *testing.T) {
	h := newTestHub(4)
	sub := h.Register(Filter{Symbols: []string{"BTC-USD"}})
	defer h.Unregister(sub)

	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD", StrategyID: "s1"})

	require.Len(t, sub.Send, 1)
}

func TestBroadcastSkipsNonMatchingSubscriber(t *testing.T) {
	h := newTestHub(4)
	sub := h.Register(Filter{Symbols: []string{"ETH-USD"}})
	defer h.Unregister(sub)

	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD", StrategyID: "s1"})

	assert.Len(t, sub.Send, 0)
}

func TestBroadcastEmptyFilterMatchesAny(t *testing.T) {
	h := newTestHub(4)
	sub := h.Register(Filter{})
	defer h.Unregister(sub)

	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD", StrategyID: "s1"})
	h.Broadcast(&strategy.Signal{Symbol: "ETH-USD", StrategyID: "s2"})

	assert.Len(t, sub.Send, 2)
}

func TestBroadcastDropsNewestWhenQueueFull(t *testing.T) {
	h := newTestHub(1)
	sub := h.Register(Filter{})
	defer h.Unregister(sub)

	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD"})
	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD"})
	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD"})

	assert.Len(t, sub.Send, 1)
	assert.Equal(t, int64(2), sub.Dropped())
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := newTestHub(4)
	sub := h.Register(Filter{})
	h.Unregister(sub)

	assert.Equal(t, 0, h.SubscriberCount())
	h.Broadcast(&strategy.Signal{Symbol: "BTC-USD"})
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := newTestHub(4)
	sub := h.Register(Filter{})
	h.Unregister(sub)
	h.Unregister(sub)
}
