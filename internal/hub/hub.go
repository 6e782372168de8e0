// Package hub implements the Subscriber Hub (C7): fanning out emitted
// signals to connected subscribers over a bounded per-subscriber queue,
// dropping the newest message rather than blocking the broadcaster when a
// subscriber falls behind.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"signal-engine-core/internal/strategy"
	"signal-engine-core/pkg/observability"
)

// Filter restricts a subscriber to a subset of strategies/symbols. An empty
// slice matches any value for that dimension.
type Filter struct {
	StrategyIDs []string
	Symbols     []string
}

func (f Filter) matches(sig *strategy.Signal) bool {
	if len(f.StrategyIDs) > 0 && !contains(f.StrategyIDs, sig.StrategyID) {
		return false
	}
	if len(f.Symbols) > 0 && !contains(f.Symbols, sig.Symbol) {
		return false
	}
	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Subscriber is one connected signal-stream consumer. Send is the bounded
// outbound queue; the hub writes to it without blocking, and the transport
// layer (HandleWS, or a test) drains it.
type Subscriber struct {
	ID      string
	Send    chan []byte
	filter  Filter
	dropped atomic.Int64
}

// Dropped returns the count of messages dropped from this subscriber's
// queue because it was full when the hub tried to deliver.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub fans signals out to every registered subscriber whose filter matches.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
	queueSize   int
	metrics     *observability.EngineMetrics
}

// New builds a Hub whose subscriber queues hold queueSize messages before
// the drop-newest policy kicks in.
func New(queueSize int, metrics *observability.EngineMetrics) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		subscribers: make(map[*Subscriber]bool),
		queueSize:   queueSize,
		metrics:     metrics,
	}
}

// Register adds a new subscriber matching filter and returns it. Callers
// must eventually call Unregister to release it.
func (h *Hub) Register(filter Filter) *Subscriber {
	sub := &Subscriber{
		ID:     observability.NewCorrelationID(),
		Send:   make(chan []byte, h.queueSize),
		filter: filter,
	}
	h.mu.Lock()
	h.subscribers[sub] = true
	h.mu.Unlock()
	h.metrics.ActiveSubscribers.Add(1)
	return sub
}

// Unregister removes sub and closes its queue. Safe to call more than once.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	if ok {
		delete(h.subscribers, sub)
		close(sub.Send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.ActiveSubscribers.Add(-1)
	}
}

// Broadcast delivers sig to every subscriber whose filter matches,
// dropping it for subscribers whose queue is currently full rather than
// blocking. Safe to call concurrently and non-blocking for the caller.
func (h *Hub) Broadcast(sig *strategy.Signal) {
	data, err := json.Marshal(sig)
	if err != nil {
		observability.LogEvent(context.Background(), "error", "broadcast_marshal_failed", map[string]any{"error": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		if !sub.filter.matches(sig) {
			continue
		}
		select {
		case sub.Send <- data:
		default:
			sub.dropped.Add(1)
			h.metrics.SubscriberDrops.Inc("subscriber_id", sub.ID)
		}
	}
}

// SubscriberCount returns the number of currently registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
