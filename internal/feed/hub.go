// Package feed streams relay activity to operator dashboards over WebSocket.
package feed

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ashureev/modmail/internal/domain"
)

const subscriberBuffer = 32

// Hub fans activity out to subscribers. Publish never blocks: a subscriber
// that falls behind loses events.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	backlog *Backlog
}

type subscriber struct {
	ch      chan domain.Activity
	dropped atomic.Int64
}

// NewHub creates a hub remembering the last backlogSize events.
func NewHub(backlogSize int) *Hub {
	return &Hub{
		subs:    make(map[*subscriber]struct{}),
		backlog: NewBacklog(backlogSize),
	}
}

// Publish records a and delivers it to every subscriber.
func (h *Hub) Publish(a domain.Activity) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Registration holds the write lock, so an event is either in a new
	// subscriber's backlog or on its channel, never both.
	h.backlog.Add(a)
	for s := range h.subs {
		select {
		case s.ch <- a:
		default:
			n := s.dropped.Add(1)
			slog.Debug("Activity subscriber lagging, event dropped", "kind", a.Kind, "dropped", n)
		}
	}
}

// subscribe registers a subscriber and returns the backlog at that moment.
func (h *Hub) subscribe() (*subscriber, []domain.Activity) {
	s := &subscriber{ch: make(chan domain.Activity, subscriberBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	backlog := h.backlog.Snapshot()
	h.mu.Unlock()
	slog.Info("Activity subscriber registered", "subscribers", h.Subscribers())
	return s, backlog
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	slog.Info("Activity subscriber unregistered", "subscribers", h.Subscribers())
}

// Recent returns the backlog, oldest first.
func (h *Hub) Recent() []domain.Activity {
	return h.backlog.Snapshot()
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
