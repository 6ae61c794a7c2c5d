// SPDX-License-Identifier: MIT

// Package hub fans typed push events out to connected subscribers. It is the
// server half of the real-time channel the client dispatcher consumes.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/metrics"
)

// subscriberBuffer bounds each subscriber's queue. A subscriber that cannot
// drain fast enough loses events rather than stalling the publisher; clients
// recover by refreshing, so a dropped invalidation is not data loss.
const subscriberBuffer = 16

// Hub routes events to subscribers by recipient identity and manager scope.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscription is one subscriber's handle. Close is idempotent and must be
// called on every exit path; the channel is closed by the hub.
type Subscription struct {
	id         string
	userID     int64
	managerial bool

	hub       *Hub
	ch        chan Event
	closeOnce sync.Once
}

// C returns the subscriber's event channel. It is closed when the
// subscription (or the hub) closes.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s.id)
		close(s.ch)
		metrics.DecEventSubscribers()
	})
}

// Subscribe registers a subscriber for the given user. Managerial
// subscribers additionally receive manager-scope events (break_update).
func (h *Hub) Subscribe(userID int64, managerial bool) *Subscription {
	sub := &Subscription{
		id:         uuid.New().String(),
		userID:     userID,
		managerial: managerial,
		hub:        h,
		ch:         make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		sub.closeOnce.Do(func() {})
		return sub
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	metrics.IncEventSubscribers()
	return sub
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Publish stamps the event with an ID and timestamp (when absent) and
// delivers it to every matching subscriber. Sends never block: a full
// subscriber queue drops the event and counts it.
func (h *Hub) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if h.matches(sub, ev) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	logger := log.WithComponent("hub")
	for _, sub := range targets {
		select {
		case sub.ch <- ev:
			metrics.IncEventDispatched(string(ev.Type))
		default:
			metrics.IncEventDropped()
			logger.Warn().
				Str(log.FieldEvent, string(ev.Type)).
				Int64(log.FieldUserID, sub.userID).
				Msg("subscriber queue full, event dropped")
		}
	}
}

// matches implements the routing rules: identity-addressed events go to the
// addressed user's connections, break_update goes to the manager scope.
func (h *Hub) matches(sub *Subscription, ev Event) bool {
	switch ev.Type {
	case EventForceLogout, EventBreakWarning:
		return sub.userID == ev.UserID
	case EventBreakUpdate:
		return sub.managerial
	default:
		return false
	}
}

// Close shuts the hub down, closing every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce.Do(func() {
			close(sub.ch)
			metrics.DecEventSubscribers()
		})
	}
}

// Subscribers returns the number of connected subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
