package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// Subscription receives the events of one session.
type Subscription struct {
	ID    string
	Token string

	ch  chan Event
	hub *Hub
}

// Events returns the channel events are delivered on. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unsubscribes from the hub.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub is the in-process topic map from session token to subscribers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[string]*Subscription)}
}

// Subscribe registers a subscriber for the events of a session.
func (h *Hub) Subscribe(token string) *Subscription {
	sub := &Subscription{
		ID:    uuid.New().String(),
		Token: token,
		ch:    make(chan Event, constants.SubscriberBufferSize),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[token]
	if !ok {
		subs = make(map[string]*Subscription)
		h.topics[token] = subs
	}
	subs[sub.ID] = sub

	log.Debug().
		Str("token", utils.RedactToken(token)).
		Str("subscriber", sub.ID).
		Msg("Realtime subscriber added")
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[sub.Token]
	if !ok {
		return
	}
	if _, ok := subs[sub.ID]; !ok {
		return
	}

	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.topics, sub.Token)
	}
	close(sub.ch)
}

// Publish delivers an event to the local subscribers of its session.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Deliver(event)
	return nil
}

// Deliver hands an event to every local subscriber of its session without
// blocking. A subscriber whose buffer is full misses the event.
// It returns how many subscribers received it.
func (h *Hub) Deliver(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.topics[event.Token] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			log.Warn().
				Str("token", utils.RedactToken(event.Token)).
				Str("subscriber", sub.ID).
				Str("event", event.Type).
				Msg("Realtime subscriber buffer full, event dropped")
		}
	}
	return delivered
}

// SubscriberCount returns how many local subscribers a session has.
func (h *Hub) SubscriberCount(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[token])
}
