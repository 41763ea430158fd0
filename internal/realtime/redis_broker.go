package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// RedisBroker relays events between server processes over Redis pub/sub.
// Publish sends an event to the session's channel; Run receives the events
// of every session and hands them to the local hub.
type RedisBroker struct {
	client redis.UniversalClient
	hub    *Hub

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRedisBroker creates a broker relaying into hub.
func NewRedisBroker(client redis.UniversalClient, hub *Hub) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		ready:  make(chan struct{}),
	}
}

// Channel returns the pub/sub channel of a session.
func Channel(token string) string {
	return constants.EventChannelPrefix + token
}

// Publish sends an event to every process subscribed to the session.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(event.Token), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Ready is closed once Run has subscribed to the event channels.
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

// Run relays events from Redis into the local hub until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, constants.EventChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", constants.EventChannelPattern, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	log.Info().Str("pattern", constants.EventChannelPattern).Msg("Realtime relay subscribed")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Realtime relay stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("realtime relay channel closed")
			}
			b.relay(msg)
		}
	}
}

func (b *RedisBroker) relay(msg *redis.Message) {
	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.Warn().Err(err).Str("channel", msg.Channel).Msg("Discarding malformed realtime event")
		return
	}
	if event.Token == "" {
		event.Token = strings.TrimPrefix(msg.Channel, constants.EventChannelPrefix)
	}
	b.hub.Deliver(event)
}
