package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Event is a real-time notification fanned out to connected clients
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventBus fans events out to interested subscribers. Publishing is
// best-effort; a lost event never fails the business operation.
type EventBus interface {
	Publish(ctx context.Context, channel string, event Event)
}

// RedisEventBus publishes events over Redis pub/sub
type RedisEventBus struct {
	client *redis.Client
}

// NewRedisEventBus creates an event bus over the given Redis client.
// A nil client yields a no-op bus.
func NewRedisEventBus(client *redis.Client) EventBus {
	return &RedisEventBus{client: client}
}

// Publish marshals and publishes the event; failures are logged and dropped
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event Event) {
	if b.client == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("event bus: failed to marshal %s event: %v", event.Type, err)
		return
	}

	if err := b.client.Publish(ctx, channel, body).Err(); err != nil {
		log.Printf("event bus: failed to publish %s event: %v", event.Type, err)
	}
}
