package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"miniola/pkg/logger"
)

// LocalPublisher feeds events straight into the hub when no Redis is
// configured. It ignores the channel name.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, _ string, message interface{}) error {
	event, ok := message.(*Event)
	if !ok {
		return fmt.Errorf("unsupported message type %T", message)
	}
	p.hub.Deliver(event)
	return nil
}

// Subscriber is satisfied by cache.RedisCache.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBridge relays events published on a Redis channel into the local hub,
// so every server instance pushes to the users connected to it.
type RedisBridge struct {
	hub        *Hub
	subscriber Subscriber
	channel    string
	logger     *logger.Logger
}

func NewRedisBridge(hub *Hub, subscriber Subscriber, channel string, log *logger.Logger) *RedisBridge {
	return &RedisBridge{
		hub:        hub,
		subscriber: subscriber,
		channel:    channel,
		logger:     log,
	}
}

// Run blocks until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.subscriber.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.WithError(err).WithField("channel", msg.Channel).Warn("Discarding malformed ride event")
				continue
			}
			b.hub.Deliver(&event)
		}
	}
}
