package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/rs/zerolog/log"

	"think-alike/internal/game"
)

// RedisPublisher publishes room messages on Redis pub/sub so every server
// instance can relay them to its own websocket subscribers.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, room *game.Room) error {
	data, err := encode(event, room)
	if err != nil {
		return err
	}
	if err := p.client.WithContext(ctx).Publish(channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Relay forwards every room-* message from Redis into hub until ctx is done.
func Relay(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.PSubscribe(Channel("*"))
	defer pubsub.Close()

	if _, err := pubsub.Receive(); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	log.Info().Str("pattern", Channel("*")).Msg("redis relay subscribed")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
