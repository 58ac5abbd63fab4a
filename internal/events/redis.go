package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends attendance events to a Redis stream. An alternative
// to AMQP for deployments already running Redis.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher connects to Redis and verifies connectivity.
func NewRedisPublisher(ctx context.Context, addr, stream string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

// Publish appends one event to the stream.
func (p *RedisPublisher) Publish(ctx context.Context, event AttendanceEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal attendance event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": body},
	}).Err()
	if err != nil {
		return fmt.Errorf("append to stream %s: %w", p.stream, err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
