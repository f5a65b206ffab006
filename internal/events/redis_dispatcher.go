package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher is the subset of the go-redis client used for fan-out.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// redisDispatcher delivers events to local subscribers and then publishes
// them as JSON on a Redis channel for other processes.
type redisDispatcher struct {
	local   Dispatcher
	client  RedisPublisher
	channel string
	logger  *zap.Logger
}

// NewRedisDispatcher wraps local with Redis pub/sub fan-out. A nil client
// returns local unchanged.
func NewRedisDispatcher(local Dispatcher, client RedisPublisher, channel string, logger *zap.Logger) Dispatcher {
	if client == nil || channel == "" {
		return local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisDispatcher{local: local, client: client, channel: channel, logger: logger}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	localErr := d.local.Publish(ctx, event)

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Join(localErr, fmt.Errorf("encode event: %w", err))
	}
	if err := d.client.Publish(ctx, d.channel, body).Err(); err != nil {
		d.logger.Warn("redis publish failed",
			zap.String("channel", d.channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return errors.Join(localErr, fmt.Errorf("publish event: %w", err))
	}
	return localErr
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}
