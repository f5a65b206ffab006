package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventLogWorker tails the Redis events channel and logs every docket
// event seen, including those published by other instances. It returns when
// ctx is cancelled.
func StartEventLogWorker(ctx context.Context, client *redis.Client, channel string, logger *zap.Logger) {
	if client == nil || channel == "" {
		return
	}
	sub := client.Subscribe(ctx, channel)
	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				logEvent(logger, msg.Payload)
			}
		}
	}()
	logger.Info("event log worker started", zap.String("channel", channel))
}

func logEvent(logger *zap.Logger, payload string) {
	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("undecodable event", zap.Error(err))
		return
	}
	logger.Info("docket event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("request_id", event.RequestID),
		zap.String("actor_id", event.Actor.ID))
}
