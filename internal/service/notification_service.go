package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	vendors    repository.VendorRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, vendors repository.VendorRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		vendors:    vendors,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventDocketCreated, n.handleDocketCreated)
	n.dispatcher.Subscribe(events.EventDocketTransitioned, n.handleDocketTransitioned)
	n.dispatcher.Subscribe(events.EventDocketVendorIssued, n.handleVendorIssued)
	n.dispatcher.Subscribe(events.EventDocketProgressPosted, n.handleProgressPosted)
}

func (n *NotificationService) handleDocketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("DocketCreated", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleDocketTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("DocketTransitioned", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handleVendorIssued emails the vendor the docket was issued to.
func (n *NotificationService) handleVendorIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DocketVendorIssuedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("DocketVendorIssued", zap.String("request_id", event.RequestID), zap.String("vendor_id", payload.VendorID))
	if n.vendors == nil {
		return nil
	}
	vendor, err := n.vendors.GetByID(ctx, payload.VendorID)
	if err != nil {
		n.logger.Warn("vendor lookup failed", zap.String("vendor_id", payload.VendorID), zap.Error(err))
		return err
	}
	n.sendEmailNotificationStub(ctx, vendor.Email, event)
	return nil
}

func (n *NotificationService) handleProgressPosted(ctx context.Context, event events.Event) error {
	n.logger.Info("DocketProgressPosted", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, to string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(to) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
