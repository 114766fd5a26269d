package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnRequested publishes ReturnRequested event
func (ep *EventPublisher) PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnResolved publishes ReturnResolved event
func (ep *EventPublisher) PublishReturnResolved(ctx context.Context, event *models.ReturnResolvedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductUpdated publishes ProductUpdated event
func (ep *EventPublisher) PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	logger           *zap.Logger
	onReturnResolved func(context.Context, *models.ReturnResolvedEvent) error
	onProductUpdated func(context.Context, *models.ProductUpdatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnReturnResolved registers a handler for ReturnResolved events
func (eh *EventHandler) OnReturnResolved(handler func(context.Context, *models.ReturnResolvedEvent) error) {
	eh.onReturnResolved = handler
}

// OnProductUpdated registers a handler for ProductUpdated events
func (eh *EventHandler) OnProductUpdated(handler func(context.Context, *models.ProductUpdatedEvent) error) {
	eh.onProductUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeReturnResolved:
		if eh.onReturnResolved != nil {
			var event models.ReturnResolvedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReturnResolved event: %w", err)
			}
			return eh.onReturnResolved(ctx, &event)
		}

	case models.EventTypeProductUpdated:
		if eh.onProductUpdated != nil {
			var event models.ProductUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductUpdated event: %w", err)
			}
			return eh.onProductUpdated(ctx, &event)
		}

	default:
		// other event types have no in-process consumers
	}

	return nil
}
