package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

// OrderEventsHandler consumes order events from Kafka. It feeds whatever
// sits downstream of the shop: today that is the activity log, later the
// analytics pipeline.
type OrderEventsHandler struct {
	logger logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming order events from Kafka messages
func (h *OrderEventsHandler) HandleMessage(_ context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling order event",
		"eventType", event.EventType,
		"eventID", event.EventID,
		"aggregateID", event.AggregateID,
		"occurredAt", event.OccurredAt)

	switch event.EventType {
	case models.EventTypeOrderCreated:
		return h.handleOrderCreated(event)
	case models.EventTypeOrderStatusChanged:
		return h.handleOrderStatusChanged(event)
	case models.EventTypeOrderPaid:
		return h.handleOrderPaid(event)
	case models.EventTypeReminderSent:
		return h.handleReminderSent(event)
	default:
		h.logger.Warn("Unknown event type", "eventType", event.EventType)
		return nil
	}
}

func (h *OrderEventsHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	h.logger.Info("Order taken in",
		"orderID", event.AggregateID,
		"eventID", event.EventID)

	return nil
}

func (h *OrderEventsHandler) handleOrderStatusChanged(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	oldStatus, _ := data["old_status"].(string)
	newStatus, _ := data["new_status"].(string)

	h.logger.Info("Order moved through the workflow",
		"orderID", event.AggregateID,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return nil
}

func (h *OrderEventsHandler) handleOrderPaid(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	method, _ := data["payment_method"].(string)

	h.logger.Info("Order payment recorded",
		"orderID", event.AggregateID,
		"paymentMethod", method)

	return nil
}

func (h *OrderEventsHandler) handleReminderSent(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	threshold, _ := data["threshold"].(string)

	h.logger.Info("Pickup reminder delivered",
		"orderID", event.AggregateID,
		"threshold", threshold)

	return nil
}
