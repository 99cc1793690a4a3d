package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types recorded through the outbox
const (
	EventTypeOrderCreated       = "order_created"
	EventTypeOrderStatusChanged = "order_status_changed"
	EventTypeOrderPaid          = "order_paid"
	EventTypeReminderSent       = "reminder_sent"
)

// OutboxMessage is a row in the transactional outbox awaiting publication
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the event envelope serialized into the payload
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOrderOutboxMessage(orderID, eventType string, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: orderID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:          eventType,
		Payload:            payload,
		AggregateType:      "order",
		AggregateID:        orderID,
		CreatedAt:          time.Now().UTC(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent records that a new order was taken in
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderOutboxMessage(order.ID, EventTypeOrderCreated, order)
}

// NewOrderStatusChangedEvent records a workflow transition
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOrderOutboxMessage(order.ID, EventTypeOrderStatusChanged, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"old_status":   oldStatus,
		"new_status":   order.Status,
	})
}

// NewOrderPaidEvent records a payment flag update
func NewOrderPaidEvent(order *Order) (*OutboxMessage, error) {
	return newOrderOutboxMessage(order.ID, EventTypeOrderPaid, map[string]interface{}{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"is_paid":        order.IsPaid,
		"payment_method": order.PaymentMethod,
		"total":          order.Total,
	})
}

// NewReminderSentEvent records a confirmed automatic reminder delivery
func NewReminderSentEvent(order *Order, threshold ReminderThreshold) (*OutboxMessage, error) {
	return newOrderOutboxMessage(order.ID, EventTypeReminderSent, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"threshold":    threshold.String(),
		"event_kind":   threshold.EventKind(),
	})
}
