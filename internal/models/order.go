package models

import (
	"time"
)

// OrderStatus represents the workflow state of an order
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "Received"
	OrderStatusWashing   OrderStatus = "Washing"
	OrderStatusIroning   OrderStatus = "Ironing"
	OrderStatusReady     OrderStatus = "Ready"
	OrderStatusDelivered OrderStatus = "Delivered"
)

// IsValid reports whether s is one of the known workflow states
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusWashing, OrderStatusIroning,
		OrderStatusReady, OrderStatusDelivered:
		return true
	}
	return false
}

// OrderType classifies an order; Urgent is informational only
type OrderType string

const (
	OrderTypeNormal OrderType = "Normal"
	OrderTypeUrgent OrderType = "Urgent"
)

// PaymentMethod is how a paid order was settled
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "Cash"
	PaymentMethodCard     PaymentMethod = "Card"
	PaymentMethodTransfer PaymentMethod = "Transfer"
)

// Order is a laundry order with its pricing snapshot and notification history
type Order struct {
	ID               string        `db:"id" json:"id"`
	OrderNumber      string        `db:"order_number" json:"order_number"`
	CustomerName     string        `db:"customer_name" json:"customer_name"`
	CustomerPhone    string        `db:"customer_phone" json:"customer_phone"`
	OrderType        OrderType     `db:"order_type" json:"order_type"`
	Items            ItemList      `db:"items" json:"items"`
	Subtotal         float64       `db:"subtotal" json:"subtotal"`
	Tax              float64       `db:"tax" json:"tax"`
	Total            float64       `db:"total" json:"total"`
	CustomAdjustment float64       `db:"custom_adjustment" json:"custom_adjustment"`
	IsPaid           bool          `db:"is_paid" json:"is_paid"`
	PaymentMethod    PaymentMethod `db:"payment_method" json:"payment_method"`
	Status           OrderStatus   `db:"status" json:"status"`
	Notified1h       bool          `db:"notified_1h" json:"notified_1h"`
	Notified24h      bool          `db:"notified_24h" json:"notified_24h"`
	Notified48h      bool          `db:"notified_48h" json:"notified_48h"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// NewOrder creates an order in the Received state with all notification
// flags cleared. Money fields are expected to be filled in by the caller
// from the pricing calculator before persisting.
func NewOrder(customerName, customerPhone string, orderType OrderType, items []LaundryItem, adjustment float64) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:               GenerateID("ord"),
		OrderNumber:      GenerateOrderNumber(now),
		CustomerName:     customerName,
		CustomerPhone:    customerPhone,
		OrderType:        orderType,
		Items:            items,
		CustomAdjustment: adjustment,
		PaymentMethod:    PaymentMethodCash,
		Status:           OrderStatusReceived,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsTerminal reports whether the order has reached its terminal status;
// terminal orders never receive automatic reminders
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered
}

// HoursSinceCreation returns the wall-clock age of the order in hours
func (o *Order) HoursSinceCreation(now time.Time) float64 {
	return now.Sub(o.CreatedAt).Hours()
}

// Notified reports whether the reminder for the given threshold was
// already confirmed sent
func (o *Order) Notified(t ReminderThreshold) bool {
	switch t {
	case Threshold1h:
		return o.Notified1h
	case Threshold24h:
		return o.Notified24h
	case Threshold48h:
		return o.Notified48h
	default:
		return false
	}
}

// MarkNotified sets the flag for the given threshold. Flags are monotonic;
// there is no way to clear one.
func (o *Order) MarkNotified(t ReminderThreshold) {
	switch t {
	case Threshold1h:
		o.Notified1h = true
	case Threshold24h:
		o.Notified24h = true
	case Threshold48h:
		o.Notified48h = true
	}
}

// DueThreshold returns the single reminder threshold that should fire for
// this order at the given time, evaluated in descending order so an old
// never-notified order gets exactly one reminder, not a backlog. The second
// return value is false when nothing qualifies.
func (o *Order) DueThreshold(now time.Time) (ReminderThreshold, bool) {
	if o.IsTerminal() {
		return 0, false
	}

	hoursPassed := o.HoursSinceCreation(now)

	for _, t := range ThresholdsDescending {
		if hoursPassed >= t.Hours() && !o.Notified(t) {
			return t, true
		}
	}

	return 0, false
}
