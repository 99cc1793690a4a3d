package models

import (
	"fmt"
	"time"
)

// EventKind identifies what a notification is about
type EventKind string

const (
	EventReceived   EventKind = "RECEIVED"
	EventReady      EventKind = "READY"
	EventReminder1h EventKind = "REMINDER_1H"
	EventReminder24 EventKind = "REMINDER_24H"
	EventReminder48 EventKind = "REMINDER_48H"

	// EventReminderManual is an operator-triggered reminder outside the
	// threshold schedule
	EventReminderManual EventKind = "REMINDER_MANUAL"
)

// IsValid reports whether k is one of the known event kinds
func (k EventKind) IsValid() bool {
	switch k {
	case EventReceived, EventReady, EventReminder1h, EventReminder24,
		EventReminder48, EventReminderManual:
		return true
	}
	return false
}

// ReminderThreshold is an elapsed-time boundary after order creation that
// triggers an automated reminder
type ReminderThreshold int

const (
	Threshold1h  ReminderThreshold = 1
	Threshold24h ReminderThreshold = 24
	Threshold48h ReminderThreshold = 48
)

// ThresholdsDescending is the evaluation order for the reminder scan:
// first match wins, so an old order receives only its highest due reminder.
var ThresholdsDescending = []ReminderThreshold{Threshold48h, Threshold24h, Threshold1h}

// Hours returns the threshold boundary in hours
func (t ReminderThreshold) Hours() float64 {
	return float64(t)
}

// Duration returns the threshold boundary as a time.Duration
func (t ReminderThreshold) Duration() time.Duration {
	return time.Duration(t) * time.Hour
}

// EventKind maps the threshold to its notification event kind
func (t ReminderThreshold) EventKind() EventKind {
	switch t {
	case Threshold1h:
		return EventReminder1h
	case Threshold24h:
		return EventReminder24
	default:
		return EventReminder48
	}
}

// String returns the short threshold label
func (t ReminderThreshold) String() string {
	return fmt.Sprintf("%dh", int(t))
}
