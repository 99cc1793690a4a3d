package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a prefixed unique id
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GenerateOrderNumber derives a human-facing order number from the creation
// time, widened with a random suffix so two orders created in the same
// millisecond still get distinct numbers.
func GenerateOrderNumber(at time.Time) string {
	ms := at.UnixMilli()
	suffix := uuid.New().String()[:4]

	return fmt.Sprintf("ORD-%05d-%s", ms%100000, suffix)
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
