package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumber_Format(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	number := GenerateOrderNumber(at)

	require.Regexp(t, regexp.MustCompile(`^ORD-\d{5}-[0-9a-f]{4}$`), number)
}

func TestGenerateOrderNumber_DistinctWithinSameMillisecond(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		number := GenerateOrderNumber(at)
		require.False(t, seen[number], "order number %s generated twice", number)
		seen[number] = true
	}
}

func TestNewOrder_Defaults(t *testing.T) {
	items := []LaundryItem{NewLaundryItem("Thobe", 2, 5)}

	order := NewOrder("Ahmed", "0501234567", OrderTypeNormal, items, 0)

	require.Equal(t, OrderStatusReceived, order.Status)
	require.False(t, order.IsPaid)
	require.False(t, order.Notified1h)
	require.False(t, order.Notified24h)
	require.False(t, order.Notified48h)
	require.False(t, order.IsTerminal())
	require.NotEmpty(t, order.ID)
	require.Equal(t, order.CreatedAt, order.UpdatedAt)
}

func TestOrder_NotifiedFlagsAreIndependent(t *testing.T) {
	order := NewOrder("Ahmed", "0501234567", OrderTypeNormal, nil, 10)

	order.MarkNotified(Threshold24h)

	require.False(t, order.Notified(Threshold1h))
	require.True(t, order.Notified(Threshold24h))
	require.False(t, order.Notified(Threshold48h))
}

func TestDueThreshold_FirstMatchWinsDescending(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	order := NewOrder("Ahmed", "0501234567", OrderTypeNormal, nil, 10)
	order.CreatedAt = now.Add(-72 * time.Hour)

	threshold, due := order.DueThreshold(now)
	require.True(t, due)
	require.Equal(t, Threshold48h, threshold)

	// Only one threshold fires at a time; the lower ones wait their turn
	// until the confirmed flag clears the way on a later evaluation
	order.MarkNotified(Threshold48h)
	threshold, due = order.DueThreshold(now)
	require.True(t, due)
	require.Equal(t, Threshold24h, threshold)

	order.MarkNotified(Threshold24h)
	threshold, due = order.DueThreshold(now)
	require.True(t, due)
	require.Equal(t, Threshold1h, threshold)

	order.MarkNotified(Threshold1h)
	_, due = order.DueThreshold(now)
	require.False(t, due)
}

func TestDueThreshold_TerminalOrderNeverDue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	order := NewOrder("Ahmed", "0501234567", OrderTypeNormal, nil, 10)
	order.CreatedAt = now.Add(-72 * time.Hour)
	order.Status = OrderStatusDelivered

	_, due := order.DueThreshold(now)
	require.False(t, due)
}
