package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cleanpress/laundry-pos/internal/models"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:           "ord-1",
		OrderNumber:  "ORD-00042-ab12",
		CustomerName: "أحمد",
		Status:       models.OrderStatusReady,
		Total:        57.50,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestFallbackComposer_Deterministic(t *testing.T) {
	composer := NewFallbackComposer()
	order := sampleOrder()

	first, err := composer.Compose(context.Background(), order, models.EventReceived)
	require.NoError(t, err)

	second, err := composer.Compose(context.Background(), order, models.EventReceived)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Contains(t, first, order.CustomerName)
	require.Contains(t, first, order.OrderNumber)
}

func TestFallbackComposer_KindSelectsTemplate(t *testing.T) {
	composer := NewFallbackComposer()
	order := sampleOrder()

	received, err := composer.Compose(context.Background(), order, models.EventReceived)
	require.NoError(t, err)

	ready, err := composer.Compose(context.Background(), order, models.EventReady)
	require.NoError(t, err)

	reminder, err := composer.Compose(context.Background(), order, models.EventReminder48)
	require.NoError(t, err)

	require.NotEqual(t, received, ready)
	require.NotEqual(t, ready, reminder)

	// Any reminder kind falls through to the generic reminder template
	manual, err := composer.Compose(context.Background(), order, models.EventReminderManual)
	require.NoError(t, err)
	require.Equal(t, reminder, manual)
}

func TestFormatMessage_AppendsInvoiceFooter(t *testing.T) {
	order := sampleOrder()

	message := FormatMessage("نص الرسالة", order)

	require.Contains(t, message, "نص الرسالة")
	require.Contains(t, message, "📦 فاتورة: ORD-00042-ab12")
	require.Contains(t, message, "💰 الإجمالي: 57.50 ريال")
	require.Contains(t, message, "📍 الحالة: جاهز للاستلام")
}

func TestFailoverComposer_NilPrimaryUsesTemplates(t *testing.T) {
	composer := NewFailoverComposer(nil, testLogger())
	order := sampleOrder()

	text, err := composer.Compose(context.Background(), order, models.EventReady)
	require.NoError(t, err)
	require.Contains(t, text, order.OrderNumber)
}
