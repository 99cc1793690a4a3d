package notify

import (
	"context"
	"fmt"

	"github.com/cleanpress/laundry-pos/internal/models"
)

// statusArabic maps workflow states to the customer-facing labels used in
// message footers
var statusArabic = map[models.OrderStatus]string{
	models.OrderStatusReceived:  "تم الاستلام",
	models.OrderStatusWashing:   "جاري الغسيل",
	models.OrderStatusIroning:   "جاري الكي",
	models.OrderStatusReady:     "جاهز للاستلام",
	models.OrderStatusDelivered: "تم التسليم",
}

// FallbackComposer produces the deterministic message templates. It has no
// external dependencies and never fails, so delivery is never blocked by an
// unavailable composition service.
type FallbackComposer struct{}

// NewFallbackComposer creates a FallbackComposer
func NewFallbackComposer() *FallbackComposer {
	return &FallbackComposer{}
}

// Compose renders the static template for the event kind
func (c *FallbackComposer) Compose(_ context.Context, order *models.Order, kind models.EventKind) (string, error) {
	switch kind {
	case models.EventReceived:
		return fmt.Sprintf(
			"مرحباً %s نود إعلامكم بأننا استلمنا طلبكم رقم %s ونحن نعمل عليه الآن لضمان تقديمه بأفضل جودة. إجمالي قيمة الطلب هي %.2f ريال سعودي. شكراً لاختياركم لنا ويسعدنا دائماً خدمتكم.",
			order.CustomerName, order.OrderNumber, order.Total), nil
	case models.EventReady:
		return fmt.Sprintf(
			"مرحباً %s نود إعلامكم بأن طلبكم رقم %s قد تم الانتهاء منه وهو جاهز تماماً وبانتظاركم لاستلامه الآن. إجمالي المبلغ هو %.2f ريال سعودي. يسعدنا حضوركم.",
			order.CustomerName, order.OrderNumber, order.Total), nil
	default:
		return fmt.Sprintf(
			"مرحباً %s، نود تذكيركم بأن طلبكم رقم %s جاهز للاستلام. نسعد بزيارتكم.",
			order.CustomerName, order.OrderNumber), nil
	}
}

// FormatMessage appends the invoice footer to a composed message body
func FormatMessage(body string, order *models.Order) string {
	return fmt.Sprintf("%s\n\n📦 فاتورة: %s\n💰 الإجمالي: %.2f ريال\n📍 الحالة: %s",
		body, order.OrderNumber, order.Total, statusArabic[order.Status])
}
