package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cleanpress/laundry-pos/internal/models"
	apperrors "github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	events []*models.OutboxMessage
	stats  models.OrderStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*models.Order)}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[id]

	if !ok {
		return nil, apperrors.NewNotFoundError("order not found")
	}
	return order, nil
}

func (f *fakeStore) GetAll(_ context.Context, _, _ int) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var orders []*models.Order
	for _, o := range f.orders {
		orders = append(orders, o)
	}
	return orders, nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders), nil
}

func (f *fakeStore) Stats(_ context.Context) (*models.OrderStats, error) {
	stats := f.stats
	return &stats, nil
}

func (f *fakeStore) CreateWithEvent(_ context.Context, order *models.Order, event *models.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders[order.ID] = order
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) UpdateStatusWithEvent(_ context.Context, id string, status models.OrderStatus, event *models.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders[id].Status = status
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) UpdatePaymentWithEvent(_ context.Context, id string, isPaid bool, method models.PaymentMethod, event *models.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders[id].IsPaid = isPaid
	f.orders[id].PaymentMethod = method
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var types []string
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeInventory struct {
	mu       sync.Mutex
	items    []*models.InventoryItem
	lowCount int
}

func (f *fakeInventory) List(_ context.Context) ([]*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, nil
}

func (f *fakeInventory) Create(_ context.Context, item *models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeInventory) AdjustStock(_ context.Context, id string, delta float64) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range f.items {
		if item.ID == id {
			item.Stock += delta
			if item.Stock < 0 {
				item.Stock = 0
			}
			return item, nil
		}
	}
	return nil, apperrors.NewNotFoundError("item not found")
}

func (f *fakeInventory) LowStockCount(_ context.Context) (int, error) {
	return f.lowCount, nil
}

type fakeComposer struct {
	mu    sync.Mutex
	kinds []models.EventKind
}

func (f *fakeComposer) Compose(_ context.Context, _ *models.Order, kind models.EventKind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return "نص الرسالة", nil
}

func (f *fakeComposer) lastKind() models.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.kinds) == 0 {
		return ""
	}
	return f.kinds[len(f.kinds)-1]
}

type fakeGateway struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeGateway) Send(_ context.Context, rawPhone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, rawPhone)
	return nil
}

func (f *fakeGateway) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func newTestService(store *fakeStore, inventory *fakeInventory, composer *fakeComposer, gateway *fakeGateway) *OrderService {
	return NewOrderService(store, inventory, composer, gateway, time.Second, logger.NewLogger("error"))
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Ahmed",
		CustomerPhone: "0501234567",
		Items: []ItemInput{
			{Name: "Thobe", Quantity: 2, Price: 5.00},
			{Name: "Shirt", Quantity: 1, Price: 3.00},
		},
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	cases := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"missing name", func(in *CreateOrderInput) { in.CustomerName = "  " }},
		{"missing phone", func(in *CreateOrderInput) { in.CustomerPhone = "" }},
		{"no items no adjustment", func(in *CreateOrderInput) { in.Items = nil; in.Adjustment = 0 }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *CreateOrderInput) { in.Items[0].Price = -1 }},
		{"unknown order type", func(in *CreateOrderInput) { in.OrderType = "Express" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := svc.CreateOrder(context.Background(), input)
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestCreateOrder_Success(t *testing.T) {
	store := newFakeStore()
	composer := &fakeComposer{}
	gateway := &fakeGateway{}
	svc := newTestService(store, &fakeInventory{}, composer, gateway)

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusReceived, order.Status)
	require.InDelta(t, 13.00, order.Subtotal, 1e-9)
	require.InDelta(t, 1.95, order.Tax, 1e-9)
	require.InDelta(t, 14.95, order.Total, 1e-9)
	require.False(t, order.Notified1h)
	require.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))

	require.Equal(t, []string{models.EventTypeOrderCreated}, store.eventTypes())

	// Intake confirmation goes out asynchronously after the commit
	require.Eventually(t, func() bool {
		return gateway.sendCount() == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, models.EventReceived, composer.lastKind())
}

func TestCreateOrder_AdjustmentOnly(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	input := CreateOrderInput{
		CustomerName:  "Sara",
		CustomerPhone: "0509876543",
		Adjustment:    20.00,
	}

	order, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	require.InDelta(t, 20.00, order.Subtotal, 1e-9)
	require.InDelta(t, 23.00, order.Total, 1e-9)
}

func TestUpdateStatus_ReadyNotifies(t *testing.T) {
	store := newFakeStore()
	composer := &fakeComposer{}
	gateway := &fakeGateway{}
	svc := newTestService(store, &fakeInventory{}, composer, gateway)

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	// Wait out the intake confirmation so later counts are unambiguous
	require.Eventually(t, func() bool {
		return gateway.sendCount() == 1
	}, time.Second, 10*time.Millisecond)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusWashing)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusReady)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return gateway.sendCount() == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, models.EventReady, composer.lastKind())

	require.Equal(t, []string{
		models.EventTypeOrderCreated,
		models.EventTypeOrderStatusChanged,
		models.EventTypeOrderStatusChanged,
	}, store.eventTypes())
}

func TestUpdateStatus_NoChangeNoEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusReceived)
	require.NoError(t, err)

	require.Equal(t, []string{models.EventTypeOrderCreated}, store.eventTypes())
}

func TestUpdateStatus_RejectsUnknown(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	_, err := svc.UpdateStatus(context.Background(), "ord-missing", "Folded")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdatePayment_NoNotification(t *testing.T) {
	store := newFakeStore()
	gateway := &fakeGateway{}
	svc := newTestService(store, &fakeInventory{}, &fakeComposer{}, gateway)

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return gateway.sendCount() == 1
	}, time.Second, 10*time.Millisecond)

	updated, err := svc.UpdatePayment(context.Background(), order.ID, true, models.PaymentMethodCard)
	require.NoError(t, err)
	require.True(t, updated.IsPaid)
	require.Equal(t, models.PaymentMethodCard, updated.PaymentMethod)

	require.Equal(t, []string{
		models.EventTypeOrderCreated,
		models.EventTypeOrderPaid,
	}, store.eventTypes())

	// Payment never messages the customer
	require.Equal(t, 1, gateway.sendCount())
}

func TestManualReminderLink(t *testing.T) {
	store := newFakeStore()
	composer := &fakeComposer{}
	svc := newTestService(store, &fakeInventory{}, composer, &fakeGateway{})

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	link, err := svc.ManualReminderLink(context.Background(), order.ID, "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://wa.me/966501234567?text="))
	require.Contains(t, link, "text=")
}

func TestManualReminderLink_ExplicitKind(t *testing.T) {
	store := newFakeStore()
	composer := &fakeComposer{}
	svc := newTestService(store, &fakeInventory{}, composer, &fakeGateway{})

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	// A named kind wins over the status-based default
	_, err = svc.ManualReminderLink(context.Background(), order.ID, models.EventReceived)
	require.NoError(t, err)
	require.Equal(t, models.EventReceived, composer.lastKind())

	_, err = svc.ManualReminderLink(context.Background(), order.ID, "SHIPPED")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestManualReminderLink_ReadyOrderUsesReadyMessage(t *testing.T) {
	store := newFakeStore()
	composer := &fakeComposer{}
	svc := newTestService(store, &fakeInventory{}, composer, &fakeGateway{})

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, models.OrderStatusReady)
	require.NoError(t, err)

	_, err = svc.ManualReminderLink(context.Background(), order.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.EventReady, composer.lastKind())
}

func TestManualReminderLink_GuardsConcurrentSends(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	require.True(t, svc.tryAcquire(order.ID))
	defer svc.release(order.ID)

	_, err = svc.ManualReminderLink(context.Background(), order.ID, "")
	require.ErrorIs(t, err, apperrors.ErrSendInProgress)
}

func TestStats_MergesLowStock(t *testing.T) {
	store := newFakeStore()
	store.stats = models.OrderStats{
		TotalOrders:   10,
		OpenOrders:    4,
		PaidRevenue:   149.50,
		CollectedTax:  19.50,
		PendingAmount: 59.80,
	}
	inventory := &fakeInventory{lowCount: 3}
	svc := newTestService(store, inventory, &fakeComposer{}, &fakeGateway{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, stats.OpenOrders)
	require.Equal(t, 3, stats.LowStockItems)
}

func TestCreateInventoryItem_Validation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeInventory{}, &fakeComposer{}, &fakeGateway{})

	_, err := svc.CreateInventoryItem(context.Background(), " ", "L", 10, 2)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	item, err := svc.CreateInventoryItem(context.Background(), "Detergent", "L", 10, 2)
	require.NoError(t, err)
	require.False(t, item.IsLow())
}
