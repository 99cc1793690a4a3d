package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/notify"
	"github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

type fakeOrderSource struct {
	mu       sync.Mutex
	orders   []*models.Order
	getCalls int
}

func (f *fakeOrderSource) GetOpen(_ context.Context) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++

	var open []*models.Order
	for _, o := range f.orders {
		if !o.IsTerminal() {
			open = append(open, o)
		}
	}
	return open, nil
}

func (f *fakeOrderSource) MarkNotified(_ context.Context, id string, threshold models.ReminderThreshold) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.orders {
		if o.ID == id {
			if o.IsTerminal() {
				return false, nil
			}
			o.MarkNotified(threshold)
			return true, nil
		}
	}
	return false, nil
}

type fakeComposer struct {
	mu    sync.Mutex
	kinds []models.EventKind
}

func (f *fakeComposer) Compose(_ context.Context, _ *models.Order, kind models.EventKind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return "reminder text", nil
}

type fakeGateway struct {
	mu         sync.Mutex
	sends      []string
	failPhones map[string]bool
	failAll    bool
}

func (f *fakeGateway) Send(_ context.Context, rawPhone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll || f.failPhones[rawPhone] {
		return errors.NewDeliveryError("gateway down")
	}

	f.sends = append(f.sends, rawPhone)
	return nil
}

func (f *fakeGateway) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func enabledSettings() *notify.SettingsStore {
	return notify.NewSettingsStore(models.NotificationSettings{
		AccountSid: "AC123",
		AuthToken:  "token",
		FromNumber: "+14155550100",
		Enabled:    true,
	})
}

func testOrder(id, phone string, age time.Duration, now time.Time) *models.Order {
	return &models.Order{
		ID:            id,
		OrderNumber:   "ORD-" + id,
		CustomerName:  "Ahmed",
		CustomerPhone: phone,
		Status:        models.OrderStatusReceived,
		Total:         50,
		CreatedAt:     now.Add(-age),
		UpdatedAt:     now.Add(-age),
	}
}

func newTestScheduler(t *testing.T, source *fakeOrderSource, composer notify.Composer, gateway notify.Gateway, settings notify.SettingsSource) *ReminderScheduler {
	t.Helper()

	s := NewReminderScheduler(source, composer, gateway, settings, nil, Config{
		ScanInterval: time.Minute,
		SendTimeout:  time.Second,
	}, logger.NewLogger("error"))

	return s
}

func TestScan_ThresholdExclusivity(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 50*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	composer := &fakeComposer{}
	gateway := &fakeGateway{}

	s := newTestScheduler(t, source, composer, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	s.scan()

	require.Equal(t, 1, gateway.sendCount())
	require.Equal(t, []models.EventKind{models.EventReminder48}, composer.kinds)
	require.True(t, order.Notified48h)
	require.False(t, order.Notified24h)
	require.False(t, order.Notified1h)
}

func TestScan_IdempotentFlag(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 3*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	gateway := &fakeGateway{}

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		s.scan()
	}

	require.Equal(t, 1, gateway.sendCount())
	require.True(t, order.Notified1h)
}

func TestScan_TerminalSuppression(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 100*time.Hour, now)
	order.Status = models.OrderStatusDelivered

	source := &fakeOrderSource{orders: []*models.Order{order}}
	gateway := &fakeGateway{}

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	s.scan()

	require.Zero(t, gateway.sendCount())
	require.False(t, order.Notified48h)
}

func TestScan_RetryOnFailure(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 25*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	gateway := &fakeGateway{failAll: true}

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	s.scan()

	require.Zero(t, gateway.sendCount())
	require.False(t, order.Notified24h)

	// Gateway recovers; the same threshold qualifies again
	gateway.failAll = false
	s.scan()

	require.Equal(t, 1, gateway.sendCount())
	require.True(t, order.Notified24h)
}

func TestScan_DisabledSettingsSkipsScan(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 50*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	gateway := &fakeGateway{}

	settings := notify.NewSettingsStore(models.NotificationSettings{
		AccountSid: "AC123",
		Enabled:    false,
	})

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, settings)
	s.now = func() time.Time { return now }

	s.scan()

	require.Zero(t, source.getCalls)
	require.Zero(t, gateway.sendCount())
}

func TestScan_PerOrderIsolation(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	failing := testOrder("o1", "0500000001", 2*time.Hour, now)
	healthy := testOrder("o2", "0500000002", 2*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{failing, healthy}}
	gateway := &fakeGateway{failPhones: map[string]bool{"0500000001": true}}

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	s.scan()

	require.Equal(t, []string{"0500000002"}, gateway.sends)
	require.False(t, failing.Notified1h)
	require.True(t, healthy.Notified1h)
}

func TestScan_BackloggedOrderCatchesUpOnePerScan(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 50*time.Hour, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	composer := &fakeComposer{}
	gateway := &fakeGateway{}

	s := newTestScheduler(t, source, composer, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	// A 50h-old order owes all three reminders; each scan delivers exactly
	// one, highest first
	s.scan()
	require.Equal(t, []models.EventKind{models.EventReminder48}, composer.kinds)

	s.scan()
	require.Equal(t, []models.EventKind{models.EventReminder48, models.EventReminder24}, composer.kinds)

	s.scan()
	require.Equal(t, 3, gateway.sendCount())
	require.True(t, order.Notified48h)
	require.True(t, order.Notified24h)
	require.True(t, order.Notified1h)

	s.scan()
	require.Equal(t, 3, gateway.sendCount())
}

func TestScan_YoungOrderNotDue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 30*time.Minute, now)

	source := &fakeOrderSource{orders: []*models.Order{order}}
	gateway := &fakeGateway{}

	s := newTestScheduler(t, source, &fakeComposer{}, gateway, enabledSettings())
	s.now = func() time.Time { return now }

	s.scan()

	require.Zero(t, gateway.sendCount())
}

func TestDueThreshold_Progression(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	order := testOrder("o1", "0501234567", 2*time.Hour, now)

	threshold, due := order.DueThreshold(now)
	require.True(t, due)
	require.Equal(t, models.Threshold1h, threshold)

	// Once the 1h reminder is confirmed, nothing is due until 24h
	order.MarkNotified(models.Threshold1h)
	_, due = order.DueThreshold(now)
	require.False(t, due)

	threshold, due = order.DueThreshold(now.Add(23 * time.Hour))
	require.True(t, due)
	require.Equal(t, models.Threshold24h, threshold)
}
