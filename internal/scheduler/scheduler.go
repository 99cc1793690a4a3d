package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/notify"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

// OrderSource is the slice of the order store the scheduler needs: the set
// of non-terminal orders and the guarded single-flag update
type OrderSource interface {
	GetOpen(ctx context.Context) ([]*models.Order, error)
	MarkNotified(ctx context.Context, id string, threshold models.ReminderThreshold) (bool, error)
}

// EventRecorder records reminder deliveries on the event stream
type EventRecorder interface {
	Create(ctx context.Context, message *models.OutboxMessage) error
}

// ReminderScheduler periodically scans open orders and sends at most one
// automated reminder per (order, threshold), retrying failed deliveries on
// the next tick
type ReminderScheduler struct {
	orders       OrderSource
	composer     notify.Composer
	gateway      notify.Gateway
	settings     notify.SettingsSource
	events       EventRecorder
	scanInterval time.Duration
	sendTimeout  time.Duration
	logger       logger.Logger
	now          func() time.Time
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	running      bool
	mu           sync.Mutex
}

// Config holds the configuration for the ReminderScheduler
type Config struct {
	ScanInterval time.Duration
	SendTimeout  time.Duration
}

// NewReminderScheduler creates a new ReminderScheduler. events may be nil
// when no event stream is wired.
func NewReminderScheduler(
	orders OrderSource,
	composer notify.Composer,
	gateway notify.Gateway,
	settings notify.SettingsSource,
	events EventRecorder,
	config Config,
	logger logger.Logger,
) *ReminderScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &ReminderScheduler{
		orders:       orders,
		composer:     composer,
		gateway:      gateway,
		settings:     settings,
		events:       events,
		scanInterval: config.ScanInterval,
		sendTimeout:  config.SendTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the periodic scan loop
func (s *ReminderScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run()
	}()

	s.logger.Info("Reminder scheduler started", "scanInterval", s.scanInterval)
}

// Stop cancels future ticks and waits for in-flight sends to finish
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false

	s.logger.Info("Reminder scheduler stopped")
}

func (s *ReminderScheduler) run() {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.scan()
		}
	}
}

// scan is one tick: evaluate every open order and dispatch the due
// reminders. Each order is handled in its own goroutine so one slow or
// failing delivery cannot delay the rest of the scan.
func (s *ReminderScheduler) scan() {
	if !s.settings.Current().Configured() {
		s.logger.Debug("Automatic notifications disabled, skipping scan")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.scanInterval)
	defer cancel()

	orders, err := s.orders.GetOpen(ctx)

	if err != nil {
		s.logger.Error("Failed to load open orders for reminder scan", "error", err)
		return
	}

	now := s.now()
	var dispatched sync.WaitGroup

	for _, order := range orders {
		threshold, due := order.DueThreshold(now)

		if !due {
			continue
		}

		dispatched.Add(1)

		go func(order *models.Order, threshold models.ReminderThreshold) {
			defer dispatched.Done()
			s.sendReminder(order, threshold)
		}(order, threshold)
	}

	dispatched.Wait()
}

// sendReminder composes and delivers one reminder, then persists the
// notification flag only after confirmed delivery. Any failure leaves the
// flag unset so the same threshold is retried on the next tick.
func (s *ReminderScheduler) sendReminder(order *models.Order, threshold models.ReminderThreshold) {
	ctx, cancel := context.WithTimeout(s.ctx, s.sendTimeout)
	defer cancel()

	body, err := s.composer.Compose(ctx, order, threshold.EventKind())

	if err != nil {
		s.logger.Error("Failed to compose reminder",
			"error", err,
			"orderID", order.ID,
			"threshold", threshold)
		return
	}

	message := notify.FormatMessage(body, order)

	if err := s.gateway.Send(ctx, order.CustomerPhone, message); err != nil {
		s.logger.Warn("Reminder delivery failed, will retry on next tick",
			"error", err,
			"orderID", order.ID,
			"threshold", threshold)
		return
	}

	applied, err := s.orders.MarkNotified(ctx, order.ID, threshold)

	if err != nil {
		// The message went out but the flag write failed; the next tick may
		// send a duplicate, which the at-least-once contract allows.
		s.logger.Error("Failed to persist notification flag",
			"error", err,
			"orderID", order.ID,
			"threshold", threshold)
		return
	}

	if !applied {
		s.logger.Info("Order reached terminal status mid-scan, flag not set",
			"orderID", order.ID,
			"threshold", threshold)
		return
	}

	order.MarkNotified(threshold)

	s.logger.Info("Reminder sent",
		"orderID", order.ID,
		"orderNumber", order.OrderNumber,
		"threshold", threshold)

	s.recordReminderSent(ctx, order, threshold)
}

func (s *ReminderScheduler) recordReminderSent(ctx context.Context, order *models.Order, threshold models.ReminderThreshold) {
	if s.events == nil {
		return
	}

	event, err := models.NewReminderSentEvent(order, threshold)

	if err != nil {
		s.logger.Error("Failed to build reminder_sent event", "error", err, "orderID", order.ID)
		return
	}

	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error("Failed to record reminder_sent event", "error", err, "orderID", order.ID)
	}
}
