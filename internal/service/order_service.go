package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/notify"
	"github.com/cleanpress/laundry-pos/internal/pricing"
	"github.com/cleanpress/laundry-pos/internal/repository"
	apperrors "github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

// OrderStore is the persistence surface the service writes orders through.
// Writes carry their outbox event so both commit atomically.
type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*models.OrderStats, error)
	CreateWithEvent(ctx context.Context, order *models.Order, event *models.OutboxMessage) error
	UpdateStatusWithEvent(ctx context.Context, id string, status models.OrderStatus, event *models.OutboxMessage) error
	UpdatePaymentWithEvent(ctx context.Context, id string, isPaid bool, method models.PaymentMethod, event *models.OutboxMessage) error
}

// InventoryStore is the persistence surface for consumables
type InventoryStore interface {
	List(ctx context.Context) ([]*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	AdjustStock(ctx context.Context, id string, delta float64) (*models.InventoryItem, error)
	LowStockCount(ctx context.Context) (int, error)
}

var (
	_ OrderStore     = (*repository.Store)(nil)
	_ InventoryStore = (*repository.InventoryRepository)(nil)
)

// OrderService handles the order lifecycle: intake, status transitions,
// payment, and the customer notifications attached to them
type OrderService struct {
	store         OrderStore
	inventory     InventoryStore
	composer      notify.Composer
	gateway       notify.Gateway
	notifyTimeout time.Duration
	logger        logger.Logger

	// inFlight guards the manual reminder path per order
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrderService creates a new OrderService. notifyTimeout bounds the
// best-effort status notifications sent after a commit; zero picks a
// sensible default.
func NewOrderService(
	store OrderStore,
	inventory InventoryStore,
	composer notify.Composer,
	gateway notify.Gateway,
	notifyTimeout time.Duration,
	logger logger.Logger,
) *OrderService {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}

	return &OrderService{
		store:         store,
		inventory:     inventory,
		composer:      composer,
		gateway:       gateway,
		notifyTimeout: notifyTimeout,
		logger:        logger,
		inFlight:      make(map[string]struct{}),
	}
}

// ItemInput is one requested line item on a new order
type ItemInput struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateOrderInput is the intake form for a new order
type CreateOrderInput struct {
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	OrderType     models.OrderType `json:"order_type"`
	Items         []ItemInput      `json:"items"`
	Adjustment    float64          `json:"custom_adjustment"`
}

func (in *CreateOrderInput) validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return apperrors.NewInvalidInputError("customer name is required")
	}

	if strings.TrimSpace(in.CustomerPhone) == "" {
		return apperrors.NewInvalidInputError("customer phone is required")
	}

	if len(in.Items) == 0 && in.Adjustment == 0 {
		return apperrors.NewInvalidInputError("order needs at least one item or a custom adjustment")
	}

	for _, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return apperrors.NewInvalidInputError("item name is required")
		}
		if item.Quantity <= 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("item %q needs a positive quantity", item.Name))
		}
		if item.Price < 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("item %q cannot have a negative price", item.Name))
		}
	}

	if in.OrderType != "" && in.OrderType != models.OrderTypeNormal && in.OrderType != models.OrderTypeUrgent {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown order type %q", in.OrderType))
	}

	return nil
}

// CreateOrder validates the intake form, snapshots the pricing, and
// persists the order together with its order_created event. The intake
// confirmation message is sent after the commit and never blocks or fails
// the creation.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	orderType := input.OrderType

	if orderType == "" {
		orderType = models.OrderTypeNormal
	}

	items := make([]models.LaundryItem, 0, len(input.Items))

	for _, item := range input.Items {
		items = append(items, models.NewLaundryItem(strings.TrimSpace(item.Name), item.Quantity, item.Price))
	}

	order := models.NewOrder(
		strings.TrimSpace(input.CustomerName),
		strings.TrimSpace(input.CustomerPhone),
		orderType,
		items,
		input.Adjustment,
	)

	totals := pricing.Calculate(items, input.Adjustment)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.Total = totals.Total

	event, err := models.NewOrderCreatedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.store.CreateWithEvent(ctx, order, event); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"orderNumber", order.OrderNumber,
		"total", order.Total,
		"messageID", event.ID)

	go s.notifyCustomer(order, models.EventReceived)

	return order, nil
}

// UpdateStatus moves an order to a new workflow state and records the
// transition. Reaching Ready triggers a best-effort pickup notification.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus models.OrderStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown order status %q", newStatus))
	}

	order, err := s.store.GetByID(ctx, orderID)

	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		// No change needed
		return order, nil
	}

	oldStatus := order.Status
	order.Status = newStatus
	order.UpdatedAt = models.GetCurrentTime()

	event, err := models.NewOrderStatusChangedEvent(order, oldStatus)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.store.UpdateStatusWithEvent(ctx, orderID, newStatus, event); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		"orderID", order.ID,
		"oldStatus", oldStatus,
		"newStatus", newStatus,
		"messageID", event.ID)

	if newStatus == models.OrderStatusReady {
		go s.notifyCustomer(order, models.EventReady)
	}

	return order, nil
}

// UpdatePayment settles or unsettles an order. Payment changes produce an
// event but no customer notification.
func (s *OrderService) UpdatePayment(ctx context.Context, orderID string, isPaid bool, method models.PaymentMethod) (*models.Order, error) {
	switch method {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodTransfer:
	case "":
		method = models.PaymentMethodCash
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown payment method %q", method))
	}

	order, err := s.store.GetByID(ctx, orderID)

	if err != nil {
		return nil, err
	}

	order.IsPaid = isPaid
	order.PaymentMethod = method
	order.UpdatedAt = models.GetCurrentTime()

	event, err := models.NewOrderPaidEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.store.UpdatePaymentWithEvent(ctx, orderID, isPaid, method, event); err != nil {
		return nil, err
	}

	s.logger.Info("Order payment updated",
		"orderID", order.ID,
		"isPaid", isPaid,
		"method", method,
		"messageID", event.ID)

	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetByID(ctx, id)
}

// GetAllOrders retrieves all orders with pagination
func (s *OrderService) GetAllOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	return s.store.GetAll(ctx, limit, offset)
}

// CountOrders counts the total number of orders
func (s *OrderService) CountOrders(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// ManualReminderLink composes a reminder for the order and returns a wa.me
// deep link with the message prefilled, so the operator sends it from their
// own WhatsApp. The operator may name the event kind; left empty, it is
// inferred from the order status. Only one link per order is prepared at a
// time.
func (s *OrderService) ManualReminderLink(ctx context.Context, orderID string, kind models.EventKind) (string, error) {
	if kind != "" && !kind.IsValid() {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown event kind %q", kind))
	}

	if !s.tryAcquire(orderID) {
		return "", apperrors.NewAppError(
			apperrors.ErrSendInProgress,
			"a reminder for this order is already being prepared",
			http.StatusConflict,
			false,
		)
	}
	defer s.release(orderID)

	order, err := s.store.GetByID(ctx, orderID)

	if err != nil {
		return "", err
	}

	if kind == "" {
		kind = models.EventReminderManual

		if order.Status == models.OrderStatusReady {
			kind = models.EventReady
		}
	}

	body, err := s.composer.Compose(ctx, order, kind)

	if err != nil {
		return "", err
	}

	message := notify.FormatMessage(body, order)

	s.logger.Info("Manual reminder link prepared", "orderID", order.ID, "kind", kind)

	return notify.WhatsAppLink(order.CustomerPhone, message), nil
}

// Stats returns the dashboard summary. A failing inventory count does not
// sink the whole dashboard; it is reported as zero.
func (s *OrderService) Stats(ctx context.Context) (*models.OrderStats, error) {
	stats, err := s.store.Stats(ctx)

	if err != nil {
		return nil, err
	}

	lowStock, err := s.inventory.LowStockCount(ctx)

	if err != nil {
		s.logger.Warn("Failed to count low stock items", "error", err)
	} else {
		stats.LowStockItems = lowStock
	}

	return stats, nil
}

// ListInventory retrieves all inventory items
func (s *OrderService) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	return s.inventory.List(ctx)
}

// CreateInventoryItem registers a new consumable
func (s *OrderService) CreateInventoryItem(ctx context.Context, name, unit string, stock, threshold float64) (*models.InventoryItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewInvalidInputError("item name is required")
	}

	if stock < 0 || threshold < 0 {
		return nil, apperrors.NewInvalidInputError("stock and threshold cannot be negative")
	}

	item := &models.InventoryItem{
		ID:        models.GenerateID("inv"),
		Name:      strings.TrimSpace(name),
		Stock:     stock,
		Unit:      unit,
		Threshold: threshold,
	}

	if err := s.inventory.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// AdjustStock applies a signed stock delta to an inventory item
func (s *OrderService) AdjustStock(ctx context.Context, id string, delta float64) (*models.InventoryItem, error) {
	return s.inventory.AdjustStock(ctx, id, delta)
}

// notifyCustomer sends a best-effort status message. Failures are logged
// and dropped; nothing about the order depends on this delivery.
func (s *OrderService) notifyCustomer(order *models.Order, kind models.EventKind) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	body, err := s.composer.Compose(ctx, order, kind)

	if err != nil {
		s.logger.Error("Failed to compose status notification",
			"error", err,
			"orderID", order.ID,
			"eventKind", kind)
		return
	}

	message := notify.FormatMessage(body, order)

	if err := s.gateway.Send(ctx, order.CustomerPhone, message); err != nil {
		s.logger.Warn("Status notification not delivered",
			"error", err,
			"orderID", order.ID,
			"eventKind", kind)
		return
	}
}

func (s *OrderService) tryAcquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[orderID]; busy {
		return false
	}

	s.inFlight[orderID] = struct{}{}
	return true
}

func (s *OrderService) release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}
