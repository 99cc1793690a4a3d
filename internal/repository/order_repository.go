package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleanpress/laundry-pos/internal/database"
	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
)

const orderColumns = `id, order_number, customer_name, customer_phone, order_type, items,
	subtotal, tax, total, custom_adjustment, is_paid, payment_method, status,
	notified_1h, notified_24h, notified_48h, created_at, updated_at`

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction
func (r *OrderRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)

	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return tx, nil
}

// Create inserts a new order into the database
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.db.DB.ExecContext(ctx, insertOrderQuery, insertOrderArgs(order)...)

	if err != nil {
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateInTx inserts a new order within a transaction
func (r *OrderRepository) CreateInTx(tx *sql.Tx, order *models.Order) error {
	_, err := tx.Exec(insertOrderQuery, insertOrderArgs(order)...)

	if err != nil {
		return fmt.Errorf("failed to create order in transaction: %w", err)
	}

	return nil
}

const insertOrderQuery = `
	INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

func insertOrderArgs(order *models.Order) []interface{} {
	return []interface{}{
		order.ID,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerPhone,
		order.OrderType,
		order.Items,
		order.Subtotal,
		order.Tax,
		order.Total,
		order.CustomAdjustment,
		order.IsPaid,
		order.PaymentMethod,
		order.Status,
		order.Notified1h,
		order.Notified24h,
		order.Notified48h,
		order.CreatedAt,
		order.UpdatedAt,
	}
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetAll retrieves all orders, newest first, with limit and offset
func (r *OrderRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get all orders", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetOpen retrieves every order that has not reached the terminal status.
// The reminder scan works off this set.
func (r *OrderRepository) GetOpen(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status <> $1
		ORDER BY created_at ASC
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, models.OrderStatusDelivered)

	if err != nil {
		r.logger.Error("Failed to get open orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// UpdateStatusInTx persists a status transition within a transaction,
// touching only the status and updated_at columns
func (r *OrderRepository) UpdateStatusInTx(tx *sql.Tx, id string, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := tx.Exec(query, status, models.GetCurrentTime(), id)

	if err != nil {
		return fmt.Errorf("failed to update order status in transaction: %w", err)
	}

	return requireOneRow(result)
}

// UpdatePaymentInTx persists the payment flag and method within a
// transaction; no other columns are touched
func (r *OrderRepository) UpdatePaymentInTx(tx *sql.Tx, id string, isPaid bool, method models.PaymentMethod) error {
	query := `UPDATE orders SET is_paid = $1, payment_method = $2, updated_at = $3 WHERE id = $4`

	result, err := tx.Exec(query, isPaid, method, models.GetCurrentTime(), id)

	if err != nil {
		return fmt.Errorf("failed to update order payment in transaction: %w", err)
	}

	return requireOneRow(result)
}

// MarkNotified sets the single notification flag for the given threshold.
// The update is guarded against the terminal status so an order delivered
// between scan selection and flag write is left untouched; the returned
// bool reports whether the flag was actually written.
func (r *OrderRepository) MarkNotified(ctx context.Context, id string, threshold models.ReminderThreshold) (bool, error) {
	var column string

	switch threshold {
	case models.Threshold1h:
		column = "notified_1h"
	case models.Threshold24h:
		column = "notified_24h"
	case models.Threshold48h:
		column = "notified_48h"
	default:
		return false, fmt.Errorf("unknown reminder threshold: %d", threshold)
	}

	query := fmt.Sprintf(`UPDATE orders SET %s = TRUE, updated_at = $1 WHERE id = $2 AND status <> $3`, column)

	result, err := r.db.DB.ExecContext(ctx, query, models.GetCurrentTime(), id, models.OrderStatusDelivered)

	if err != nil {
		r.logger.Error("Failed to mark order as notified", "error", err, "orderID", id, "threshold", threshold)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return rowsAffected == 1, nil
}

// Stats computes the dashboard aggregates in a single query. Revenue and
// tax count only paid orders; the pending amount is the outstanding total
// on unpaid ones.
func (r *OrderRepository) Stats(ctx context.Context) (*models.OrderStats, error) {
	query := `
		SELECT COUNT(*) AS total_orders,
			   COUNT(*) FILTER (WHERE status <> $1) AS open_orders,
			   COALESCE(SUM(total) FILTER (WHERE is_paid), 0) AS paid_revenue,
			   COALESCE(SUM(tax) FILTER (WHERE is_paid), 0) AS collected_tax,
			   COALESCE(SUM(total) FILTER (WHERE NOT is_paid), 0) AS pending_amount
		FROM orders
	`

	var stats models.OrderStats
	err := r.db.DB.GetContext(ctx, &stats, query, models.OrderStatusDelivered)

	if err != nil {
		r.logger.Error("Failed to compute order stats", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &stats, nil
}

// Count counts the total number of orders
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}

func requireOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
