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

// InventoryRepository handles database operations for inventory items
type InventoryRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db *database.Database, logger logger.Logger) *InventoryRepository {
	return &InventoryRepository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all inventory items ordered by name
func (r *InventoryRepository) List(ctx context.Context) ([]*models.InventoryItem, error) {
	query := `SELECT id, name, stock, unit, threshold FROM inventory ORDER BY name`

	var items []*models.InventoryItem
	err := r.db.DB.SelectContext(ctx, &items, query)

	if err != nil {
		r.logger.Error("Failed to list inventory", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return items, nil
}

// Create inserts a new inventory item
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	query := `
		INSERT INTO inventory (id, name, stock, unit, threshold)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.DB.ExecContext(ctx, query, item.ID, item.Name, item.Stock, item.Unit, item.Threshold)

	if err != nil {
		r.logger.Error("Failed to create inventory item", "error", err, "itemID", item.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// AdjustStock applies a signed delta to an item's stock, clamped at zero,
// and returns the updated item
func (r *InventoryRepository) AdjustStock(ctx context.Context, id string, delta float64) (*models.InventoryItem, error) {
	query := `
		UPDATE inventory
		SET stock = GREATEST(stock + $1, 0)
		WHERE id = $2
		RETURNING id, name, stock, unit, threshold
	`

	var item models.InventoryItem
	err := r.db.DB.GetContext(ctx, &item, query, delta, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to adjust stock", "error", err, "itemID", id, "delta", delta)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &item, nil
}

// LowStockCount counts items at or below their reorder threshold
func (r *InventoryRepository) LowStockCount(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM inventory WHERE stock <= threshold`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count low stock items", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
