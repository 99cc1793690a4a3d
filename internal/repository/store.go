package repository

import (
	"context"
	"fmt"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

// Store composes the order and outbox repositories so every order write
// commits atomically with its event row. Readers go straight through to
// the order repository.
type Store struct {
	orders *OrderRepository
	outbox *OutboxRepository
	logger logger.Logger
}

// NewStore creates a Store over the given repositories
func NewStore(orders *OrderRepository, outbox *OutboxRepository, logger logger.Logger) *Store {
	return &Store{
		orders: orders,
		outbox: outbox,
		logger: logger,
	}
}

// GetByID retrieves an order by its ID
func (s *Store) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetAll retrieves all orders, newest first, with limit and offset
func (s *Store) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	return s.orders.GetAll(ctx, limit, offset)
}

// GetOpen retrieves every order that has not reached the terminal status
func (s *Store) GetOpen(ctx context.Context) ([]*models.Order, error) {
	return s.orders.GetOpen(ctx)
}

// Count counts the total number of orders
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.orders.Count(ctx)
}

// Stats computes the dashboard aggregates
func (s *Store) Stats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.Stats(ctx)
}

// CreateWithEvent inserts an order and its outbox event in one transaction
func (s *Store) CreateWithEvent(ctx context.Context, order *models.Order, event *models.OutboxMessage) error {
	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orders.CreateInTx(tx, order); err != nil {
		return err
	}

	if err = s.outbox.CreateInTx(tx, event); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateStatusWithEvent persists a status transition and its outbox event
// in one transaction
func (s *Store) UpdateStatusWithEvent(ctx context.Context, id string, status models.OrderStatus, event *models.OutboxMessage) error {
	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orders.UpdateStatusInTx(tx, id, status); err != nil {
		return err
	}

	if err = s.outbox.CreateInTx(tx, event); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdatePaymentWithEvent persists the payment flag and its outbox event in
// one transaction
func (s *Store) UpdatePaymentWithEvent(ctx context.Context, id string, isPaid bool, method models.PaymentMethod, event *models.OutboxMessage) error {
	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orders.UpdatePaymentInTx(tx, id, isPaid, method); err != nil {
		return err
	}

	if err = s.outbox.CreateInTx(tx, event); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
