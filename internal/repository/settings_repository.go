package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cleanpress/laundry-pos/internal/database"
	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

const notificationSettingsKey = "twilio"

// SettingsRepository persists operator-editable settings as JSONB documents
type SettingsRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *database.Database, logger logger.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// GetNotificationSettings loads the messaging gateway settings; ErrNotFound
// when they were never saved
func (r *SettingsRepository) GetNotificationSettings(ctx context.Context) (models.NotificationSettings, error) {
	var settings models.NotificationSettings

	query := `SELECT value FROM settings WHERE key = $1`

	var raw []byte
	err := r.db.DB.GetContext(ctx, &raw, query, notificationSettingsKey)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, ErrNotFound
		}
		r.logger.Error("Failed to get notification settings", "error", err)
		return settings, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := json.Unmarshal(raw, &settings); err != nil {
		r.logger.Error("Failed to decode notification settings", "error", err)
		return settings, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return settings, nil
}

// SaveNotificationSettings upserts the messaging gateway settings
func (r *SettingsRepository) SaveNotificationSettings(ctx context.Context, settings models.NotificationSettings) error {
	raw, err := json.Marshal(settings)

	if err != nil {
		return fmt.Errorf("failed to encode notification settings: %w", err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.DB.ExecContext(ctx, query, notificationSettingsKey, raw, models.GetCurrentTime())

	if err != nil {
		r.logger.Error("Failed to save notification settings", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
