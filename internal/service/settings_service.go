package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/notify"
	"github.com/cleanpress/laundry-pos/internal/repository"
	apperrors "github.com/cleanpress/laundry-pos/pkg/errors"
	"github.com/cleanpress/laundry-pos/pkg/logger"
)

// SettingsPersistence is the persistence surface for operator settings
type SettingsPersistence interface {
	GetNotificationSettings(ctx context.Context) (models.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, settings models.NotificationSettings) error
}

var _ SettingsPersistence = (*repository.SettingsRepository)(nil)

// SettingsService keeps the persisted notification settings and the live
// in-memory copy used by the scheduler and gateway in step
type SettingsService struct {
	repo   SettingsPersistence
	live   *notify.SettingsStore
	logger logger.Logger
}

// NewSettingsService creates a new SettingsService around the live store
func NewSettingsService(repo SettingsPersistence, live *notify.SettingsStore, logger logger.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		live:   live,
		logger: logger,
	}
}

// Load seeds the live store from the database. Settings that were never
// saved are not an error; the environment-seeded values stay in effect.
func (s *SettingsService) Load(ctx context.Context) error {
	settings, err := s.repo.GetNotificationSettings(ctx)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("No stored notification settings, keeping environment defaults")
			return nil
		}
		return err
	}

	s.live.Update(settings)
	s.logger.Info("Notification settings loaded", "enabled", settings.Enabled)
	return nil
}

// Get returns the settings currently in effect
func (s *SettingsService) Get(_ context.Context) models.NotificationSettings {
	return s.live.Current()
}

// Update persists new settings and applies them to the live store, so the
// next scheduler tick and the next send pick them up
func (s *SettingsService) Update(ctx context.Context, settings models.NotificationSettings) error {
	if settings.Enabled && strings.TrimSpace(settings.AccountSid) == "" {
		return apperrors.NewInvalidInputError("cannot enable notifications without an account SID")
	}

	if err := s.repo.SaveNotificationSettings(ctx, settings); err != nil {
		return err
	}

	s.live.Update(settings)
	s.logger.Info("Notification settings updated", "enabled", settings.Enabled)
	return nil
}
