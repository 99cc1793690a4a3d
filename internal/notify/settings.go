package notify

import (
	"sync"

	"github.com/cleanpress/laundry-pos/internal/models"
)

// SettingsSource provides the current messaging gateway settings
type SettingsSource interface {
	Current() models.NotificationSettings
}

// SettingsStore is a concurrency-safe holder for the gateway settings so
// the operator can swap them at runtime without restarting the scheduler
type SettingsStore struct {
	mu       sync.RWMutex
	settings models.NotificationSettings
}

// NewSettingsStore creates a store seeded with the given settings
func NewSettingsStore(settings models.NotificationSettings) *SettingsStore {
	return &SettingsStore{settings: settings}
}

// Current returns the settings as of now
func (s *SettingsStore) Current() models.NotificationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings; takes effect from the next scheduler tick
// and the next send
func (s *SettingsStore) Update(settings models.NotificationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}
