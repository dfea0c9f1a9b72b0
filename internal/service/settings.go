package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
	"github.com/mc3-grc/user-lifecycle-service/internal/store"
)

// SettingsService reads and writes system settings, auditing every change.
type SettingsService struct {
	settings store.SettingsStore
	audit    store.AuditStore
	logger   *zap.Logger
	now      func() time.Time
}

// SettingsListing is the getAllSystemSettings response shape.
type SettingsListing struct {
	Settings           []domain.SystemSetting            `json:"settings"`
	SettingsByCategory map[string][]domain.SystemSetting `json:"settingsByCategory"`
}

// SettingsUpdateResult reports an updateSystemSettings call.
type SettingsUpdateResult struct {
	Success         bool                   `json:"success"`
	UpdatedCount    int                    `json:"updatedCount"`
	UpdatedSettings []domain.SystemSetting `json:"updatedSettings"`
}

// NewSettingsService constructs the service.
func NewSettingsService(settings store.SettingsStore, audit store.AuditStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, audit: audit, logger: logger, now: time.Now}
}

// GetAll returns every setting, also grouped by category for the dashboard.
func (s *SettingsService) GetAll(ctx context.Context) (*SettingsListing, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	byCategory := make(map[string][]domain.SystemSetting)
	for _, setting := range settings {
		category := setting.Category
		if category == "" {
			category = "general"
		}
		byCategory[category] = append(byCategory[category], setting)
	}
	return &SettingsListing{Settings: settings, SettingsByCategory: byCategory}, nil
}

// Update upserts the given settings one at a time. A failed setting is
// logged and skipped; the call reports how many were written.
func (s *SettingsService) Update(ctx context.Context, settings []domain.SystemSetting, updatedBy string) SettingsUpdateResult {
	now := s.now().UTC().Format(time.RFC3339)
	result := SettingsUpdateResult{Success: true, UpdatedSettings: []domain.SystemSetting{}}

	for i := range settings {
		setting := settings[i]
		if setting.ID == "" {
			setting.ID = domain.NewSettingID()
		}
		setting.LastUpdated = now
		if updatedBy != "" {
			setting.UpdatedBy = updatedBy
		}

		if err := s.settings.Put(ctx, &setting); err != nil {
			s.logger.Error("setting update failed", zap.String("setting", setting.Name), zap.Error(err))
			continue
		}
		result.UpdatedCount++
		result.UpdatedSettings = append(result.UpdatedSettings, setting)

		category := setting.Category
		if category == "" {
			category = "general"
		}
		entry := domain.AuditEntry{
			ID:               domain.NewAuditID(),
			Timestamp:        now,
			Action:           domain.ActionSettingUpdated,
			PerformedBy:      actorOrSystem(updatedBy),
			AffectedResource: "SystemSettings",
			ResourceID:       setting.ID,
			Details: map[string]any{
				"name":     setting.Name,
				"category": category,
			},
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Error("audit append failed", zap.String("setting", setting.ID), zap.Error(err))
		}
	}
	return result
}
