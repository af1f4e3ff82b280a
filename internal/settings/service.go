package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// Service owns the BotSettings singleton
// ⭐ SSOT: BotSettings is read and written here only
type Service struct {
	repo   contracts.Repository[contracts.BotSettings]
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	listeners []func(contracts.BotSettings)
}

// NewService creates a settings service over repo
func NewService(repo contracts.Repository[contracts.BotSettings], log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log.WithComponent("settings"),
		now:    time.Now,
	}
}

// GetSettings returns the single settings record.
// Zero records ⇒ ErrSettingsNotConfigured, more than one ⇒ ErrSettingsAmbiguous.
func (s *Service) GetSettings(ctx context.Context) (*contracts.BotSettings, error) {
	all, err := s.repo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	switch len(all) {
	case 0:
		return nil, contracts.ErrSettingsNotConfigured
	case 1:
		settings := all[0]
		return &settings, nil
	default:
		return nil, fmt.Errorf("%w: %d records", contracts.ErrSettingsAmbiguous, len(all))
	}
}

// OnSave registers fn to be called with the stored settings after every save
func (s *Service) OnSave(fn func(contracts.BotSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SaveSettings validates and upserts the settings under the well-known id
func (s *Service) SaveSettings(ctx context.Context, settings contracts.BotSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	settings.ID = contracts.SettingsID
	settings.UpdatedAt = s.now()

	if err := s.repo.Add(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"auto_trading": settings.AutoTradingEnabled,
		"max_position": settings.MaxPositionPercent,
		"min_amount":   settings.MinTradeAmount,
		"schedule":     settings.Schedule,
	}).Info("Bot settings saved")

	s.mu.Lock()
	listeners := make([]func(contracts.BotSettings), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(settings)
	}
	return nil
}

// EnsureDefaults stores DefaultSettings when no record exists yet
func (s *Service) EnsureDefaults(ctx context.Context) error {
	_, err := s.GetSettings(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, contracts.ErrSettingsNotConfigured) {
		return err
	}
	return s.SaveSettings(ctx, contracts.DefaultSettings())
}

// ScheduleParser parses six-field cron expressions (with seconds)
var ScheduleParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the value ranges of settings
func Validate(settings contracts.BotSettings) error {
	if settings.MaxPositionPercent <= 0 || settings.MaxPositionPercent > 100 {
		return fmt.Errorf("max_position_percent must be in (0, 100], got %v", settings.MaxPositionPercent)
	}
	if settings.MinTradeAmount < 0 {
		return fmt.Errorf("min_trade_amount must be >= 0, got %v", settings.MinTradeAmount)
	}
	if settings.Schedule != "" {
		if _, err := ScheduleParser.Parse(settings.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", settings.Schedule, err)
		}
	}
	return nil
}
