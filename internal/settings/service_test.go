package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/storage/memory"
	"github.com/wonny/tradebot/pkg/logger"
)

func newService() (*Service, *memory.Repository[contracts.BotSettings]) {
	repo := memory.NewRepository[contracts.BotSettings]()
	return NewService(repo, logger.Nop()), repo
}

func TestGetSettings_NotConfigured(t *testing.T) {
	svc, _ := newService()

	_, err := svc.GetSettings(context.Background())
	assert.ErrorIs(t, err, contracts.ErrSettingsNotConfigured)
}

func TestGetSettings_Ambiguous(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	require.NoError(t, repo.Add(ctx, contracts.BotSettings{ID: "bot"}))
	require.NoError(t, repo.Add(ctx, contracts.BotSettings{ID: "bot-copy"}))

	_, err := svc.GetSettings(ctx)
	assert.True(t, errors.Is(err, contracts.ErrSettingsAmbiguous))
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	settings := contracts.DefaultSettings()
	settings.ID = "ignored"
	settings.AutoTradingEnabled = true
	require.NoError(t, svc.SaveSettings(ctx, settings))

	got, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, contracts.SettingsID, got.ID)
	assert.True(t, got.AutoTradingEnabled)
	assert.False(t, got.UpdatedAt.IsZero())

	// saving again keeps exactly one record
	require.NoError(t, svc.SaveSettings(ctx, *got))
	_, err = svc.GetSettings(ctx)
	assert.NoError(t, err)
}

func TestOnSave_NotifiesStoredSettings(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	var seen []contracts.BotSettings
	svc.OnSave(func(s contracts.BotSettings) { seen = append(seen, s) })

	settings := contracts.DefaultSettings()
	settings.Schedule = "0 30 11 * * 1-5"
	require.NoError(t, svc.SaveSettings(ctx, settings))

	invalid := settings
	invalid.MaxPositionPercent = 0
	require.Error(t, svc.SaveSettings(ctx, invalid))

	require.Len(t, seen, 1, "rejected saves are not announced")
	assert.Equal(t, "0 30 11 * * 1-5", seen[0].Schedule)
	assert.Equal(t, contracts.SettingsID, seen[0].ID)
}

func TestEnsureDefaults(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefaults(ctx))
	got, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.AutoTradingEnabled)

	got.AutoTradingEnabled = true
	require.NoError(t, svc.SaveSettings(ctx, *got))
	require.NoError(t, svc.EnsureDefaults(ctx))

	again, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, again.AutoTradingEnabled, "existing settings are kept")
}

func TestValidate(t *testing.T) {
	valid := contracts.DefaultSettings()
	assert.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*contracts.BotSettings)
	}{
		{"zero position cap", func(s *contracts.BotSettings) { s.MaxPositionPercent = 0 }},
		{"position cap over 100", func(s *contracts.BotSettings) { s.MaxPositionPercent = 101 }},
		{"negative min amount", func(s *contracts.BotSettings) { s.MinTradeAmount = -1 }},
		{"five-field cron", func(s *contracts.BotSettings) { s.Schedule = "0 10 * * 1-5" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.Error(t, Validate(s))
		})
	}
}
