package usecase

import (
	"context"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/pipeline/analysis"
	"github.com/wonny/tradebot/internal/pipeline/autotrade"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/pkg/logger"
)

// Deps are the collaborators shared by every pipeline
type Deps struct {
	Gateway  contracts.Gateway
	Store    *storage.Store
	Settings contracts.SettingsService
	Notifier contracts.Notifier
	Config   *strategyconfig.Config
	Location *time.Location
	Logger   *logger.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Pipelines registers analysis, autotrade and autotrade-preview
func Pipelines(d Deps) *Registry {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	r := NewRegistry()

	r.Register(contracts.PipelineAnalysis, func(context.Context) (Runnable, error) {
		engine := analysis.New(analysis.Deps{
			Gateway:  d.Gateway,
			Store:    d.Store,
			Notifier: d.Notifier,
			Config:   d.Config,
			Location: loc,
			Logger:   d.Logger,
		})
		return Bind(engine, analysis.NewContext(now(), loc)), nil
	})

	autoTrade := func(preview bool) Factory {
		return func(context.Context) (Runnable, error) {
			engine := autotrade.New(autotrade.Deps{
				Gateway:  d.Gateway,
				Store:    d.Store,
				Settings: d.Settings,
				Notifier: d.Notifier,
				Config:   d.Config,
				Logger:   d.Logger,
				Now:      now,
			}, preview)
			return Bind(engine, autotrade.NewContext(contracts.DateOf(now(), loc), preview)), nil
		}
	}
	r.Register(contracts.PipelineAutoTrade, autoTrade(false))
	r.Register(contracts.PipelineAutoTradePreview, autoTrade(true))

	return r
}
