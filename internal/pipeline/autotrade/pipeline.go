package autotrade

import (
	"time"

	"github.com/google/uuid"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/execution"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/pkg/logger"
)

// Deps are the collaborators of the auto-trade pipeline
type Deps struct {
	Gateway  contracts.Gateway
	Store    *storage.Store
	Settings contracts.SettingsService
	Notifier contracts.Notifier
	Config   *strategyconfig.Config
	Logger   *logger.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Steps returns the auto-trade steps in execution order
func Steps(d Deps) []pipeline.Step[*Context] {
	log := d.Logger.WithComponent("autotrade")
	now := d.Now
	if now == nil {
		now = time.Now
	}

	return []pipeline.Step[*Context]{
		&CheckAutoTradePermission{
			settings: d.Settings,
			logger:   log.WithField("step", StepCheckAutoTradePermission),
		},
		&LoadSignals{
			signals: d.Store.Signals,
			logger:  log.WithField("step", StepLoadSignals),
		},
		&ValidateTradeLimits{
			prices:   d.Gateway,
			holdings: d.Store.Holdings,
			logger:   log.WithField("step", StepValidateTradeLimits),
		},
		&CalculateTradeVolume{
			calculator: execution.NewVolumeCalculator(d.Gateway, d.Config.Execution.MaxTradeAmount, d.Config.Execution.MaxLotsPerTrade, log),
			newID:      uuid.NewString,
			logger:     log.WithField("step", StepCalculateTradeVolume),
		},
		&PlaceOrders{
			gateway: d.Gateway,
			now:     now,
			logger:  log.WithField("step", StepPlaceOrders),
		},
		&UpdatePortfolio{
			trades:   d.Store.Trades,
			holdings: d.Store.Holdings,
			now:      now,
			logger:   log.WithField("step", StepUpdatePortfolio),
		},
		&LogExecutedTrades{
			notifier: d.Notifier,
			logger:   log.WithField("step", StepLogExecutedTrades),
		},
	}
}

// New builds the auto-trade engine. Preview runs are registered under their own name.
func New(d Deps, preview bool) *pipeline.Engine[*Context] {
	name := contracts.PipelineAutoTrade
	if preview {
		name = contracts.PipelineAutoTradePreview
	}
	return pipeline.New(name, Steps(d), d.Logger)
}
