package analysis

import (
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/indicators"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/internal/signals"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/pkg/logger"
)

// Deps are the collaborators of the analysis pipeline
type Deps struct {
	Gateway  contracts.Gateway
	Store    *storage.Store
	Notifier contracts.Notifier
	Config   *strategyconfig.Config
	Location *time.Location
	Logger   *logger.Logger
}

// Steps returns the analysis steps in execution order
func Steps(d Deps) []pipeline.Step[*Context] {
	log := d.Logger.WithComponent("analysis")
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	return []pipeline.Step[*Context]{
		&LoadPortfolio{
			gateway:   d.Gateway,
			holdings:  d.Store.Holdings,
			discovery: d.Config.Analysis.Discovery,
			logger:    log.WithField("step", StepLoadPortfolio),
		},
		&DiscoverNewTickers{
			gateway: d.Gateway,
			enabled: d.Config.Analysis.Discovery,
			count:   d.Config.Analysis.TopTickers,
			logger:  log.WithField("step", StepDiscoverNewTickers),
		},
		&FetchMarketData{
			gateway:      d.Gateway,
			marketData:   d.Store.MarketData,
			fundamentals: d.Store.Fundamentals,
			cfg:          d.Config.Analysis,
			loc:          loc,
			logger:       log.WithField("step", StepFetchMarketData),
		},
		&CalculateIndicators{
			calculator: indicators.NewCalculator(d.Config.Analysis.MinBars, log),
			logger:     log.WithField("step", StepCalculateIndicators),
		},
		&ScoreFundamentals{
			scorer: signals.NewFundamentalScorer(d.Config.Fundamentals),
			logger: log.WithField("step", StepScoreFundamentals),
		},
		&EvaluateTechnicalScores{
			strategies: signals.Strategies(d.Config.Signals),
			logger:     log.WithField("step", StepEvaluateTechnicalScores),
		},
		&GenerateSignals{
			generator: signals.NewGenerator(d.Config.Signals),
			signals:   d.Store.Signals,
			logger:    log.WithField("step", StepGenerateSignals),
		},
		&LogSignals{
			notifier: d.Notifier,
			logger:   log.WithField("step", StepLogSignals),
		},
	}
}

// New builds the analysis engine
func New(d Deps) *pipeline.Engine[*Context] {
	return pipeline.New(contracts.PipelineAnalysis, Steps(d), d.Logger)
}
