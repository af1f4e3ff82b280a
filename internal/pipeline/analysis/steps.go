package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/indicators"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/internal/signals"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/pkg/logger"
)

// Step names, in execution order
const (
	StepLoadPortfolio           = "LoadPortfolio"
	StepDiscoverNewTickers      = "DiscoverNewTickers"
	StepFetchMarketData         = "FetchMarketData"
	StepCalculateIndicators     = "CalculateIndicators"
	StepScoreFundamentals       = "ScoreFundamentals"
	StepEvaluateTechnicalScores = "EvaluateTechnicalScores"
	StepGenerateSignals         = "GenerateSignals"
	StepLogSignals              = "LogSignals"
)

// ReasonEmptyPortfolio is the early-exit reason when there is nothing to analyse
const ReasonEmptyPortfolio = "portfolio is empty"

// ==============================================
// LoadPortfolio
// ==============================================

// LoadPortfolio replaces the stored holdings with the broker snapshot.
// Reads: nothing. Writes: Holdings, Held, Universe.
type LoadPortfolio struct {
	gateway   contracts.Gateway
	holdings  contracts.Repository[contracts.PortfolioAsset]
	discovery bool
	logger    *logger.Logger
}

func (s *LoadPortfolio) Name() string { return StepLoadPortfolio }

func (s *LoadPortfolio) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	assets, err := s.gateway.GetPortfolio(ctx)
	if err != nil {
		return pipeline.Continue(), fmt.Errorf("get portfolio: %w", err)
	}

	if err := storage.Replace(ctx, s.holdings, assets); err != nil {
		return pipeline.Continue(), fmt.Errorf("replace holdings: %w", err)
	}

	pc.Holdings = assets
	for _, a := range assets {
		if pc.addToUniverse(a.Ticker) {
			pc.Held = append(pc.Held, a.Ticker)
		}
	}

	s.logger.WithField("holdings", len(assets)).Info("Portfolio loaded")

	if len(assets) == 0 && !s.discovery {
		return pipeline.EarlyExit(ReasonEmptyPortfolio), nil
	}
	return pipeline.Continue(), nil
}

// ==============================================
// DiscoverNewTickers
// ==============================================

// DiscoverNewTickers adds the broker's top instruments to the universe.
// Reads: Universe. Writes: Universe.
type DiscoverNewTickers struct {
	gateway contracts.Gateway
	enabled bool
	count   int
	logger  *logger.Logger
}

func (s *DiscoverNewTickers) Name() string { return StepDiscoverNewTickers }

func (s *DiscoverNewTickers) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	if !s.enabled {
		s.logger.Debug("Discovery disabled")
		return pipeline.Continue(), nil
	}

	top, err := s.gateway.GetTopTickers(ctx, s.count)
	if err != nil {
		return pipeline.Continue(), fmt.Errorf("get top tickers: %w", err)
	}

	added := 0
	for _, t := range top {
		if pc.addToUniverse(t) {
			added++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"candidates": len(top),
		"added":      added,
		"universe":   len(pc.Universe),
	}).Info("Tickers discovered")

	return pipeline.Continue(), nil
}

// ==============================================
// FetchMarketData
// ==============================================

// FetchMarketData pulls the trailing bars of every ticker and refreshes stale fundamentals.
// The stored market data is replaced as one snapshot.
// Reads: Universe, Now. Writes: MarketData, Fundamentals.
type FetchMarketData struct {
	gateway      contracts.Gateway
	marketData   contracts.Repository[contracts.PriceHistoryPoint]
	fundamentals contracts.Repository[contracts.FundamentalData]
	cfg          strategyconfig.Analysis
	loc          *time.Location
	logger       *logger.Logger
}

func (s *FetchMarketData) Name() string { return StepFetchMarketData }

func (s *FetchMarketData) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	from := pc.Now.Add(-s.cfg.Window())

	var snapshot []contracts.PriceHistoryPoint
	for _, t := range pc.Universe {
		bars, err := s.gateway.GetHistoricalData(ctx, t, from, pc.Now)
		if err != nil {
			return pipeline.Continue(), fmt.Errorf("historical data %s: %w", t.Symbol, err)
		}
		pc.MarketData[t] = bars
		snapshot = append(snapshot, bars...)
	}

	if err := storage.Replace(ctx, s.marketData, snapshot); err != nil {
		return pipeline.Continue(), fmt.Errorf("replace market data: %w", err)
	}

	refreshed := 0
	for _, t := range pc.Universe {
		data, fresh, err := s.fundamentalsOf(ctx, t, pc)
		if err != nil {
			return pipeline.Continue(), err
		}
		if data == nil {
			continue
		}
		pc.Fundamentals[t] = *data
		if fresh {
			refreshed++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"tickers":      len(pc.Universe),
		"bars":         len(snapshot),
		"fundamentals": len(pc.Fundamentals),
		"refreshed":    refreshed,
	}).Info("Market data fetched")

	return pipeline.Continue(), nil
}

// fundamentalsOf returns the cached record when updated today, otherwise fetches and stores it.
// A fetch failure falls back to the stale record. nil means the ticker has no fundamentals.
func (s *FetchMarketData) fundamentalsOf(ctx context.Context, t contracts.Ticker, pc *Context) (*contracts.FundamentalData, bool, error) {
	cached, err := s.fundamentals.GetByID(ctx, t.Symbol)
	hasCached := err == nil
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return nil, false, fmt.Errorf("load fundamentals %s: %w", t.Symbol, err)
	}
	if hasCached && cached.IsFresh(pc.Now, s.loc) {
		return &cached, false, nil
	}

	fetched, err := s.gateway.GetFundamentals(ctx, t)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			s.logger.WithError(err).WithField("ticker", t.Symbol).Warn("Fundamentals fetch failed, using cached record")
		}
		if hasCached {
			return &cached, false, nil
		}
		return nil, false, nil
	}

	fetched.Ticker = t
	if fetched.UpdatedAt.IsZero() {
		fetched.UpdatedAt = pc.Now
	}
	if err := s.fundamentals.Add(ctx, *fetched); err != nil {
		return nil, false, fmt.Errorf("store fundamentals %s: %w", t.Symbol, err)
	}
	return fetched, true, nil
}

// ==============================================
// CalculateIndicators
// ==============================================

// CalculateIndicators computes the indicator set of every ticker with enough bars.
// Reads: Universe, MarketData. Writes: Indicators.
type CalculateIndicators struct {
	calculator *indicators.Calculator
	logger     *logger.Logger
}

func (s *CalculateIndicators) Name() string { return StepCalculateIndicators }

func (s *CalculateIndicators) Execute(_ context.Context, pc *Context) (pipeline.Outcome, error) {
	skipped := 0
	for _, t := range pc.Universe {
		series, ok := s.calculator.Calculate(t, pc.MarketData[t])
		if !ok {
			skipped++
			continue
		}
		pc.Indicators[t] = series
	}

	s.logger.WithFields(map[string]interface{}{
		"calculated": len(pc.Indicators),
		"skipped":    skipped,
	}).Info("Indicators calculated")

	return pipeline.Continue(), nil
}

// ==============================================
// ScoreFundamentals
// ==============================================

// ScoreFundamentals scores the held tickers that have fundamentals.
// Reads: Held, Fundamentals. Writes: FundamentalScores.
type ScoreFundamentals struct {
	scorer *signals.FundamentalScorer
	logger *logger.Logger
}

func (s *ScoreFundamentals) Name() string { return StepScoreFundamentals }

func (s *ScoreFundamentals) Execute(_ context.Context, pc *Context) (pipeline.Outcome, error) {
	pc.FundamentalScores = s.scorer.ScoreAll(pc.Held, pc.Fundamentals)

	s.logger.WithFields(map[string]interface{}{
		"held":   len(pc.Held),
		"scored": len(pc.FundamentalScores),
	}).Info("Fundamentals scored")

	return pipeline.Continue(), nil
}

// ==============================================
// EvaluateTechnicalScores
// ==============================================

// EvaluateTechnicalScores runs every strategy on every ticker with indicators.
// Reads: Universe, Indicators. Writes: TechnicalScores.
type EvaluateTechnicalScores struct {
	strategies []signals.Strategy
	logger     *logger.Logger
}

func (s *EvaluateTechnicalScores) Name() string { return StepEvaluateTechnicalScores }

func (s *EvaluateTechnicalScores) Execute(_ context.Context, pc *Context) (pipeline.Outcome, error) {
	for _, t := range pc.Universe {
		series, ok := pc.Indicators[t]
		if !ok {
			continue
		}
		pc.TechnicalScores[t] = signals.EvaluateAll(s.strategies, t, series)
	}

	s.logger.WithField("tickers", len(pc.TechnicalScores)).Info("Technical scores evaluated")
	return pipeline.Continue(), nil
}

// ==============================================
// GenerateSignals
// ==============================================

// GenerateSignals decides and stores one signal per ticker for the run date.
// Reads: Universe, Indicators, FundamentalScores, TechnicalScores. Writes: Signals.
type GenerateSignals struct {
	generator *signals.Generator
	signals   contracts.Repository[contracts.TradeSignal]
	logger    *logger.Logger
}

func (s *GenerateSignals) Name() string { return StepGenerateSignals }

func (s *GenerateSignals) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	pc.Signals = nil
	for _, t := range pc.Universe {
		series, ok := pc.Indicators[t]
		if !ok {
			continue
		}

		signal, ok := s.generator.Generate(t, pc.Date, series, pc.FundamentalScores[t], pc.TechnicalScores[t])
		if !ok {
			s.logger.WithField("ticker", t.Symbol).Debug("Missing indicator, no signal")
			continue
		}
		signal.CreatedAt = pc.Now
		pc.Signals = append(pc.Signals, signal)
	}

	if len(pc.Signals) > 0 {
		if err := s.signals.AddRange(ctx, pc.Signals); err != nil {
			return pipeline.Continue(), fmt.Errorf("store signals: %w", err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"signals":    len(pc.Signals),
		"actionable": len(pc.Actionable()),
	}).Info("Signals generated")

	return pipeline.Continue(), nil
}

// ==============================================
// LogSignals
// ==============================================

// LogSignals sends the summary of the actionable signals.
// Reads: Date, Signals.
type LogSignals struct {
	notifier contracts.Notifier
	logger   *logger.Logger
}

func (s *LogSignals) Name() string { return StepLogSignals }

func (s *LogSignals) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	actionable := pc.Actionable()
	text := FormatSignals(pc.Date, actionable)

	if err := s.notifier.SendMessage(ctx, text, len(actionable) == 0); err != nil {
		return pipeline.Continue(), fmt.Errorf("send signal summary: %w", err)
	}

	s.logger.WithField("actionable", len(actionable)).Info("Signal summary sent")
	return pipeline.Continue(), nil
}
