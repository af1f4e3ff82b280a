package autotrade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/execution"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/pkg/logger"
)

// Step names, in execution order
const (
	StepCheckAutoTradePermission = "CheckAutoTradePermission"
	StepLoadSignals              = "LoadSignals"
	StepValidateTradeLimits      = "ValidateTradeLimits"
	StepCalculateTradeVolume     = "CalculateTradeVolume"
	StepPlaceOrders              = "PlaceOrders"
	StepUpdatePortfolio          = "UpdatePortfolio"
	StepLogExecutedTrades        = "LogExecutedTrades"
)

// ReasonAutoTradingDisabled is the early-exit reason when the bot is switched off
const ReasonAutoTradingDisabled = "auto-trading is disabled"

// ==============================================
// CheckAutoTradePermission
// ==============================================

// CheckAutoTradePermission loads the settings and stops the run when trading is off.
// A missing or duplicated settings record fails the run. A preview runs regardless of the flag.
// Writes: Settings.
type CheckAutoTradePermission struct {
	settings contracts.SettingsService
	logger   *logger.Logger
}

func (s *CheckAutoTradePermission) Name() string { return StepCheckAutoTradePermission }

func (s *CheckAutoTradePermission) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return pipeline.Continue(), err
	}
	pc.Settings = settings

	if !settings.AutoTradingEnabled {
		if pc.Preview {
			s.logger.Info("Auto-trading disabled, previewing anyway")
			return pipeline.Continue(), nil
		}
		return pipeline.EarlyExit(ReasonAutoTradingDisabled), nil
	}
	return pipeline.Continue(), nil
}

// ==============================================
// LoadSignals
// ==============================================

// LoadSignals loads the Buy and Sell signals of Date.
// Reads: Date. Writes: Signals.
type LoadSignals struct {
	signals contracts.Repository[contracts.TradeSignal]
	logger  *logger.Logger
}

func (s *LoadSignals) Name() string { return StepLoadSignals }

func (s *LoadSignals) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	day := pc.Date.Format("2006-01-02")
	loaded, err := s.signals.GetAll(ctx, func(sig contracts.TradeSignal) bool {
		return sig.Action.IsActionable() && sig.Date.Format("2006-01-02") == day
	})
	if err != nil {
		return pipeline.Continue(), fmt.Errorf("load signals: %w", err)
	}
	pc.Signals = loaded

	s.logger.WithFields(map[string]interface{}{
		"date":    day,
		"signals": len(loaded),
	}).Info("Signals loaded")

	return pipeline.Continue(), nil
}

// ==============================================
// ValidateTradeLimits
// ==============================================

// ValidateTradeLimits drops the signals that break the position limits.
// Rejections are not errors. Reads: Settings, Signals. Writes: Holdings, Signals, Rejected.
type ValidateTradeLimits struct {
	prices   contracts.PriceSource
	holdings contracts.Repository[contracts.PortfolioAsset]
	logger   *logger.Logger
}

func (s *ValidateTradeLimits) Name() string { return StepValidateTradeLimits }

func (s *ValidateTradeLimits) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	if pc.Settings == nil {
		return pipeline.Continue(), errors.New("settings not loaded")
	}

	holdings, err := s.holdings.GetAll(ctx, nil)
	if err != nil {
		return pipeline.Continue(), fmt.Errorf("load holdings: %w", err)
	}
	pc.Holdings = holdings

	validator := execution.NewLimitValidator(s.prices, *pc.Settings, s.logger)
	accepted := pc.Signals[:0:0]
	for _, sig := range pc.Signals {
		if validator.Validate(ctx, sig, holdings) {
			accepted = append(accepted, sig)
		}
	}
	pc.Rejected = len(pc.Signals) - len(accepted)
	pc.Signals = accepted

	s.logger.WithFields(map[string]interface{}{
		"accepted": len(accepted),
		"rejected": pc.Rejected,
	}).Info("Trade limits validated")

	return pipeline.Continue(), nil
}

// ==============================================
// CalculateTradeVolume
// ==============================================

// CalculateTradeVolume turns each signal into a Pending trade. Zero quantity drops the signal.
// Reads: Signals. Writes: Trades.
type CalculateTradeVolume struct {
	calculator *execution.VolumeCalculator
	newID      func() string
	logger     *logger.Logger
}

func (s *CalculateTradeVolume) Name() string { return StepCalculateTradeVolume }

func (s *CalculateTradeVolume) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	pc.Trades = nil
	for _, sig := range pc.Signals {
		qty := s.calculator.CalculateVolume(ctx, sig)
		if qty <= 0 {
			s.logger.WithField("ticker", sig.Ticker.Symbol).Debug("Zero volume, signal dropped")
			continue
		}
		pc.Trades = append(pc.Trades, &contracts.ExecutedTrade{
			ID:         s.newID(),
			Ticker:     sig.Ticker,
			Side:       sig.Action,
			Quantity:   qty,
			Status:     contracts.TradePending,
			SignalDate: sig.Date,
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"signals": len(pc.Signals),
		"trades":  len(pc.Trades),
	}).Info("Trade volumes calculated")

	return pipeline.Continue(), nil
}

// ==============================================
// PlaceOrders
// ==============================================

// PlaceOrders sends one market order per pending trade. A failed order marks only its trade.
// In preview mode a quote is taken instead and trades stay Pending.
// Reads: Trades, Preview. Writes: Trades, Previews.
type PlaceOrders struct {
	gateway contracts.Gateway
	now     func() time.Time
	logger  *logger.Logger
}

func (s *PlaceOrders) Name() string { return StepPlaceOrders }

func (s *PlaceOrders) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	for _, trade := range pc.Trades {
		if pc.Preview {
			pc.Previews = append(pc.Previews, s.preview(ctx, trade))
			continue
		}
		s.place(ctx, trade)
	}

	s.logger.WithFields(map[string]interface{}{
		"preview":   pc.Preview,
		"succeeded": len(pc.Succeeded()),
		"failed":    len(pc.Failed()),
	}).Info("Orders processed")

	return pipeline.Continue(), nil
}

func (s *PlaceOrders) place(ctx context.Context, trade *contracts.ExecutedTrade) {
	log := s.logger.WithFields(map[string]interface{}{
		"trade_id": trade.ID,
		"ticker":   trade.Ticker.Symbol,
		"side":     trade.Side,
		"quantity": trade.Quantity,
	})

	price, err := s.gateway.PlaceMarketOrder(ctx, trade.Ticker, trade.Quantity, trade.Side)
	if err != nil {
		if markErr := trade.MarkError(err, s.now()); markErr != nil {
			log.WithError(markErr).Error("Trade state transition rejected")
		}
		log.WithError(err).Warn("Order failed")
		return
	}

	if markErr := trade.MarkSuccess(price, s.now()); markErr != nil {
		log.WithError(markErr).Error("Trade state transition rejected")
		return
	}
	log.WithField("price", price).Info("Order executed")
}

func (s *PlaceOrders) preview(ctx context.Context, trade *contracts.ExecutedTrade) contracts.OrderPreview {
	p := contracts.OrderPreview{
		TradeID:  trade.ID,
		Ticker:   trade.Ticker,
		Side:     trade.Side,
		Quantity: trade.Quantity,
	}

	price, err := s.gateway.GetCurrentPrice(ctx, trade.Ticker)
	if err != nil {
		p.Error = err.Error()
		return p
	}
	p.QuotedPrice = price
	p.Amount = price * float64(trade.Quantity)
	return p
}

// ==============================================
// UpdatePortfolio
// ==============================================

// UpdatePortfolio persists every settled trade and applies the successful ones to the holdings.
// Nothing is written in preview mode. Reads: Trades.
type UpdatePortfolio struct {
	trades   contracts.Repository[contracts.ExecutedTrade]
	holdings contracts.Repository[contracts.PortfolioAsset]
	now      func() time.Time
	logger   *logger.Logger
}

func (s *UpdatePortfolio) Name() string { return StepUpdatePortfolio }

func (s *UpdatePortfolio) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	if pc.Preview || len(pc.Trades) == 0 {
		return pipeline.Continue(), nil
	}

	records := make([]contracts.ExecutedTrade, 0, len(pc.Trades))
	for _, t := range pc.Trades {
		records = append(records, *t)
	}
	if err := s.trades.AddRange(ctx, records); err != nil {
		return pipeline.Continue(), fmt.Errorf("store trades: %w", err)
	}

	for _, trade := range pc.Succeeded() {
		if err := s.apply(ctx, *trade); err != nil {
			return pipeline.Continue(), err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"stored":  len(records),
		"applied": len(pc.Succeeded()),
	}).Info("Portfolio updated")

	return pipeline.Continue(), nil
}

func (s *UpdatePortfolio) apply(ctx context.Context, trade contracts.ExecutedTrade) error {
	var existing *contracts.PortfolioAsset
	current, err := s.holdings.GetByID(ctx, trade.Ticker.Symbol)
	switch {
	case err == nil:
		existing = &current
	case !errors.Is(err, contracts.ErrNotFound):
		return fmt.Errorf("load holding %s: %w", trade.Ticker.Symbol, err)
	}

	updated, keep, err := execution.ApplyTrade(existing, trade, s.now())
	if errors.Is(err, execution.ErrNoHolding) {
		s.logger.WithField("ticker", trade.Ticker.Symbol).Warn("Sold a ticker missing from the holdings snapshot")
		return nil
	}
	if err != nil {
		return err
	}

	if !keep {
		if err := s.holdings.Remove(ctx, trade.Ticker.Symbol); err != nil {
			return fmt.Errorf("remove holding %s: %w", trade.Ticker.Symbol, err)
		}
		return nil
	}
	if err := s.holdings.Add(ctx, updated); err != nil {
		return fmt.Errorf("store holding %s: %w", trade.Ticker.Symbol, err)
	}
	return nil
}

// ==============================================
// LogExecutedTrades
// ==============================================

// LogExecutedTrades reports the settled trades (or previews) with a CSV attachment.
// No-op when nothing was traded. Reads: Trades, Previews, Preview.
type LogExecutedTrades struct {
	notifier contracts.Notifier
	logger   *logger.Logger
}

func (s *LogExecutedTrades) Name() string { return StepLogExecutedTrades }

func (s *LogExecutedTrades) Execute(ctx context.Context, pc *Context) (pipeline.Outcome, error) {
	if pc.Preview {
		if len(pc.Previews) == 0 {
			return pipeline.Continue(), nil
		}
		return pipeline.Continue(), s.send(ctx, FormatPreviews(pc.Date, pc.Previews), reportName("order-preview", pc.Date), func(buf *bytes.Buffer) error {
			return WritePreviewsCSV(buf, pc.Previews)
		})
	}

	if len(pc.Trades) == 0 {
		return pipeline.Continue(), nil
	}
	return pipeline.Continue(), s.send(ctx, FormatTrades(pc.Date, pc.Succeeded(), pc.Failed()), reportName("trades", pc.Date), func(buf *bytes.Buffer) error {
		return WriteTradesCSV(buf, pc.Trades)
	})
}

func (s *LogExecutedTrades) send(ctx context.Context, text, name string, writeCSV func(*bytes.Buffer) error) error {
	if err := s.notifier.SendMessage(ctx, text, false); err != nil {
		return fmt.Errorf("send trade report: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf); err != nil {
		return fmt.Errorf("build trade report: %w", err)
	}
	if err := s.notifier.SendFile(ctx, &buf, name, "Trade report"); err != nil {
		return fmt.Errorf("send trade report file: %w", err)
	}

	s.logger.WithField("file", name).Info("Trade report sent")
	return nil
}

func reportName(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, date.Format("2006-01-02"))
}
