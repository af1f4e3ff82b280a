package execution

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// =============================================================================
// LimitValidator - pre-order limit gate
// =============================================================================

// LimitValidator gates new exposure against the bot settings
// ⭐ SSOT: pre-order limit checks live here only
type LimitValidator struct {
	prices   contracts.PriceSource
	settings contracts.BotSettings
	logger   *logger.Logger
}

// NewLimitValidator creates a validator for one run's settings
func NewLimitValidator(prices contracts.PriceSource, settings contracts.BotSettings, log *logger.Logger) *LimitValidator {
	return &LimitValidator{
		prices:   prices,
		settings: settings,
		logger:   log,
	}
}

// LimitCheck is the outcome of one check
type LimitCheck struct {
	Passed bool    `json:"passed"`
	Price  float64 `json:"price,omitempty"`
	Share  float64 `json:"share_pct,omitempty"` // resulting position share after one more unit
	Reason string  `json:"reason"`
}

// Validate reports whether the signal may be traded
func (v *LimitValidator) Validate(ctx context.Context, signal contracts.TradeSignal, holdings []contracts.PortfolioAsset) bool {
	check := v.Check(ctx, signal, holdings)
	if !check.Passed {
		v.logger.WithFields(map[string]interface{}{
			"ticker": signal.Ticker.Symbol,
			"action": signal.Action,
			"reason": check.Reason,
		}).Info("Signal rejected by trade limits")
	}
	return check.Passed
}

// Check evaluates the limits. Non-Buy signals always pass: limits apply to new exposure only.
func (v *LimitValidator) Check(ctx context.Context, signal contracts.TradeSignal, holdings []contracts.PortfolioAsset) LimitCheck {
	if signal.Action != contracts.ActionBuy {
		return LimitCheck{Passed: true, Reason: "limits apply to buys only"}
	}

	price, err := v.prices.GetCurrentPrice(ctx, signal.Ticker)
	if err != nil {
		return LimitCheck{Reason: fmt.Sprintf("price unavailable: %v", err)}
	}
	if price <= 0 {
		return LimitCheck{Reason: fmt.Sprintf("invalid price %v", price)}
	}

	if price < v.settings.MinTradeAmount {
		return LimitCheck{
			Price:  price,
			Reason: fmt.Sprintf("price %.2f below minimum trade amount %.2f", price, v.settings.MinTradeAmount),
		}
	}

	share := PositionShare(signal.Ticker, price, holdings)
	maxShare := decimal.NewFromFloat(v.settings.MaxPositionPercent)
	shareF := share.InexactFloat64()
	if share.GreaterThanOrEqual(maxShare) {
		return LimitCheck{
			Price:  price,
			Share:  shareF,
			Reason: fmt.Sprintf("position share %.2f%% reaches cap %.2f%%", shareF, v.settings.MaxPositionPercent),
		}
	}

	return LimitCheck{Passed: true, Price: price, Share: shareF, Reason: "within limits"}
}

// PositionShare returns (existingPositionValue + price) / (totalPortfolioValue + price) * 100
func PositionShare(ticker contracts.Ticker, price float64, holdings []contracts.PortfolioAsset) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	position := decimal.Zero
	total := decimal.Zero
	for _, h := range holdings {
		value := decimal.NewFromInt(h.Quantity).Mul(decimal.NewFromFloat(h.CurrentPrice))
		total = total.Add(value)
		if h.Ticker.Symbol == ticker.Symbol {
			position = position.Add(value)
		}
	}

	denominator := total.Add(p)
	if denominator.IsZero() {
		return decimal.Zero
	}
	return position.Add(p).Div(denominator).Mul(decimal.NewFromInt(100))
}
