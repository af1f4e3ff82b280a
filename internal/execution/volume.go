package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// VolumeCalculator sizes orders
// ⭐ SSOT: order quantity is computed here only (fail-closed: any doubt ⇒ 0)
type VolumeCalculator struct {
	prices          contracts.PriceSource
	maxTradeAmount  decimal.Decimal
	maxLotsPerTrade int64
	logger          *logger.Logger
}

// NewVolumeCalculator creates a calculator with the per-trade budget and lot cap
func NewVolumeCalculator(prices contracts.PriceSource, maxTradeAmount float64, maxLotsPerTrade int64, log *logger.Logger) *VolumeCalculator {
	return &VolumeCalculator{
		prices:          prices,
		maxTradeAmount:  decimal.NewFromFloat(maxTradeAmount),
		maxLotsPerTrade: maxLotsPerTrade,
		logger:          log,
	}
}

// CalculateVolume returns the order quantity of a signal, 0 when it must not be traded.
// quantity = min(floor(maxTradeAmount / price), maxLotsPerTrade)
func (c *VolumeCalculator) CalculateVolume(ctx context.Context, signal contracts.TradeSignal) int64 {
	if signal.Action == contracts.ActionHold {
		return 0
	}

	price, err := c.prices.GetCurrentPrice(ctx, signal.Ticker)
	if err != nil || price <= 0 {
		c.logger.WithFields(map[string]interface{}{
			"ticker": signal.Ticker.Symbol,
			"price":  price,
		}).WithError(err).Warn("No usable price, volume is 0")
		return 0
	}

	raw := c.maxTradeAmount.Div(decimal.NewFromFloat(price)).Floor().IntPart()
	if raw <= 0 {
		return 0
	}
	if raw > c.maxLotsPerTrade {
		return c.maxLotsPerTrade
	}
	return raw
}
