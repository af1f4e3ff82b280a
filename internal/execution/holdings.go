package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradebot/internal/contracts"
)

// ErrNoHolding is returned when a sell targets a ticker that is not held
var ErrNoHolding = errors.New("no holding to sell")

// ApplyTrade returns the holding after a successful trade.
// keep is false when the quantity reached zero and the holding must be removed.
//
//	Buy:  newAvg = (oldQty*oldAvg + qty*price) / (oldQty + qty)
//	Sell: quantity decremented, clamped at zero
func ApplyTrade(existing *contracts.PortfolioAsset, trade contracts.ExecutedTrade, now time.Time) (contracts.PortfolioAsset, bool, error) {
	if trade.Status != contracts.TradeSuccess {
		return contracts.PortfolioAsset{}, false, fmt.Errorf("trade %s has status %s, only successful trades change holdings", trade.ID, trade.Status)
	}

	switch trade.Side {
	case contracts.ActionBuy:
		if existing == nil {
			return contracts.PortfolioAsset{
				Ticker:       trade.Ticker,
				Quantity:     trade.Quantity,
				CurrentPrice: trade.Price,
				AveragePrice: trade.Price,
				UpdatedAt:    now,
			}, true, nil
		}

		oldQty := decimal.NewFromInt(existing.Quantity)
		qty := decimal.NewFromInt(trade.Quantity)
		totalQty := oldQty.Add(qty)

		merged := *existing
		merged.Quantity = existing.Quantity + trade.Quantity
		merged.CurrentPrice = trade.Price
		merged.UpdatedAt = now
		if !totalQty.IsZero() {
			cost := oldQty.Mul(decimal.NewFromFloat(existing.AveragePrice)).
				Add(qty.Mul(decimal.NewFromFloat(trade.Price)))
			merged.AveragePrice = cost.Div(totalQty).InexactFloat64()
		}
		return merged, true, nil

	case contracts.ActionSell:
		if existing == nil {
			return contracts.PortfolioAsset{}, false, fmt.Errorf("%s: %w", trade.Ticker.Symbol, ErrNoHolding)
		}

		reduced := *existing
		reduced.Quantity = existing.Quantity - trade.Quantity
		if reduced.Quantity < 0 {
			reduced.Quantity = 0
		}
		reduced.CurrentPrice = trade.Price
		reduced.UpdatedAt = now
		return reduced, reduced.Quantity > 0, nil

	default:
		return contracts.PortfolioAsset{}, false, fmt.Errorf("trade %s has no side", trade.ID)
	}
}
