package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

type fakePrices map[string]float64

func (f fakePrices) GetCurrentPrice(_ context.Context, ticker contracts.Ticker) (float64, error) {
	price, ok := f[ticker.Symbol]
	if !ok {
		return 0, contracts.ErrPriceUnavailable
	}
	return price, nil
}

var (
	sber = contracts.Ticker{Symbol: "SBER"}
	gazp = contracts.Ticker{Symbol: "GAZP"}
	lkoh = contracts.Ticker{Symbol: "LKOH"}
)

func buy(t contracts.Ticker) contracts.TradeSignal {
	return contracts.TradeSignal{Ticker: t, Action: contracts.ActionBuy}
}

func TestLimitValidator(t *testing.T) {
	settings := contracts.BotSettings{MaxPositionPercent: 20, MinTradeAmount: 50}
	holdings := []contracts.PortfolioAsset{
		{Ticker: sber, Quantity: 10, CurrentPrice: 100},
		{Ticker: gazp, Quantity: 10, CurrentPrice: 100},
	}
	prices := fakePrices{"SBER": 100, "GAZP": 100, "LKOH": 100, "CHEAP": 10, "ZERO": 0}
	v := NewLimitValidator(prices, settings, logger.Nop())
	ctx := context.Background()

	tests := []struct {
		name   string
		signal contracts.TradeSignal
		want   bool
	}{
		{"sell always passes", contracts.TradeSignal{Ticker: contracts.Ticker{Symbol: "UNKNOWN"}, Action: contracts.ActionSell}, true},
		{"buy below minimum fails", buy(contracts.Ticker{Symbol: "CHEAP"}), false},
		{"buy pushing share over cap fails", buy(sber), false},
		{"buy within limits passes", buy(lkoh), true},
		{"buy without price fails", buy(contracts.Ticker{Symbol: "UNKNOWN"}), false},
		{"buy with zero price fails", buy(contracts.Ticker{Symbol: "ZERO"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(ctx, tt.signal, holdings))
		})
	}
}

func TestLimitValidator_ShareMeetingCapFails(t *testing.T) {
	v := NewLimitValidator(fakePrices{"LKOH": 100}, contracts.BotSettings{MaxPositionPercent: 100}, logger.Nop())

	check := v.Check(context.Background(), buy(lkoh), nil)

	assert.False(t, check.Passed)
	assert.InDelta(t, 100, check.Share, 1e-9)
}

func TestPositionShare(t *testing.T) {
	holdings := []contracts.PortfolioAsset{
		{Ticker: sber, Quantity: 10, CurrentPrice: 100},
		{Ticker: gazp, Quantity: 30, CurrentPrice: 100},
	}

	share := PositionShare(sber, 100, holdings)

	// (1000 + 100) / (4000 + 100) * 100
	assert.InDelta(t, 26.829268, share.InexactFloat64(), 1e-6)
}

func TestCalculateVolume(t *testing.T) {
	ctx := context.Background()
	prices := fakePrices{"SBER": 100, "GAZP": 3000, "LKOH": 20000, "ZERO": 0}
	calc := NewVolumeCalculator(prices, 10000, 5, logger.Nop())

	allocated := 250.0
	withCash := buy(sber)
	withCash.AllocatedCash = &allocated

	tests := []struct {
		name   string
		signal contracts.TradeSignal
		want   int64
	}{
		{"capped at max lots", buy(sber), 5},
		{"hold is zero", contracts.TradeSignal{Ticker: sber, Action: contracts.ActionHold}, 0},
		{"budget limited", buy(gazp), 3},
		{"price above budget", buy(lkoh), 0},
		{"zero price", buy(contracts.Ticker{Symbol: "ZERO"}), 0},
		{"price unavailable", buy(contracts.Ticker{Symbol: "UNKNOWN"}), 0},
		{"allocated cash does not change sizing", withCash, 5},
		{"sell is sized too", contracts.TradeSignal{Ticker: gazp, Action: contracts.ActionSell}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.CalculateVolume(ctx, tt.signal))
		})
	}
}

func success(side contracts.Action, qty int64, price float64) contracts.ExecutedTrade {
	return contracts.ExecutedTrade{ID: "t", Ticker: sber, Side: side, Quantity: qty, Price: price, Status: contracts.TradeSuccess}
}

func TestApplyTrade_BuyMergesWeightedAverage(t *testing.T) {
	now := time.Now()
	existing := &contracts.PortfolioAsset{Ticker: sber, Quantity: 10, AveragePrice: 100, CurrentPrice: 100}

	merged, keep, err := ApplyTrade(existing, success(contracts.ActionBuy, 10, 100), now)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, int64(20), merged.Quantity)
	assert.InDelta(t, 100, merged.AveragePrice, 1e-9)

	merged, _, err = ApplyTrade(&merged, success(contracts.ActionBuy, 20, 130), now)
	require.NoError(t, err)
	assert.Equal(t, int64(40), merged.Quantity)
	assert.InDelta(t, 115, merged.AveragePrice, 1e-9)
	assert.Equal(t, 130.0, merged.CurrentPrice)
}

func TestApplyTrade_BuyCreatesHolding(t *testing.T) {
	created, keep, err := ApplyTrade(nil, success(contracts.ActionBuy, 3, 250), time.Now())
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, int64(3), created.Quantity)
	assert.Equal(t, 250.0, created.AveragePrice)
}

func TestApplyTrade_Sell(t *testing.T) {
	existing := &contracts.PortfolioAsset{Ticker: sber, Quantity: 10, AveragePrice: 100}

	partial, keep, err := ApplyTrade(existing, success(contracts.ActionSell, 4, 120), time.Now())
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, int64(6), partial.Quantity)
	assert.Equal(t, 100.0, partial.AveragePrice, "selling keeps the average")

	_, keep, err = ApplyTrade(existing, success(contracts.ActionSell, 10, 120), time.Now())
	require.NoError(t, err)
	assert.False(t, keep, "selling to exactly zero removes the holding")

	clamped, keep, err := ApplyTrade(existing, success(contracts.ActionSell, 15, 120), time.Now())
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Equal(t, int64(0), clamped.Quantity)
}

func TestApplyTrade_Rejections(t *testing.T) {
	_, _, err := ApplyTrade(nil, success(contracts.ActionSell, 1, 100), time.Now())
	assert.True(t, errors.Is(err, ErrNoHolding))

	failed := success(contracts.ActionBuy, 1, 100)
	failed.Status = contracts.TradeError
	_, _, err = ApplyTrade(nil, failed, time.Now())
	assert.Error(t, err)
}
