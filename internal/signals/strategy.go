package signals

import (
	"fmt"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/strategyconfig"
)

// Strategy maps the indicator series of one ticker to a directional score.
// ok is false when the strategy has no opinion (indicator missing or nil).
type Strategy interface {
	Name() string
	Evaluate(ticker contracts.Ticker, series contracts.IndicatorSeries) (score contracts.TechnicalScore, ok bool)
}

// Strategies returns the registered strategy set, in evaluation order
func Strategies(cfg strategyconfig.Signals) []Strategy {
	return []Strategy{
		RSIStrategy{Oversold: cfg.RSIOversold, Overbought: cfg.RSIOverbought},
		MACDStrategy{},
		PriceVsAverageStrategy{Average: contracts.IndicatorEMA12},
		PriceVsAverageStrategy{Average: contracts.IndicatorSMA20},
		ADXStrategy{Trend: cfg.ADXTrend, Weak: cfg.ADXWeak},
	}
}

// RSIStrategy: oversold ⇒ Buy/Medium, overbought ⇒ Sell/Medium
type RSIStrategy struct {
	Oversold   float64
	Overbought float64
}

func (s RSIStrategy) Name() string { return contracts.IndicatorRSI14 }

func (s RSIStrategy) Evaluate(_ contracts.Ticker, series contracts.IndicatorSeries) (contracts.TechnicalScore, bool) {
	rsi, ok := series.Latest(contracts.IndicatorRSI14)
	if !ok {
		return contracts.TechnicalScore{}, false
	}

	switch {
	case rsi < s.Oversold:
		return contracts.NewTechnicalScore(s.Name(), rsi, contracts.ActionBuy, contracts.ConfidenceMedium,
			fmt.Sprintf("RSI %.2f below %.0f: oversold", rsi, s.Oversold)), true
	case rsi > s.Overbought:
		return contracts.NewTechnicalScore(s.Name(), rsi, contracts.ActionSell, contracts.ConfidenceMedium,
			fmt.Sprintf("RSI %.2f above %.0f: overbought", rsi, s.Overbought)), true
	default:
		return contracts.NewTechnicalScore(s.Name(), rsi, contracts.ActionHold, contracts.ConfidenceLow,
			fmt.Sprintf("RSI %.2f neutral", rsi)), true
	}
}

// MACDStrategy: positive MACD line ⇒ Buy, negative ⇒ Sell
type MACDStrategy struct{}

func (MACDStrategy) Name() string { return contracts.IndicatorMACD }

func (s MACDStrategy) Evaluate(_ contracts.Ticker, series contracts.IndicatorSeries) (contracts.TechnicalScore, bool) {
	macd, ok := series.Latest(contracts.IndicatorMACD)
	if !ok {
		return contracts.TechnicalScore{}, false
	}

	action, reason := directional(macd, 0, "MACD above zero: bullish momentum", "MACD below zero: bearish momentum", "MACD flat")
	return contracts.NewTechnicalScore(s.Name(), macd, action, contracts.ConfidenceLow, reason), true
}

// PriceVsAverageStrategy compares the last close against a moving average.
// Both values must be present.
type PriceVsAverageStrategy struct {
	Average string // IndicatorEMA12 or IndicatorSMA20
}

func (s PriceVsAverageStrategy) Name() string { return s.Average + "_VS_CLOSE" }

func (s PriceVsAverageStrategy) Evaluate(_ contracts.Ticker, series contracts.IndicatorSeries) (contracts.TechnicalScore, bool) {
	avg, ok := series.Latest(s.Average)
	if !ok {
		return contracts.TechnicalScore{}, false
	}
	price, ok := series.Latest(contracts.IndicatorClose)
	if !ok {
		return contracts.TechnicalScore{}, false
	}

	action, reason := directional(price, avg,
		fmt.Sprintf("price above %s", s.Average),
		fmt.Sprintf("price below %s", s.Average),
		fmt.Sprintf("price at %s", s.Average))
	return contracts.NewTechnicalScore(s.Name(), price-avg, action, contracts.ConfidenceLow, reason), true
}

// ADXStrategy: a strong trend ⇒ Buy; weak or undecided ⇒ Hold
type ADXStrategy struct {
	Trend float64
	Weak  float64
}

func (s ADXStrategy) Name() string { return contracts.IndicatorADX14 }

func (s ADXStrategy) Evaluate(_ contracts.Ticker, series contracts.IndicatorSeries) (contracts.TechnicalScore, bool) {
	adx, ok := series.Latest(contracts.IndicatorADX14)
	if !ok {
		return contracts.TechnicalScore{}, false
	}

	switch {
	case adx > s.Trend:
		return contracts.NewTechnicalScore(s.Name(), adx, contracts.ActionBuy, contracts.ConfidenceLow,
			fmt.Sprintf("ADX %.2f: strong trend", adx)), true
	case adx < s.Weak:
		return contracts.NewTechnicalScore(s.Name(), adx, contracts.ActionHold, contracts.ConfidenceLow,
			fmt.Sprintf("ADX %.2f: no trend", adx)), true
	default:
		return contracts.NewTechnicalScore(s.Name(), adx, contracts.ActionHold, contracts.ConfidenceLow,
			fmt.Sprintf("ADX %.2f: trend undecided", adx)), true
	}
}

func directional(value, pivot float64, above, below, equal string) (contracts.Action, string) {
	switch {
	case value > pivot:
		return contracts.ActionBuy, above
	case value < pivot:
		return contracts.ActionSell, below
	default:
		return contracts.ActionHold, equal
	}
}

// EvaluateAll runs every strategy and keeps the results that have an opinion
func EvaluateAll(strategies []Strategy, ticker contracts.Ticker, series contracts.IndicatorSeries) []contracts.TechnicalScore {
	scores := make([]contracts.TechnicalScore, 0, len(strategies))
	for _, s := range strategies {
		if score, ok := s.Evaluate(ticker, series); ok {
			scores = append(scores, score)
		}
	}
	return scores
}
