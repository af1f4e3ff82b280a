package signals

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/strategyconfig"
)

// requiredIndicators must all have a latest value for a signal to be produced
var requiredIndicators = []string{
	contracts.IndicatorRSI14,
	contracts.IndicatorEMA12,
	contracts.IndicatorSMA20,
	contracts.IndicatorADX14,
	contracts.IndicatorMACD,
}

// Generator turns indicators and the fundamental score into the daily signal
// ⭐ SSOT: the Buy/Sell/Hold decision rule lives here only
type Generator struct {
	cfg strategyconfig.Signals
}

// NewGenerator creates a generator over the given thresholds
func NewGenerator(cfg strategyconfig.Signals) *Generator {
	return &Generator{cfg: cfg}
}

// Generate decides the signal of one ticker for date.
// ok is false when a required indicator is missing.
// A missing fundamental score counts as 0.
func (g *Generator) Generate(ticker contracts.Ticker, date time.Time, series contracts.IndicatorSeries, fundamentalScore int, scores []contracts.TechnicalScore) (contracts.TradeSignal, bool) {
	latest := make(map[string]float64, len(requiredIndicators))
	for _, name := range requiredIndicators {
		v, ok := series.Latest(name)
		if !ok {
			return contracts.TradeSignal{}, false
		}
		latest[name] = v
	}

	rsi := latest[contracts.IndicatorRSI14]
	ema := latest[contracts.IndicatorEMA12]
	price, hasPrice := series.Latest(contracts.IndicatorClose)

	signal := contracts.TradeSignal{
		Ticker:           ticker,
		Date:             date,
		Action:           contracts.ActionHold,
		Confidence:       contracts.ConfidenceLow,
		FundamentalScore: fundamentalScore,
		TechnicalScores:  scores,
	}

	var reasons []string
	switch {
	case rsi < g.cfg.RSIOversold && !(hasPrice && price > ema):
		signal.Action = contracts.ActionBuy
		signal.Confidence = g.buyConfidence(fundamentalScore)
		reasons = append(reasons, fmt.Sprintf("RSI %.2f oversold", rsi))
	case rsi > g.cfg.RSIOverbought && !(hasPrice && price < ema):
		signal.Action = contracts.ActionSell
		signal.Confidence = g.sellConfidence(fundamentalScore)
		reasons = append(reasons, fmt.Sprintf("RSI %.2f overbought", rsi))
	default:
		reasons = append(reasons, fmt.Sprintf("RSI %.2f", rsi))
		if hasPrice {
			reasons = append(reasons, fmt.Sprintf("close %.2f vs EMA12 %.2f", price, ema))
		}
	}

	reasons = append(reasons, fmt.Sprintf("fundamental score %d/%d", fundamentalScore, MaxFundamentalScore))
	reasons = append(reasons, fmt.Sprintf("technical total %+d", TotalScore(scores)))
	signal.Reason = strings.Join(reasons, "; ")

	return signal, true
}

func (g *Generator) buyConfidence(fundamentalScore int) contracts.Confidence {
	switch {
	case fundamentalScore >= g.cfg.ConfidenceHigh:
		return contracts.ConfidenceHigh
	case fundamentalScore >= g.cfg.ConfidenceMedium:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}

func (g *Generator) sellConfidence(fundamentalScore int) contracts.Confidence {
	if fundamentalScore <= g.cfg.SellHighMaxFundamental {
		return contracts.ConfidenceHigh
	}
	return contracts.ConfidenceMedium
}

// TotalScore sums the technical scores
func TotalScore(scores []contracts.TechnicalScore) int {
	total := 0
	for _, s := range scores {
		total += s.Score
	}
	return total
}
