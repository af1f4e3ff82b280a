package analysis

import (
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// Context is the state shared by the analysis steps of one run.
// Each field lists the step that writes it; later steps only read it.
type Context struct {
	// Date is the run date (midnight in the configured location). Set by NewContext.
	Date time.Time
	// Now is the run start instant. Set by NewContext.
	Now time.Time

	// Holdings is the broker snapshot. Written by LoadPortfolio.
	Holdings []contracts.PortfolioAsset
	// Held are the tickers of Holdings. Written by LoadPortfolio.
	Held []contracts.Ticker
	// Universe is every ticker analysed, held tickers first.
	// Written by LoadPortfolio, extended by DiscoverNewTickers.
	Universe []contracts.Ticker

	// MarketData holds the bars per ticker. Written by FetchMarketData.
	MarketData map[contracts.Ticker][]contracts.PriceHistoryPoint
	// Fundamentals holds the fresh or cached fundamentals. Written by FetchMarketData.
	Fundamentals map[contracts.Ticker]contracts.FundamentalData

	// Indicators holds the series of tickers with enough history. Written by CalculateIndicators.
	Indicators map[contracts.Ticker]contracts.IndicatorSeries
	// FundamentalScores holds 0..5 per held ticker with fundamentals. Written by ScoreFundamentals.
	FundamentalScores map[contracts.Ticker]int
	// TechnicalScores holds the strategy verdicts. Written by EvaluateTechnicalScores.
	TechnicalScores map[contracts.Ticker][]contracts.TechnicalScore

	// Signals are the signals of Date, Hold included. Written by GenerateSignals.
	Signals []contracts.TradeSignal
}

// NewContext creates a fresh context for a run starting at now
func NewContext(now time.Time, loc *time.Location) *Context {
	return &Context{
		Date:              contracts.DateOf(now, loc),
		Now:               now,
		MarketData:        make(map[contracts.Ticker][]contracts.PriceHistoryPoint),
		Fundamentals:      make(map[contracts.Ticker]contracts.FundamentalData),
		Indicators:        make(map[contracts.Ticker]contracts.IndicatorSeries),
		FundamentalScores: make(map[contracts.Ticker]int),
		TechnicalScores:   make(map[contracts.Ticker][]contracts.TechnicalScore),
	}
}

// addToUniverse appends t unless a ticker with the same symbol is already present
func (c *Context) addToUniverse(t contracts.Ticker) bool {
	for _, u := range c.Universe {
		if u.Symbol == t.Symbol {
			return false
		}
	}
	c.Universe = append(c.Universe, t)
	return true
}

// Actionable returns the Buy and Sell signals
func (c *Context) Actionable() []contracts.TradeSignal {
	var out []contracts.TradeSignal
	for _, s := range c.Signals {
		if s.Action.IsActionable() {
			out = append(out, s)
		}
	}
	return out
}
