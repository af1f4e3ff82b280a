package signals

import (
	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/strategyconfig"
)

// MaxFundamentalScore is the number of fundamental rules
const MaxFundamentalScore = 5

// FundamentalScorer awards +1 per satisfied valuation rule
type FundamentalScorer struct {
	rules strategyconfig.Fundamentals
}

// NewFundamentalScorer creates a scorer over the given thresholds
func NewFundamentalScorer(rules strategyconfig.Fundamentals) *FundamentalScorer {
	return &FundamentalScorer{rules: rules}
}

// Score returns 0..5
func (s *FundamentalScorer) Score(f contracts.FundamentalData) int {
	score := 0
	if f.PE > 0 && f.PE < s.rules.PEMax {
		score++
	}
	if f.PB > 0 && f.PB < s.rules.PBMax {
		score++
	}
	if f.DividendYield > s.rules.DividendYieldMin {
		score++
	}
	if f.ROE > s.rules.ROEMin {
		score++
	}
	if f.MarketCap > s.rules.MarketCapMin {
		score++
	}
	return score
}

// ScoreAll scores every ticker that has fundamentals.
// A ticker without a record is absent from the result, not zero.
func (s *FundamentalScorer) ScoreAll(tickers []contracts.Ticker, fundamentals map[contracts.Ticker]contracts.FundamentalData) map[contracts.Ticker]int {
	scores := make(map[contracts.Ticker]int, len(tickers))
	for _, t := range tickers {
		f, ok := fundamentals[t]
		if !ok {
			continue
		}
		scores[t] = s.Score(f)
	}
	return scores
}
