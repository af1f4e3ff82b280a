package contracts

import (
	"fmt"
	"time"
)

// Ticker identifies a tradable instrument.
// Value type: comparable, used as a map key throughout the pipelines.
type Ticker struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	Sector       string `json:"sector"`
	InstrumentID string `json:"instrument_id"`
}

// String returns the ticker symbol
func (t Ticker) String() string {
	return t.Symbol
}

// PriceHistoryPoint is one OHLCV bar.
// The market-data snapshot is replaced on every analysis run.
type PriceHistoryPoint struct {
	Ticker Ticker    `json:"ticker"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns symbol|timestamp
func (p PriceHistoryPoint) Key() string {
	return fmt.Sprintf("%s|%s", p.Ticker.Symbol, p.Time.UTC().Format(time.RFC3339))
}

// FundamentalData holds valuation metrics of one ticker.
// MarketCap is expressed in millions of the ticker's currency.
type FundamentalData struct {
	Ticker        Ticker    `json:"ticker"`
	PE            float64   `json:"pe"`
	PB            float64   `json:"pb"`
	DividendYield float64   `json:"dividend_yield"` // percent
	MarketCap     float64   `json:"market_cap"`
	ROE           float64   `json:"roe"` // percent
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the ticker symbol
func (f FundamentalData) Key() string {
	return f.Ticker.Symbol
}

// IsFresh reports whether the record was updated on the same calendar day as now in loc
func (f FundamentalData) IsFresh(now time.Time, loc *time.Location) bool {
	if f.UpdatedAt.IsZero() {
		return false
	}
	return DateOf(f.UpdatedAt, loc).Equal(DateOf(now, loc))
}

// DateOf truncates t to midnight of its calendar day in loc
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
