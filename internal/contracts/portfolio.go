package contracts

import "time"

// PortfolioAsset is one holding of the account.
// Identity is the ticker symbol; removed when Quantity reaches zero.
type PortfolioAsset struct {
	Ticker       Ticker    `json:"ticker"`
	Quantity     int64     `json:"quantity"`
	CurrentPrice float64   `json:"current_price"` // per unit
	AveragePrice float64   `json:"average_price"` // per unit, weighted by fills
	UpdatedAt    time.Time `json:"updated_at"`
}

// Key returns the ticker symbol
func (a PortfolioAsset) Key() string {
	return a.Ticker.Symbol
}

// MarketValue returns Quantity * CurrentPrice
func (a PortfolioAsset) MarketValue() float64 {
	return float64(a.Quantity) * a.CurrentPrice
}
