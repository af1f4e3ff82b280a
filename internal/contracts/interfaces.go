package contracts

import (
	"context"
	"io"
	"time"
)

// Gateway is the market data and trading collaborator
// ⭐ SSOT: broker access goes through this interface only
type Gateway interface {
	PriceSource

	GetHistoricalData(ctx context.Context, ticker Ticker, from, to time.Time) ([]PriceHistoryPoint, error)
	GetPortfolio(ctx context.Context) ([]PortfolioAsset, error)
	// PlaceMarketOrder returns the executed price
	PlaceMarketOrder(ctx context.Context, ticker Ticker, qty int64, side Action) (float64, error)
	GetTopTickers(ctx context.Context, count int) ([]Ticker, error)
	// GetFundamentals returns ErrNotFound when the ticker has no fundamentals
	GetFundamentals(ctx context.Context, ticker Ticker) (*FundamentalData, error)
}

// PriceSource quotes live prices.
// Returns ErrPriceUnavailable when no quote exists.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, ticker Ticker) (float64, error)
}

// Notifier delivers reports to the operator
type Notifier interface {
	SendMessage(ctx context.Context, text string, silent bool) error
	SendFile(ctx context.Context, r io.Reader, name, caption string) error
}

// SettingsService owns the BotSettings singleton
type SettingsService interface {
	// GetSettings fails with ErrSettingsNotConfigured or ErrSettingsAmbiguous
	GetSettings(ctx context.Context) (*BotSettings, error)
	SaveSettings(ctx context.Context, settings BotSettings) error
}
