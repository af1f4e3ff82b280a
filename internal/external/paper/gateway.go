package paper

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradebot/internal/contracts"
)

// Order is an order accepted by the paper gateway
type Order struct {
	Ticker   contracts.Ticker
	Side     contracts.Action
	Quantity int64
	Price    float64
	At       time.Time
}

// Gateway is an in-memory broker that fills every market order at the current quote.
// Safe for concurrent use.
type Gateway struct {
	mu           sync.RWMutex
	quotes       map[string]float64
	history      map[string][]contracts.PriceHistoryPoint
	fundamentals map[string]contracts.FundamentalData
	holdings     map[string]contracts.PortfolioAsset
	top          []contracts.Ticker
	failures     map[string]error
	orders       []Order
	now          func() time.Time
}

var _ contracts.Gateway = (*Gateway)(nil)

// New creates an empty paper gateway
func New() *Gateway {
	return &Gateway{
		quotes:       make(map[string]float64),
		history:      make(map[string][]contracts.PriceHistoryPoint),
		fundamentals: make(map[string]contracts.FundamentalData),
		holdings:     make(map[string]contracts.PortfolioAsset),
		failures:     make(map[string]error),
		now:          time.Now,
	}
}

// WithClock overrides the time source
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// SetQuote sets the current price of ticker
func (g *Gateway) SetQuote(ticker contracts.Ticker, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quotes[ticker.Symbol] = price
}

// SetHistory replaces the bars of ticker
func (g *Gateway) SetHistory(ticker contracts.Ticker, bars []contracts.PriceHistoryPoint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history[ticker.Symbol] = append([]contracts.PriceHistoryPoint(nil), bars...)
}

// SetFundamentals sets the fundamentals of data.Ticker
func (g *Gateway) SetFundamentals(data contracts.FundamentalData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fundamentals[data.Ticker.Symbol] = data
}

// SetHoldings replaces the account positions
func (g *Gateway) SetHoldings(assets []contracts.PortfolioAsset) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holdings = make(map[string]contracts.PortfolioAsset, len(assets))
	for _, a := range assets {
		g.holdings[a.Ticker.Symbol] = a
	}
}

// SetTopTickers sets the ranked list returned by GetTopTickers
func (g *Gateway) SetTopTickers(tickers []contracts.Ticker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.top = append([]contracts.Ticker(nil), tickers...)
}

// FailOrders makes every order for symbol fail with err. A nil err clears the failure.
func (g *Gateway) FailOrders(symbol string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, symbol)
		return
	}
	g.failures[symbol] = err
}

// Orders returns the filled orders in placement order
func (g *Gateway) Orders() []Order {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Order(nil), g.orders...)
}

// GetCurrentPrice returns the configured quote
func (g *Gateway) GetCurrentPrice(_ context.Context, ticker contracts.Ticker) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	price, ok := g.quotes[ticker.Symbol]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrPriceUnavailable)
	}
	return price, nil
}

// GetHistoricalData returns the configured bars within [from, to]
func (g *Gateway) GetHistoricalData(ctx context.Context, ticker contracts.Ticker, from, to time.Time) ([]contracts.PriceHistoryPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []contracts.PriceHistoryPoint
	for _, bar := range g.history[ticker.Symbol] {
		if bar.Time.Before(from) || bar.Time.After(to) {
			continue
		}
		bar.Ticker = ticker
		out = append(out, bar)
	}
	return out, nil
}

// GetPortfolio returns the positions with quantity above zero, sorted by symbol
func (g *Gateway) GetPortfolio(ctx context.Context) ([]contracts.PortfolioAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	assets := make([]contracts.PortfolioAsset, 0, len(g.holdings))
	for _, a := range g.holdings {
		if a.Quantity <= 0 {
			continue
		}
		if price, ok := g.quotes[a.Ticker.Symbol]; ok {
			a.CurrentPrice = price
		}
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Ticker.Symbol < assets[j].Ticker.Symbol
	})
	return assets, nil
}

// PlaceMarketOrder fills at the current quote and updates the paper holdings
func (g *Gateway) PlaceMarketOrder(ctx context.Context, ticker contracts.Ticker, qty int64, side contracts.Action) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if qty <= 0 {
		return 0, fmt.Errorf("invalid quantity %d", qty)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.failures[ticker.Symbol]; ok {
		return 0, err
	}

	price, ok := g.quotes[ticker.Symbol]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrPriceUnavailable)
	}

	now := g.now()
	holding := g.holdings[ticker.Symbol]
	switch side {
	case contracts.ActionBuy:
		cost := decimal.NewFromFloat(holding.AveragePrice).Mul(decimal.NewFromInt(holding.Quantity)).
			Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty)))
		holding.Ticker = ticker
		holding.Quantity += qty
		holding.AveragePrice, _ = cost.Div(decimal.NewFromInt(holding.Quantity)).Float64()
	case contracts.ActionSell:
		if holding.Quantity < qty {
			return 0, fmt.Errorf("insufficient position in %s: have %d, sell %d", ticker.Symbol, holding.Quantity, qty)
		}
		holding.Quantity -= qty
	default:
		return 0, fmt.Errorf("invalid order side %q", side)
	}
	holding.CurrentPrice = price
	holding.UpdatedAt = now

	if holding.Quantity == 0 {
		delete(g.holdings, ticker.Symbol)
	} else {
		g.holdings[ticker.Symbol] = holding
	}

	g.orders = append(g.orders, Order{Ticker: ticker, Side: side, Quantity: qty, Price: price, At: now})
	return price, nil
}

// GetTopTickers returns at most count of the configured tickers
func (g *Gateway) GetTopTickers(_ context.Context, count int) ([]contracts.Ticker, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if count > len(g.top) || count < 0 {
		count = len(g.top)
	}
	return append([]contracts.Ticker(nil), g.top[:count]...), nil
}

// GetFundamentals returns the configured fundamentals or ErrNotFound
func (g *Gateway) GetFundamentals(_ context.Context, ticker contracts.Ticker) (*contracts.FundamentalData, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data, ok := g.fundamentals[ticker.Symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrNotFound)
	}
	return &data, nil
}

// ==============================================
// Demo data
// ==============================================

// DemoTickers are the instruments seeded by NewDemo
var DemoTickers = []contracts.Ticker{
	{Symbol: "SBER", InstrumentID: "BBG004730N88", Currency: "RUB", Sector: "financial"},
	{Symbol: "GAZP", InstrumentID: "BBG004730RP0", Currency: "RUB", Sector: "energy"},
	{Symbol: "LKOH", InstrumentID: "BBG004731032", Currency: "RUB", Sector: "energy"},
	{Symbol: "YNDX", InstrumentID: "BBG006L8G4H1", Currency: "RUB", Sector: "it"},
}

// NewDemo creates a paper gateway with seven days of synthetic hourly bars so
// that the pipelines can be run locally without a broker.
func NewDemo(now time.Time) *Gateway {
	return NewDemoSeries(now, time.Hour, 7*24*time.Hour)
}

// NewDemoSeries is NewDemo with one bar every interval across window
func NewDemoSeries(now time.Time, interval, window time.Duration) *Gateway {
	g := New()

	if interval <= 0 {
		interval = time.Hour
	}
	bars := int(window / interval)
	if bars < 1 {
		bars = 1
	}
	end := now.Truncate(interval)

	for i, ticker := range DemoTickers {
		base := 100.0 * float64(i+1)
		phase := float64(i) * math.Pi / 2

		points := make([]contracts.PriceHistoryPoint, 0, bars)
		var last float64
		for b := 0; b < bars; b++ {
			ts := end.Add(-time.Duration(bars-1-b) * interval)
			wave := math.Sin(float64(b)/12+phase) * base * 0.05
			drift := float64(b) * base * 0.0005 * math.Cos(phase)
			closePrice := base + wave + drift
			open := closePrice - math.Sin(float64(b)/6)*base*0.002

			points = append(points, contracts.PriceHistoryPoint{
				Ticker: ticker,
				Time:   ts,
				Open:   open,
				High:   math.Max(open, closePrice) * 1.003,
				Low:    math.Min(open, closePrice) * 0.997,
				Close:  closePrice,
				Volume: int64(1000 + 10*b),
			})
			last = closePrice
		}

		g.SetHistory(ticker, points)
		g.SetQuote(ticker, math.Round(last*100)/100)
		g.SetFundamentals(contracts.FundamentalData{
			Ticker:        ticker,
			PE:            4 + float64(i)*5,
			PB:            0.8 + float64(i)*1.1,
			DividendYield: 12 - float64(i)*3.5,
			MarketCap:     500_000 * float64(4-i),
			ROE:           22 - float64(i)*5,
			UpdatedAt:     now,
		})
	}

	g.SetTopTickers(DemoTickers)
	g.SetHoldings([]contracts.PortfolioAsset{
		{Ticker: DemoTickers[0], Quantity: 20, AveragePrice: 95, UpdatedAt: now},
		{Ticker: DemoTickers[1], Quantity: 10, AveragePrice: 210, UpdatedAt: now},
	})

	return g
}
