package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/config"
	"github.com/wonny/tradebot/pkg/httputil"
	"github.com/wonny/tradebot/pkg/logger"
	"github.com/wonny/tradebot/pkg/redis"
)

// FundamentalsSource supplies valuation metrics the broker API does not carry
type FundamentalsSource interface {
	GetFundamentals(ctx context.Context, ticker contracts.Ticker) (*contracts.FundamentalData, error)
}

// Client is the brokerage REST gateway
// ⭐ SSOT: live broker calls happen in this client only
type Client struct {
	httpClient   *httputil.Client
	logger       *logger.Logger
	cache        *redis.Cache
	fundamentals FundamentalsSource
	baseURL      string
	accountID    string
	interval     string
}

var _ contracts.Gateway = (*Client)(nil)

// NewClient creates a broker client. cache and fundamentals may be nil.
func NewClient(cfg config.BrokerConfig, cache *redis.Cache, fundamentals FundamentalsSource, log *logger.Logger) *Client {
	httpClient := httputil.New(log).
		WithHeader("Authorization", "Bearer "+cfg.Token).
		WithHeader("Accept", "application/json").
		WithLimiter(cfg.RateLimit)

	return newClient(cfg, httpClient, cache, fundamentals, log)
}

func newClient(cfg config.BrokerConfig, httpClient *httputil.Client, cache *redis.Cache, fundamentals FundamentalsSource, log *logger.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       log.WithComponent("broker"),
		cache:        cache,
		fundamentals: fundamentals,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		accountID:    cfg.AccountID,
		interval:     "1h",
	}
}

// WithInterval sets the candle interval requested by GetHistoricalData
func (c *Client) WithInterval(interval string) *Client {
	if interval != "" {
		c.interval = interval
	}
	return c
}

// ==============================================
// Wire types
// ==============================================

type quoteResponse struct {
	InstrumentID string  `json:"instrument_id"`
	Price        float64 `json:"price"`
}

type candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type candlesResponse struct {
	Candles []candle `json:"candles"`
}

type instrument struct {
	Symbol       string `json:"symbol"`
	InstrumentID string `json:"instrument_id"`
	Currency     string `json:"currency"`
	Sector       string `json:"sector"`
}

func (i instrument) ticker() contracts.Ticker {
	return contracts.Ticker{
		Symbol:       i.Symbol,
		InstrumentID: i.InstrumentID,
		Currency:     i.Currency,
		Sector:       i.Sector,
	}
}

type position struct {
	instrument
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
}

type portfolioResponse struct {
	Positions []position `json:"positions"`
}

type orderRequest struct {
	InstrumentID string `json:"instrument_id"`
	Symbol       string `json:"symbol"`
	Quantity     int64  `json:"quantity"`
	Side         string `json:"side"`
	Type         string `json:"type"`
}

type orderResponse struct {
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	ExecutedPrice float64 `json:"executed_price"`
	Message       string  `json:"message"`
}

type topResponse struct {
	Instruments []instrument `json:"instruments"`
}

// ==============================================
// Gateway
// ==============================================

// GetCurrentPrice returns the last traded price, served from the quote cache when fresh
func (c *Client) GetCurrentPrice(ctx context.Context, ticker contracts.Ticker) (float64, error) {
	id := instrumentID(ticker)

	var cached float64
	if ok, err := c.cache.Get(ctx, redis.QuoteKey(id), &cached); err == nil && ok {
		return cached, nil
	}

	var resp quoteResponse
	status, err := c.getJSON(ctx, "/v1/quotes/"+url.PathEscape(id), &resp)
	if status == http.StatusNotFound {
		return 0, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrPriceUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("get quote %s: %w", ticker.Symbol, err)
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrPriceUnavailable)
	}

	if err := c.cache.Set(ctx, redis.QuoteKey(id), resp.Price, redis.TTLQuote); err != nil {
		c.logger.WithError(err).Warn("Failed to cache quote")
	}

	return resp.Price, nil
}

// GetHistoricalData returns the candles of ticker in [from, to]
func (c *Client) GetHistoricalData(ctx context.Context, ticker contracts.Ticker, from, to time.Time) ([]contracts.PriceHistoryPoint, error) {
	q := url.Values{}
	q.Set("instrument_id", instrumentID(ticker))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	q.Set("interval", c.interval)

	var resp candlesResponse
	if _, err := c.getJSON(ctx, "/v1/candles?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("get candles %s: %w", ticker.Symbol, err)
	}

	points := make([]contracts.PriceHistoryPoint, 0, len(resp.Candles))
	for _, cd := range resp.Candles {
		points = append(points, contracts.PriceHistoryPoint{
			Ticker: ticker,
			Time:   cd.Time,
			Open:   cd.Open,
			High:   cd.High,
			Low:    cd.Low,
			Close:  cd.Close,
			Volume: cd.Volume,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker.Symbol,
		"bars":   len(points),
	}).Debug("Fetched candles")

	return points, nil
}

// GetPortfolio returns the account positions
func (c *Client) GetPortfolio(ctx context.Context) ([]contracts.PortfolioAsset, error) {
	var resp portfolioResponse
	if _, err := c.getJSON(ctx, "/v1/accounts/"+url.PathEscape(c.accountID)+"/portfolio", &resp); err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}

	now := time.Now()
	assets := make([]contracts.PortfolioAsset, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		if p.Quantity <= 0 {
			continue
		}
		assets = append(assets, contracts.PortfolioAsset{
			Ticker:       p.ticker(),
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			CurrentPrice: p.CurrentPrice,
			UpdatedAt:    now,
		})
	}
	return assets, nil
}

// PlaceMarketOrder sends a market order and returns the executed price.
// Orders are never retried.
func (c *Client) PlaceMarketOrder(ctx context.Context, ticker contracts.Ticker, qty int64, side contracts.Action) (float64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("invalid quantity %d", qty)
	}
	if side != contracts.ActionBuy && side != contracts.ActionSell {
		return 0, fmt.Errorf("invalid order side %q", side)
	}

	order := orderRequest{
		InstrumentID: instrumentID(ticker),
		Symbol:       ticker.Symbol,
		Quantity:     qty,
		Side:         string(side),
		Type:         "MARKET",
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+"/v1/accounts/"+url.PathEscape(c.accountID)+"/orders", order)
	if err != nil {
		return 0, fmt.Errorf("place order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("order rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode order response: %w", err)
	}

	if result.Status != "FILLED" {
		return 0, fmt.Errorf("order %s not filled: %s %s", result.OrderID, result.Status, result.Message)
	}

	c.logger.WithFields(map[string]interface{}{
		"order_id": result.OrderID,
		"ticker":   ticker.Symbol,
		"side":     side,
		"quantity": qty,
		"price":    result.ExecutedPrice,
	}).Info("Order filled")

	return result.ExecutedPrice, nil
}

// GetTopTickers returns the broker's ranked list of liquid instruments
func (c *Client) GetTopTickers(ctx context.Context, count int) ([]contracts.Ticker, error) {
	var tickers []contracts.Ticker
	if ok, err := c.cache.Get(ctx, redis.TopTickersKey(count), &tickers); err == nil && ok {
		return tickers, nil
	}

	var resp topResponse
	if _, err := c.getJSON(ctx, "/v1/instruments/top?count="+strconv.Itoa(count), &resp); err != nil {
		return nil, fmt.Errorf("get top tickers: %w", err)
	}

	tickers = make([]contracts.Ticker, 0, len(resp.Instruments))
	for _, in := range resp.Instruments {
		tickers = append(tickers, in.ticker())
	}

	if err := c.cache.Set(ctx, redis.TopTickersKey(count), tickers, redis.TTLShort); err != nil {
		c.logger.WithError(err).Warn("Failed to cache top tickers")
	}

	return tickers, nil
}

// GetFundamentals delegates to the configured fundamentals source
func (c *Client) GetFundamentals(ctx context.Context, ticker contracts.Ticker) (*contracts.FundamentalData, error) {
	if c.fundamentals == nil {
		return nil, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrNotFound)
	}
	return c.fundamentals.GetFundamentals(ctx, ticker)
}

// getJSON performs a GET and decodes a 200 response into dest.
// The status code is returned even on failure.
func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) (int, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func instrumentID(t contracts.Ticker) string {
	if t.InstrumentID != "" {
		return t.InstrumentID
	}
	return t.Symbol
}
