package fundamentals

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/httputil"
	"github.com/wonny/tradebot/pkg/logger"
)

// Client scrapes valuation metrics from the quote page of a finance portal
// ⭐ SSOT: fundamentals scraping happens in this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a new fundamentals scraper
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

// GetFundamentals fetches and parses the quote page of ticker.
// Returns ErrNotFound when the page has no key statistics.
func (c *Client) GetFundamentals(ctx context.Context, ticker contracts.Ticker) (*contracts.FundamentalData, error) {
	html, err := c.fetchHTML(ctx, "/quote/"+url.PathEscape(ticker.Symbol))
	if err != nil {
		return nil, err
	}

	data, found, err := parseKeyStats(html)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ticker.Symbol, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", ticker.Symbol, contracts.ErrNotFound)
	}

	data.Ticker = ticker
	data.UpdatedAt = c.now()

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker.Symbol,
		"pe":     data.PE,
		"pb":     data.PB,
		"roe":    data.ROE,
	}).Debug("Fetched fundamentals")

	return &data, nil
}

// fetchHTML fetches a page of the portal
func (c *Client) fetchHTML(ctx context.Context, path string) (string, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+path)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", path, contracts.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// parseKeyStats reads the "key statistics" table:
//
//	<table class="key-stats"><tr><th>P/E</th><td>7.5</td></tr>...</table>
//
// Unknown rows are ignored. found is false when no known row exists.
func parseKeyStats(html string) (data contracts.FundamentalData, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return data, false, err
	}

	doc.Find("table.key-stats tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		raw := strings.TrimSpace(row.Find("td").First().Text())

		value, ok := parseNumber(raw)
		if !ok {
			return
		}

		switch label {
		case "p/e", "pe", "p/e ratio":
			data.PE = value
		case "p/b", "pb", "p/b ratio":
			data.PB = value
		case "dividend yield", "div yield":
			data.DividendYield = value
		case "roe", "return on equity":
			data.ROE = value
		case "market cap", "market capitalization":
			data.MarketCap = value
		default:
			return
		}
		found = true
	})

	return data, found, nil
}

// parseNumber parses "1,234.5", "4.2%", "-" and magnitude suffixes.
// Magnitudes are normalized to millions: "350B" → 350000, "1.2T" → 1200000.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0, false
	}

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 0.001
	case "M":
		multiplier = 1
	case "B":
		multiplier = 1_000
	case "T":
		multiplier = 1_000_000
	}
	if multiplier != 1 || strings.EqualFold(s[len(s)-1:], "M") {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}
