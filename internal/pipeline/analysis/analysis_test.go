package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/external/notify"
	"github.com/wonny/tradebot/internal/external/paper"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/internal/storage/memory"
	"github.com/wonny/tradebot/internal/strategyconfig"
	"github.com/wonny/tradebot/pkg/logger"
)

var (
	now  = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	sber = contracts.Ticker{Symbol: "SBER", Currency: "RUB"}
	gazp = contracts.Ticker{Symbol: "GAZP", Currency: "RUB"}
	lkoh = contracts.Ticker{Symbol: "LKOH", Currency: "RUB"}
)

// trend returns n hourly bars ending at now, moving by step per bar
func trend(n int, start, step float64) []contracts.PriceHistoryPoint {
	bars := make([]contracts.PriceHistoryPoint, n)
	first := now.Add(-time.Duration(n-1) * time.Hour)
	for i := 0; i < n; i++ {
		p := start + step*float64(i)
		bars[i] = contracts.PriceHistoryPoint{
			Time:   first.Add(time.Duration(i) * time.Hour),
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}

func strongFundamentals(t contracts.Ticker) contracts.FundamentalData {
	return contracts.FundamentalData{Ticker: t, PE: 5, PB: 1, DividendYield: 8, ROE: 20, MarketCap: 500_000, UpdatedAt: now}
}

type fixture struct {
	gateway  *paper.Gateway
	store    *storage.Store
	notifier *notify.Recorder
	cfg      *strategyconfig.Config
}

func newFixture() *fixture {
	return &fixture{
		gateway:  paper.New(),
		store:    memory.NewStore(),
		notifier: notify.NewRecorder(),
		cfg:      strategyconfig.Default(),
	}
}

func (f *fixture) run(t *testing.T) (*Context, contracts.RunStatus, []string, error) {
	t.Helper()
	engine := New(Deps{
		Gateway:  f.gateway,
		Store:    f.store,
		Notifier: f.notifier,
		Config:   f.cfg,
		Location: time.UTC,
		Logger:   logger.Nop(),
	})
	pc := NewContext(now, time.UTC)
	result, err := engine.Run(context.Background(), pc)
	require.NotNil(t, result)

	var notStarted []string
	for _, s := range result.Steps {
		if s.Status == contracts.StatusNotStarted {
			notStarted = append(notStarted, s.Name)
		}
	}
	return pc, result.Status, notStarted, err
}

func TestAnalysis_EndToEnd(t *testing.T) {
	f := newFixture()
	f.gateway.SetHoldings([]contracts.PortfolioAsset{
		{Ticker: sber, Quantity: 10, AveragePrice: 120},
		{Ticker: gazp, Quantity: 5, AveragePrice: 150},
	})
	f.gateway.SetHistory(sber, trend(100, 200, -1))
	f.gateway.SetHistory(gazp, trend(100, 100, 1))
	f.gateway.SetFundamentals(strongFundamentals(sber))

	pc, status, _, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, status)

	// holdings snapshot replaced
	holdings, err := f.store.Holdings.GetAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, holdings, 2)

	// market data snapshot holds both series
	bars, err := f.store.MarketData.GetAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, bars, 200)

	// only SBER has fundamentals: GAZP absent from the score map
	assert.Equal(t, map[contracts.Ticker]int{sber: 5}, pc.FundamentalScores)

	require.Len(t, pc.Signals, 2)
	bySymbol := map[string]contracts.TradeSignal{}
	for _, s := range pc.Signals {
		bySymbol[s.Ticker.Symbol] = s
	}
	assert.Equal(t, contracts.ActionBuy, bySymbol["SBER"].Action)
	assert.Equal(t, contracts.ConfidenceHigh, bySymbol["SBER"].Confidence)
	assert.Equal(t, contracts.ActionSell, bySymbol["GAZP"].Action)
	assert.Equal(t, contracts.ConfidenceHigh, bySymbol["GAZP"].Confidence)
	assert.NotEmpty(t, bySymbol["SBER"].TechnicalScores)

	stored, err := f.store.Signals.GetByID(context.Background(), contracts.SignalKey("SBER", pc.Date))
	require.NoError(t, err)
	assert.Equal(t, contracts.ActionBuy, stored.Action)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "BUY SBER")
	assert.Contains(t, msgs[0].Text, "SELL GAZP")
	assert.False(t, msgs[0].Silent)
}

func TestAnalysis_RerunSameDayOverwritesSignals(t *testing.T) {
	f := newFixture()
	f.gateway.SetHoldings([]contracts.PortfolioAsset{{Ticker: sber, Quantity: 10}})
	f.gateway.SetHistory(sber, trend(100, 200, -1))

	_, _, _, err := f.run(t)
	require.NoError(t, err)
	_, _, _, err = f.run(t)
	require.NoError(t, err)

	all, err := f.store.Signals.GetAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAnalysis_EmptyPortfolioExitsEarly(t *testing.T) {
	f := newFixture()

	_, status, notStarted, err := f.run(t)
	require.NoError(t, err)
	assert.NotEqual(t, contracts.StatusFailed, status)
	assert.Equal(t, []string{
		StepDiscoverNewTickers, StepFetchMarketData, StepCalculateIndicators,
		StepScoreFundamentals, StepEvaluateTechnicalScores, StepGenerateSignals, StepLogSignals,
	}, notStarted)
	assert.Empty(t, f.notifier.Messages())
}

func TestAnalysis_DiscoveryAddsCandidates(t *testing.T) {
	f := newFixture()
	f.cfg.Analysis.Discovery = true
	f.cfg.Analysis.TopTickers = 2
	f.gateway.SetTopTickers([]contracts.Ticker{lkoh, sber, gazp})
	f.gateway.SetHistory(lkoh, trend(100, 200, -1))
	f.gateway.SetFundamentals(strongFundamentals(lkoh))

	pc, status, _, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, status)

	assert.Equal(t, []contracts.Ticker{lkoh, sber}, pc.Universe)
	assert.Empty(t, pc.Held)
	// discovered tickers are not held: no fundamental score
	assert.Empty(t, pc.FundamentalScores)
	// SBER has no bars: skipped entirely
	_, ok := pc.TechnicalScores[sber]
	assert.False(t, ok)

	require.Len(t, pc.Signals, 1)
	assert.Equal(t, contracts.ActionBuy, pc.Signals[0].Action)
	assert.Equal(t, contracts.ConfidenceLow, pc.Signals[0].Confidence)
}

func TestAnalysis_InsufficientHistorySendsNoSignals(t *testing.T) {
	f := newFixture()
	f.gateway.SetHoldings([]contracts.PortfolioAsset{{Ticker: sber, Quantity: 10}})
	f.gateway.SetHistory(sber, trend(30, 200, -1))

	pc, status, _, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, status)
	assert.Empty(t, pc.Indicators)
	assert.Empty(t, pc.Signals)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Text, NoSignalsMessage))
	assert.True(t, msgs[0].Silent)
}

func TestAnalysis_FreshFundamentalsAreNotRefetched(t *testing.T) {
	f := newFixture()
	f.gateway.SetHoldings([]contracts.PortfolioAsset{{Ticker: sber, Quantity: 10}})
	f.gateway.SetHistory(sber, trend(100, 200, -1))

	cached := strongFundamentals(sber)
	cached.UpdatedAt = now.Add(-time.Hour)
	require.NoError(t, f.store.Fundamentals.Add(context.Background(), cached))

	// the gateway would report weak fundamentals
	f.gateway.SetFundamentals(contracts.FundamentalData{Ticker: sber, UpdatedAt: now})

	pc, _, _, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 5, pc.FundamentalScores[sber])
}

func TestAnalysis_StaleFundamentalsAreRefreshed(t *testing.T) {
	f := newFixture()
	f.gateway.SetHoldings([]contracts.PortfolioAsset{{Ticker: sber, Quantity: 10}})
	f.gateway.SetHistory(sber, trend(100, 200, -1))

	stale := strongFundamentals(sber)
	stale.UpdatedAt = now.Add(-48 * time.Hour)
	require.NoError(t, f.store.Fundamentals.Add(context.Background(), stale))
	f.gateway.SetFundamentals(contracts.FundamentalData{Ticker: sber, PE: 5, UpdatedAt: now})

	pc, _, _, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 1, pc.FundamentalScores[sber])

	stored, err := f.store.Fundamentals.GetByID(context.Background(), "SBER")
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(now))
}

type failingPortfolio struct {
	*paper.Gateway
}

func (failingPortfolio) GetPortfolio(context.Context) ([]contracts.PortfolioAsset, error) {
	return nil, errors.New("broker down")
}

func TestAnalysis_GatewayFailureFailsRun(t *testing.T) {
	f := newFixture()
	engine := New(Deps{
		Gateway:  failingPortfolio{f.gateway},
		Store:    f.store,
		Notifier: f.notifier,
		Config:   f.cfg,
		Logger:   logger.Nop(),
	})

	result, err := engine.Run(context.Background(), NewContext(now, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step LoadPortfolio")
	assert.Equal(t, contracts.StatusFailed, result.Status)
	assert.Equal(t, contracts.StatusFailed, result.Steps[0].Status)
	assert.Equal(t, contracts.StatusNotStarted, result.Steps[1].Status)
}

func TestFormatSignals_OrdersByConfidence(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	text := FormatSignals(date, []contracts.TradeSignal{
		{Ticker: gazp, Action: contracts.ActionSell, Confidence: contracts.ConfidenceMedium},
		{Ticker: lkoh, Action: contracts.ActionBuy, Confidence: contracts.ConfidenceLow},
		{Ticker: sber, Action: contracts.ActionBuy, Confidence: contracts.ConfidenceHigh},
	})

	assert.Contains(t, text, "2026-03-02")
	iSber := strings.Index(text, "BUY SBER")
	iGazp := strings.Index(text, "SELL GAZP")
	iLkoh := strings.Index(text, "BUY LKOH")
	require.True(t, iSber >= 0 && iGazp >= 0 && iLkoh >= 0, text)
	assert.Less(t, iSber, iGazp)
	assert.Less(t, iGazp, iLkoh)
}

func TestFormatSignals_Empty(t *testing.T) {
	text := FormatSignals(now, nil)
	assert.True(t, strings.HasPrefix(text, NoSignalsMessage))
}
