package indicators

import (
	"math"
	"sort"
	"strconv"

	"github.com/markcheno/go-talib"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// Indicator periods
const (
	smaPeriod    = 20
	emaPeriod    = 12
	rsiPeriod    = 14
	adxPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	macdLookback = macdSlow - 1 + macdSignal - 1
	adxLookback  = 2*adxPeriod - 1
)

// Calculator computes the technical indicator set of one ticker
// ⭐ SSOT: technical indicators are computed here only
type Calculator struct {
	minBars int
	logger  *logger.Logger
}

// NewCalculator creates a calculator that ignores tickers with fewer than minBars bars
func NewCalculator(minBars int, log *logger.Logger) *Calculator {
	return &Calculator{
		minBars: minBars,
		logger:  log,
	}
}

// Calculate returns SMA20, EMA12, RSI14, MACD, ADX14 and CLOSE per bar, grouped by bar time.
// ok is false when the ticker has insufficient history: no indicator is produced at all.
// Values that cannot be computed at a bar (lookback, NaN) are left out.
func (c *Calculator) Calculate(ticker contracts.Ticker, bars []contracts.PriceHistoryPoint) (contracts.IndicatorSeries, bool) {
	if len(bars) < c.minBars {
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker.Symbol,
			"bars":   len(bars),
			"min":    c.minBars,
		}).Debug("Insufficient history, skipping indicators")
		return nil, false
	}

	sorted := make([]contracts.PriceHistoryPoint, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	n := len(sorted)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, bar := range sorted {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	var sma, ema, rsi, macd, signal, hist, adx []float64
	if n > smaPeriod-1 {
		sma = talib.Sma(closes, smaPeriod)
	}
	if n > emaPeriod-1 {
		ema = talib.Ema(closes, emaPeriod)
	}
	if n > rsiPeriod {
		rsi = talib.Rsi(closes, rsiPeriod)
	}
	if n > macdLookback {
		macd, signal, hist = talib.Macd(closes, macdFast, macdSlow, macdSignal)
	}
	if n > adxLookback {
		adx = talib.Adx(highs, lows, closes, adxPeriod)
	}

	series := contracts.IndicatorSeries{}
	for i, bar := range sorted {
		series.Add(contracts.TechnicalIndicator{
			Name:  contracts.IndicatorClose,
			Time:  bar.Time,
			Value: contracts.Float(bar.Close),
		})

		addAt(series, contracts.IndicatorSMA20, bar, sma, i, smaPeriod-1, nil)
		addAt(series, contracts.IndicatorEMA12, bar, ema, i, emaPeriod-1, nil)
		addAt(series, contracts.IndicatorRSI14, bar, rsi, i, rsiPeriod, nil)
		addAt(series, contracts.IndicatorADX14, bar, adx, i, adxLookback, nil)

		if macd != nil && i >= macdLookback {
			addAt(series, contracts.IndicatorMACD, bar, macd, i, macdLookback, map[string]string{
				"signal":    formatFloat(signal[i]),
				"histogram": formatFloat(hist[i]),
			})
		}
	}

	return series, true
}

// addAt stores values[i] unless it is inside the lookback or not a number
func addAt(series contracts.IndicatorSeries, name string, bar contracts.PriceHistoryPoint, values []float64, i, lookback int, meta map[string]string) {
	if values == nil || i < lookback || i >= len(values) {
		return
	}
	v := values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	series.Add(contracts.TechnicalIndicator{
		Name:     name,
		Time:     bar.Time,
		Value:    contracts.Float(v),
		Metadata: meta,
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
