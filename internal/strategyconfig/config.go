package strategyconfig

import "time"

// Config holds every rule constant of the analysis and auto-trade pipelines
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Analysis     Analysis     `yaml:"analysis" json:"analysis"`
	Signals      Signals      `yaml:"signals" json:"signals"`
	Fundamentals Fundamentals `yaml:"fundamentals" json:"fundamentals"`
	Execution    Execution    `yaml:"execution" json:"execution"`
}

// Meta identifies the rule set
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Analysis controls the data window of the analysis pipeline
type Analysis struct {
	WindowDays     int    `yaml:"window_days" json:"window_days"`
	CandleInterval string `yaml:"candle_interval" json:"candle_interval"` // Go duration, e.g. "1h"
	MinBars        int    `yaml:"min_bars" json:"min_bars"`
	TopTickers     int    `yaml:"top_tickers" json:"top_tickers"`
	Discovery      bool   `yaml:"discovery" json:"discovery"`
	Schedule       string `yaml:"schedule" json:"schedule"` // cron with seconds
}

// Interval returns CandleInterval parsed, 1h when invalid
func (a Analysis) Interval() time.Duration {
	d, err := time.ParseDuration(a.CandleInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Window returns the trailing history window
func (a Analysis) Window() time.Duration {
	return time.Duration(a.WindowDays) * 24 * time.Hour
}

// Signals holds the technical decision thresholds
type Signals struct {
	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	ADXTrend      float64 `yaml:"adx_trend" json:"adx_trend"` // strictly above: trend
	ADXWeak       float64 `yaml:"adx_weak" json:"adx_weak"`   // strictly below: no trend

	// Fundamental score tiers of a Buy: >= High → High, >= Medium → Medium, else Low
	ConfidenceMedium int `yaml:"confidence_medium" json:"confidence_medium"`
	ConfidenceHigh   int `yaml:"confidence_high" json:"confidence_high"`
	// A Sell is High when the fundamental score is at most this value, Medium otherwise
	SellHighMaxFundamental int `yaml:"sell_high_max_fundamental" json:"sell_high_max_fundamental"`
}

// Fundamentals holds the five +1 rules of the fundamental score
type Fundamentals struct {
	PEMax            float64 `yaml:"pe_max" json:"pe_max"` // 0 < P/E < PEMax
	PBMax            float64 `yaml:"pb_max" json:"pb_max"` // 0 < P/B < PBMax
	DividendYieldMin float64 `yaml:"dividend_yield_min" json:"dividend_yield_min"`
	ROEMin           float64 `yaml:"roe_min" json:"roe_min"`
	MarketCapMin     float64 `yaml:"market_cap_min" json:"market_cap_min"` // millions
}

// Execution holds the order sizing rules
type Execution struct {
	MaxTradeAmount  float64 `yaml:"max_trade_amount" json:"max_trade_amount"`
	MaxLotsPerTrade int64   `yaml:"max_lots_per_trade" json:"max_lots_per_trade"`
}

// Default returns the built-in rule set
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "tradebot_default",
			Version:    "1",
		},
		Analysis: Analysis{
			WindowDays:     7,
			CandleInterval: "1h",
			MinBars:        50,
			TopTickers:     100,
			Discovery:      false,
			Schedule:       "0 30 9 * * 1-5",
		},
		Signals: Signals{
			RSIOversold:            30,
			RSIOverbought:          70,
			ADXTrend:               25,
			ADXWeak:                20,
			ConfidenceMedium:       3,
			ConfidenceHigh:         5,
			SellHighMaxFundamental: 1,
		},
		Fundamentals: Fundamentals{
			PEMax:            15,
			PBMax:            3,
			DividendYieldMin: 4,
			ROEMin:           10,
			MarketCapMin:     100_000,
		},
		Execution: Execution{
			MaxTradeAmount:  10_000,
			MaxLotsPerTrade: 5,
		},
	}
}
