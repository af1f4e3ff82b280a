package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file and returns Config with raw bytes.
// Keys absent from the file keep their Default() value.
// KnownFields(true): a typo or unused field fails immediately
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}

	return cfg, data, nil
}

// Parse decodes YAML over Default() and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode strategy config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns Default() when path is empty
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, _, err := Load(path)
	return cfg, err
}

// Hash generates SHA256 hash from Config (canonical JSON).
// Struct fields keep a deterministic order, maps would not.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ValidationError is a failed constraint (program stops)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Analysis ===
	if cfg.Analysis.WindowDays <= 0 {
		return ValidationError{"analysis.window_days", "must be > 0"}
	}
	if cfg.Analysis.MinBars <= 0 {
		return ValidationError{"analysis.min_bars", "must be > 0"}
	}
	if cfg.Analysis.TopTickers < 0 {
		return ValidationError{"analysis.top_tickers", "must be >= 0"}
	}
	if cfg.Analysis.CandleInterval != "" {
		if _, err := parsePositiveDuration(cfg.Analysis.CandleInterval); err != nil {
			return ValidationError{"analysis.candle_interval", err.Error()}
		}
	}

	// === Signals ===
	s := cfg.Signals
	if s.RSIOversold <= 0 || s.RSIOverbought >= 100 || s.RSIOversold >= s.RSIOverbought {
		return ValidationError{"signals.rsi", "need 0 < rsi_oversold < rsi_overbought < 100"}
	}
	if s.ADXWeak < 0 || s.ADXWeak > s.ADXTrend {
		return ValidationError{"signals.adx", "need 0 <= adx_weak <= adx_trend"}
	}
	if s.ConfidenceMedium <= 0 || s.ConfidenceMedium > s.ConfidenceHigh || s.ConfidenceHigh > 5 {
		return ValidationError{"signals.confidence", "need 0 < confidence_medium <= confidence_high <= 5"}
	}
	if s.SellHighMaxFundamental < 0 || s.SellHighMaxFundamental > 5 {
		return ValidationError{"signals.sell_high_max_fundamental", "must be in [0, 5]"}
	}

	// === Fundamentals ===
	f := cfg.Fundamentals
	if f.PEMax <= 0 || f.PBMax <= 0 {
		return ValidationError{"fundamentals", "pe_max and pb_max must be > 0"}
	}
	if f.DividendYieldMin < 0 || f.ROEMin < 0 || f.MarketCapMin < 0 {
		return ValidationError{"fundamentals", "minimums must be >= 0"}
	}

	// === Execution ===
	if cfg.Execution.MaxTradeAmount <= 0 {
		return ValidationError{"execution.max_trade_amount", "must be > 0"}
	}
	if cfg.Execution.MaxLotsPerTrade <= 0 {
		return ValidationError{"execution.max_lots_per_trade", "must be > 0"}
	}

	return nil
}
