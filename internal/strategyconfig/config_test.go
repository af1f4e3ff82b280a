package strategyconfig

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/tradebot.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.StrategyID != "tradebot_default" {
		t.Errorf("expected strategy_id=tradebot_default, got %s", cfg.Meta.StrategyID)
	}
	if cfg.Analysis.MinBars != 50 {
		t.Errorf("expected min_bars=50, got %d", cfg.Analysis.MinBars)
	}
	if len(yamlData) == 0 {
		t.Error("expected raw yaml bytes")
	}

	// The shipped file mirrors the built-in defaults
	fileHash, _ := Hash(cfg)
	defaultHash, _ := Hash(Default())
	if fileHash != defaultHash {
		t.Error("config/strategy/tradebot.yaml drifted from Default()")
	}
}

func TestHashDeterministic(t *testing.T) {
	hash, err := Hash(Default())
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	hash2, _ := Hash(Default())
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	changed := Default()
	changed.Execution.MaxLotsPerTrade = 6
	hash3, _ := Hash(changed)
	if hash == hash3 {
		t.Error("hash must change when a rule changes")
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("execution:\n  max_lots_per_trade: 9\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Execution.MaxLotsPerTrade != 9 {
		t.Errorf("expected max_lots_per_trade=9, got %d", cfg.Execution.MaxLotsPerTrade)
	}
	if cfg.Execution.MaxTradeAmount != 10_000 {
		t.Errorf("expected default max_trade_amount kept, got %v", cfg.Execution.MaxTradeAmount)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	if _, err := Parse([]byte("signals:\n  rsi_oversould: 30\n")); err == nil {
		t.Error("expected unknown field to fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"rsi inverted", func(c *Config) { c.Signals.RSIOversold = 80 }, "signals.rsi"},
		{"adx inverted", func(c *Config) { c.Signals.ADXWeak = 30 }, "signals.adx"},
		{"confidence inverted", func(c *Config) { c.Signals.ConfidenceMedium = 6 }, "signals.confidence"},
		{"zero lots", func(c *Config) { c.Execution.MaxLotsPerTrade = 0 }, "execution.max_lots_per_trade"},
		{"bad interval", func(c *Config) { c.Analysis.CandleInterval = "-1h" }, "analysis.candle_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Validate() field = %s, want %s", verr.Field, tt.field)
			}
		})
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("Validate(Default()) = %v, want nil", err)
	}
}

func TestAnalysisDurations(t *testing.T) {
	a := Default().Analysis
	if a.Interval() != time.Hour {
		t.Errorf("Interval() = %v, want 1h", a.Interval())
	}
	if a.Window() != 7*24*time.Hour {
		t.Errorf("Window() = %v, want 168h", a.Window())
	}
}
