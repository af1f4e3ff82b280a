package contracts

import "time"

// SettingsID is the well-known identity of the single BotSettings record
const SettingsID = "bot"

// BotSettings is the singleton bot configuration.
// Read once at the start of a run, never mutated mid-run.
type BotSettings struct {
	ID                 string    `json:"id"`
	AutoTradingEnabled bool      `json:"auto_trading_enabled"`
	MaxPositionPercent float64   `json:"max_position_percent"` // per-ticker share cap of portfolio value
	MinTradeAmount     float64   `json:"min_trade_amount"`
	Schedule           string    `json:"schedule"` // cron expression with seconds
	Status             string    `json:"status"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Key returns the record id
func (s BotSettings) Key() string {
	return s.ID
}

// DefaultSettings returns a disabled bot with conservative limits
func DefaultSettings() BotSettings {
	return BotSettings{
		ID:                 SettingsID,
		AutoTradingEnabled: false,
		MaxPositionPercent: 20,
		MinTradeAmount:     10,
		Schedule:           "0 0 10 * * 1-5",
		Status:             "idle",
	}
}
