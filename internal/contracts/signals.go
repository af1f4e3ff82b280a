package contracts

import (
	"fmt"
	"time"
)

// Action is the direction of a signal or a trade
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Sign returns +1 for Buy, -1 for Sell and 0 for Hold
func (a Action) Sign() int {
	switch a {
	case ActionBuy:
		return 1
	case ActionSell:
		return -1
	default:
		return 0
	}
}

// IsActionable reports whether the action leads to an order
func (a Action) IsActionable() bool {
	return a == ActionBuy || a == ActionSell
}

// Confidence is the strength tier of a signal
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Magnitude returns 1, 2 or 3 for Low, Medium and High
func (c Confidence) Magnitude() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// TechnicalScore is the verdict of one strategy for one ticker.
// Score = Action.Sign() * Confidence.Magnitude(), range -3..+3.
type TechnicalScore struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Score     int     `json:"score"`
	Reason    string  `json:"reason"`
}

// NewTechnicalScore builds a score from a direction and a confidence tier
func NewTechnicalScore(indicator string, value float64, action Action, confidence Confidence, reason string) TechnicalScore {
	return TechnicalScore{
		Indicator: indicator,
		Value:     value,
		Score:     action.Sign() * confidence.Magnitude(),
		Reason:    reason,
	}
}

// Action derives the direction from the score sign
func (s TechnicalScore) Action() Action {
	switch {
	case s.Score > 0:
		return ActionBuy
	case s.Score < 0:
		return ActionSell
	default:
		return ActionHold
	}
}

// TradeSignal is the final decision for one ticker on one day.
// Identity is ticker+date: re-running the analysis on the same day overwrites it.
type TradeSignal struct {
	Ticker           Ticker           `json:"ticker"`
	Date             time.Time        `json:"date"`
	Action           Action           `json:"action"`
	Confidence       Confidence       `json:"confidence"`
	Reason           string           `json:"reason"`
	FundamentalScore int              `json:"fundamental_score"`
	AllocatedCash    *float64         `json:"allocated_cash,omitempty"`
	TechnicalScores  []TechnicalScore `json:"technical_scores"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Key returns symbol|YYYY-MM-DD
func (s TradeSignal) Key() string {
	return SignalKey(s.Ticker.Symbol, s.Date)
}

// SignalKey builds the identity of a signal
func SignalKey(symbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s", symbol, date.Format("2006-01-02"))
}
