package contracts

import (
	"fmt"
	"time"
)

// TradeStatus is the outcome of an executed trade.
// Transitions only Pending → {Success | Error}.
type TradeStatus string

const (
	TradePending TradeStatus = "PENDING"
	TradeSuccess TradeStatus = "SUCCESS"
	TradeError   TradeStatus = "ERROR"
)

// ExecutedTrade is one order attempt produced by the auto-trade pipeline.
// Persisted whatever the outcome.
type ExecutedTrade struct {
	ID         string      `json:"id"`
	Ticker     Ticker      `json:"ticker"`
	Side       Action      `json:"side"` // BUY or SELL
	Quantity   int64       `json:"quantity"`
	Price      float64     `json:"price"` // fill price, 0 until executed
	ExecutedAt time.Time   `json:"executed_at"`
	Status     TradeStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	SignalDate time.Time   `json:"signal_date"`
}

// Key returns the trade id
func (t ExecutedTrade) Key() string {
	return t.ID
}

// MarkSuccess records a fill
func (t *ExecutedTrade) MarkSuccess(price float64, at time.Time) error {
	if t.Status != TradePending {
		return fmt.Errorf("trade %s: %w: %s → %s", t.ID, ErrInvalidTransition, t.Status, TradeSuccess)
	}
	t.Price = price
	t.ExecutedAt = at
	t.Status = TradeSuccess
	return nil
}

// MarkError records a failed placement; the price is reset to 0
func (t *ExecutedTrade) MarkError(cause error, at time.Time) error {
	if t.Status != TradePending {
		return fmt.Errorf("trade %s: %w: %s → %s", t.ID, ErrInvalidTransition, t.Status, TradeError)
	}
	t.Price = 0
	t.ExecutedAt = at
	t.Status = TradeError
	if cause != nil {
		t.Error = cause.Error()
	}
	return nil
}

// Amount returns Quantity * Price
func (t ExecutedTrade) Amount() float64 {
	return float64(t.Quantity) * t.Price
}

// OrderPreview describes the order a preview run would have placed
type OrderPreview struct {
	TradeID     string  `json:"trade_id"`
	Ticker      Ticker  `json:"ticker"`
	Side        Action  `json:"side"`
	Quantity    int64   `json:"quantity"`
	QuotedPrice float64 `json:"quoted_price"`
	Amount      float64 `json:"amount"`
	Error       string  `json:"error,omitempty"`
}
