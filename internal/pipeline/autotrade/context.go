package autotrade

import (
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// Context is the state shared by the auto-trade steps of one run.
// Each field lists the step that writes it.
type Context struct {
	// Date selects the signals to execute. Set by NewContext.
	Date time.Time
	// Preview places no order and changes no state. Set by NewContext.
	Preview bool

	// Settings is the bot configuration of this run. Written by CheckAutoTradePermission.
	Settings *contracts.BotSettings
	// Signals are today's Buy and Sell signals.
	// Written by LoadSignals, narrowed by ValidateTradeLimits.
	Signals []contracts.TradeSignal
	// Holdings is the stored holdings snapshot. Written by ValidateTradeLimits.
	Holdings []contracts.PortfolioAsset
	// Rejected counts the signals dropped by the limits. Written by ValidateTradeLimits.
	Rejected int

	// Trades start Pending. Written by CalculateTradeVolume, settled by PlaceOrders.
	Trades []*contracts.ExecutedTrade
	// Previews describe the orders a preview run would place. Written by PlaceOrders.
	Previews []contracts.OrderPreview
}

// NewContext creates a fresh context executing the signals of date
func NewContext(date time.Time, preview bool) *Context {
	return &Context{Date: date, Preview: preview}
}

// Succeeded returns the trades with status Success
func (c *Context) Succeeded() []*contracts.ExecutedTrade {
	return c.withStatus(contracts.TradeSuccess)
}

// Failed returns the trades with status Error
func (c *Context) Failed() []*contracts.ExecutedTrade {
	return c.withStatus(contracts.TradeError)
}

func (c *Context) withStatus(status contracts.TradeStatus) []*contracts.ExecutedTrade {
	var out []*contracts.ExecutedTrade
	for _, t := range c.Trades {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}
