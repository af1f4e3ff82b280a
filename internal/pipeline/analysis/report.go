package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// NoSignalsMessage is sent when the run produced no Buy or Sell signal
const NoSignalsMessage = "No trade signals today"

// FormatSignals renders the daily summary, strongest confidence first
func FormatSignals(date time.Time, actionable []contracts.TradeSignal) string {
	day := date.Format("2006-01-02")
	if len(actionable) == 0 {
		return fmt.Sprintf("%s (%s)", NoSignalsMessage, day)
	}

	sorted := append([]contracts.TradeSignal(nil), actionable...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Confidence.Magnitude() != b.Confidence.Magnitude() {
			return a.Confidence.Magnitude() > b.Confidence.Magnitude()
		}
		if a.Action != b.Action {
			return a.Action == contracts.ActionBuy
		}
		return a.Ticker.Symbol < b.Ticker.Symbol
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trade signals %s: %d\n", day, len(sorted))
	for _, s := range sorted {
		fmt.Fprintf(&sb, "\n%s %s [%s] fundamental %d\n  %s\n",
			s.Action, s.Ticker.Symbol, s.Confidence, s.FundamentalScore, s.Reason)
	}
	return sb.String()
}
