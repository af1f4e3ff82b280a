package autotrade

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// FormatTrades renders the execution summary: successful trades first, then failures
func FormatTrades(date time.Time, succeeded, failed []*contracts.ExecutedTrade) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Executed trades %s: %d ok, %d failed\n", date.Format("2006-01-02"), len(succeeded), len(failed))

	if len(succeeded) > 0 {
		sb.WriteString("\nSuccessful:\n")
		for _, t := range succeeded {
			fmt.Fprintf(&sb, "  %s %s x%d @ %.2f = %.2f\n", t.Side, t.Ticker.Symbol, t.Quantity, t.Price, t.Amount())
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailed:\n")
		for _, t := range failed {
			fmt.Fprintf(&sb, "  %s %s x%d: %s\n", t.Side, t.Ticker.Symbol, t.Quantity, t.Error)
		}
	}
	return sb.String()
}

// FormatPreviews renders the orders a preview run would place
func FormatPreviews(date time.Time, previews []contracts.OrderPreview) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Order preview %s: %d orders\n", date.Format("2006-01-02"), len(previews))
	for _, p := range previews {
		if p.Error != "" {
			fmt.Fprintf(&sb, "  %s %s x%d: %s\n", p.Side, p.Ticker.Symbol, p.Quantity, p.Error)
			continue
		}
		fmt.Fprintf(&sb, "  %s %s x%d @ %.2f = %.2f\n", p.Side, p.Ticker.Symbol, p.Quantity, p.QuotedPrice, p.Amount)
	}
	return sb.String()
}

var tradeHeader = []string{"id", "ticker", "side", "quantity", "price", "amount", "status", "executed_at", "error"}

// WriteTradesCSV writes one row per trade
func WriteTradesCSV(w io.Writer, trades []*contracts.ExecutedTrade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		executedAt := ""
		if !t.ExecutedAt.IsZero() {
			executedAt = t.ExecutedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			t.ID,
			t.Ticker.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			strconv.FormatFloat(t.Price, 'f', 2, 64),
			strconv.FormatFloat(t.Amount(), 'f', 2, 64),
			string(t.Status),
			executedAt,
			t.Error,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var previewHeader = []string{"trade_id", "ticker", "side", "quantity", "quoted_price", "amount", "error"}

// WritePreviewsCSV writes one row per previewed order
func WritePreviewsCSV(w io.Writer, previews []contracts.OrderPreview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(previewHeader); err != nil {
		return err
	}
	for _, p := range previews {
		if err := cw.Write([]string{
			p.TradeID,
			p.Ticker.Symbol,
			string(p.Side),
			strconv.FormatInt(p.Quantity, 10),
			strconv.FormatFloat(p.QuotedPrice, 'f', 2, 64),
			strconv.FormatFloat(p.Amount, 'f', 2, 64),
			p.Error,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
