package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// ═══════════════════════════════════════════════════════════

// PrintRecord prints one execution record with its steps
func PrintRecord(r *contracts.PipelineExecutionRecord) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", r.Pipeline)
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Run ID    : %s\n", r.ID)
	fmt.Printf("  Started   : %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Printf("  Status    : %s\n", r.Status)
	if r.Exited() {
		fmt.Printf("  Exit      : %s\n", r.ExitReason)
	}
	if r.Error != "" {
		fmt.Printf("  Error     : %s\n", r.Error)
	}
	if r.IsFinal() {
		fmt.Printf("  Duration  : %.2fs\n", r.Duration().Seconds())
	}
	fmt.Println("───────────────────────────────────────────────────────────")

	for i, s := range r.Steps {
		line := fmt.Sprintf("  [%d/%d] %-26s %s", i+1, len(r.Steps), s.Name, s.Status)
		if s.Status.IsTerminal() {
			line += fmt.Sprintf(" (%s)", s.Duration.Round(time.Millisecond))
		}
		fmt.Println(line)
		if s.Error != "" {
			fmt.Printf("         └─ %s\n", s.Error)
		}
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintRecordLine prints a one-line summary of a record
func PrintRecordLine(r contracts.PipelineExecutionRecord) {
	mark := "✅"
	switch {
	case r.Status == contracts.StatusFailed:
		mark = "❌"
	case r.Exited():
		mark = "⏭ "
	case !r.IsFinal():
		mark = "⏳"
	}

	trigger := "manual"
	if r.Scheduled {
		trigger = "scheduled"
	}

	fmt.Printf("%s %s  %-18s %-10s %-9s %6.2fs  %s\n",
		mark,
		r.StartedAt.Format("2006-01-02 15:04:05"),
		r.Pipeline,
		r.Status,
		trigger,
		r.Duration().Seconds(),
		r.ID,
	)
}

// PrintJSON prints v as indented JSON
func PrintJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
