package contracts

import (
	"testing"
	"time"
)

func TestNewTechnicalScore(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		confidence Confidence
		want       int
	}{
		{"buy high", ActionBuy, ConfidenceHigh, 3},
		{"buy medium", ActionBuy, ConfidenceMedium, 2},
		{"buy low", ActionBuy, ConfidenceLow, 1},
		{"sell medium", ActionSell, ConfidenceMedium, -2},
		{"sell high", ActionSell, ConfidenceHigh, -3},
		{"hold", ActionHold, ConfidenceHigh, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := NewTechnicalScore(IndicatorRSI14, 25, tt.action, tt.confidence, "")
			if score.Score != tt.want {
				t.Errorf("NewTechnicalScore(%s, %s).Score = %d, want %d", tt.action, tt.confidence, score.Score, tt.want)
			}
		})
	}
}

func TestTechnicalScore_Action(t *testing.T) {
	if got := (TechnicalScore{Score: 2}).Action(); got != ActionBuy {
		t.Errorf("Action() = %v, want %v", got, ActionBuy)
	}
	if got := (TechnicalScore{Score: -1}).Action(); got != ActionSell {
		t.Errorf("Action() = %v, want %v", got, ActionSell)
	}
	if got := (TechnicalScore{}).Action(); got != ActionHold {
		t.Errorf("Action() = %v, want %v", got, ActionHold)
	}
}

func TestAction_IsActionable(t *testing.T) {
	if !ActionBuy.IsActionable() || !ActionSell.IsActionable() {
		t.Error("Buy and Sell must be actionable")
	}
	if ActionHold.IsActionable() {
		t.Error("Hold must not be actionable")
	}
}

func TestTradeSignal_Key(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	signal := TradeSignal{Ticker: Ticker{Symbol: "SBER"}, Date: date}

	if got := signal.Key(); got != "SBER|2026-03-02" {
		t.Errorf("Key() = %q, want %q", got, "SBER|2026-03-02")
	}
}

func TestPipelineExecutionRecord_Exited(t *testing.T) {
	finished := time.Date(2026, 10, 16, 10, 0, 5, 0, time.UTC)

	live := PipelineExecutionRecord{Status: StatusRunning}
	exited := PipelineExecutionRecord{Status: StatusRunning, ExitReason: "portfolio is empty", FinishedAt: &finished}
	done := PipelineExecutionRecord{Status: StatusCompleted, FinishedAt: &finished}

	if live.Exited() || live.IsFinal() {
		t.Errorf("live run: Exited() = %v, IsFinal() = %v, want false, false", live.Exited(), live.IsFinal())
	}
	if !exited.Exited() || !exited.IsFinal() {
		t.Errorf("early exit: Exited() = %v, IsFinal() = %v, want true, true", exited.Exited(), exited.IsFinal())
	}
	if done.Exited() {
		t.Errorf("completed run: Exited() = true, want false")
	}
}
