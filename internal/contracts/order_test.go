package contracts

import (
	"errors"
	"testing"
	"time"
)

func TestExecutedTrade_Transitions(t *testing.T) {
	now := time.Now()

	trade := ExecutedTrade{ID: "t1", Quantity: 5, Status: TradePending}
	if err := trade.MarkSuccess(101.5, now); err != nil {
		t.Fatalf("MarkSuccess() error = %v", err)
	}
	if trade.Status != TradeSuccess || trade.Price != 101.5 {
		t.Errorf("after MarkSuccess got status=%s price=%v", trade.Status, trade.Price)
	}
	if trade.Amount() != 507.5 {
		t.Errorf("Amount() = %v, want 507.5", trade.Amount())
	}

	if err := trade.MarkError(errors.New("late"), now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkError() after success error = %v, want ErrInvalidTransition", err)
	}
}

func TestExecutedTrade_MarkError(t *testing.T) {
	trade := ExecutedTrade{ID: "t2", Price: 99, Status: TradePending}
	if err := trade.MarkError(errors.New("broker down"), time.Now()); err != nil {
		t.Fatalf("MarkError() error = %v", err)
	}
	if trade.Status != TradeError || trade.Price != 0 || trade.Error != "broker down" {
		t.Errorf("after MarkError got %+v", trade)
	}
	if err := trade.MarkSuccess(1, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("MarkSuccess() after error = %v, want ErrInvalidTransition", err)
	}
}
