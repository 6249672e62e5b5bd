package extract

import (
	"reflect"
	"testing"
	"time"
)

func TestSubagentsUsed(t *testing.T) {
	used := New().SubagentsUsed([]string{
		"Delegating to the Risk-Manager for exposure checks.",
		"The trader executed the plan; reporter summarized the session.",
	})
	want := []string{"reporter", "risk-manager", "trader"}
	if !reflect.DeepEqual(used, want) {
		t.Fatalf("subagents = %v, want %v", used, want)
	}
}

func TestSubagentsUsedEmpty(t *testing.T) {
	if used := New().SubagentsUsed([]string{"no delegation happened"}); len(used) != 0 {
		t.Fatalf("subagents = %v", used)
	}
}

func TestTradingActionsFallback(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	e := New(WithClock(func() time.Time { return fixed }))

	actions := e.TradingActions([]string{
		"Executed binance_spot_market_order for BTCUSDT.",
		"Nothing to see here.",
	})
	if len(actions) != 1 {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].ActionType != "spot_market_order" {
		t.Fatalf("action type = %q", actions[0].ActionType)
	}
	if actions[0].Timestamp != "2025-03-14T12:00:00Z" {
		t.Fatalf("timestamp = %q", actions[0].Timestamp)
	}
}
