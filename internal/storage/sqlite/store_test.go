package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/quantrove/tradescope/internal/runtime"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tradescope.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// steppingClock advances one second per reading so every row gets a
// distinct, ordered timestamp.
type steppingClock struct {
	t time.Time
}

func (c *steppingClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newSteppingClock() *steppingClock {
	return &steppingClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func TestRecorderReplayRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	clock := newSteppingClock()

	rec, err := NewRecorder(ctx, store, "rt-1", WithClock(clock.now))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	rec.StartTurn(1)
	rec.RecordToolCall("mcp__binance__binance_get_price", "t1", map[string]any{"symbol": "BTCUSDT"})
	rec.RecordToolCall("Task", "task-1", map[string]any{
		"subagent_type": "risk-manager",
		"description":   "check exposure",
	})
	rec.RecordToolResult("task-1", runtime.StructuredContent(map[string]any{
		"duration_ms":    float64(1500),
		"total_cost_usd": 0.05,
		"result":         "approved",
		"usage":          map[string]any{"input_tokens": float64(120)},
	}), false)
	rec.EndTurn()

	rec.StartTurn(2)
	rec.RecordToolCall("mcp__binance__binance_spot_market_order", "t2", map[string]any{
		"symbol": "BTCUSDT",
		"side":   "BUY",
	})
	rec.EndSession()

	session, err := store.GetSession(ctx, "rt-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session == nil || session.Status != StatusEnded || !session.EndTime.Valid {
		t.Fatalf("session = %+v", session)
	}

	l, err := store.ReplayLedger(ctx, "rt-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if l == nil {
		t.Fatal("replay returned nil for a stored session")
	}

	if got := len(l.Turns()); got != 2 {
		t.Fatalf("turns = %d", got)
	}
	if got := len(l.Turns()[0].ToolCalls); got != 2 {
		t.Fatalf("turn 1 tool calls = %d", got)
	}

	if got := len(l.Turns()[0].Subagents); got != 1 {
		t.Fatalf("subagents = %d", got)
	}
	exec := l.Turns()[0].Subagents[0]
	if exec.SubagentType != "risk-manager" {
		t.Fatalf("subagent type = %q", exec.SubagentType)
	}
	if exec.DurationMS != 1500 || exec.TotalCostUSD != 0.05 {
		t.Fatalf("subagent timing = %+v", exec)
	}
	if exec.ResultSummary != "approved" {
		t.Fatalf("result summary = %q", exec.ResultSummary)
	}

	actions := l.TradingActions()
	if len(actions) != 1 {
		t.Fatalf("trading actions = %+v", actions)
	}
	if actions[0].Type != "spot_market_order" || actions[0].Symbol != "BTCUSDT" || actions[0].Side != "BUY" {
		t.Fatalf("action = %+v", actions[0])
	}
	if actions[0].TurnNumber != 2 {
		t.Fatalf("action turn = %d", actions[0].TurnNumber)
	}

	stats := l.Stats()
	if stats.TotalTurns != 2 || stats.TotalToolCalls != 3 || stats.TotalSubagentExecutions != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SubagentCostUSD.String() != "0.05" {
		t.Fatalf("subagent cost = %s", stats.SubagentCostUSD.String())
	}
	if l.EndTime().IsZero() {
		t.Fatal("replayed ledger has no end time")
	}
}

func TestReplayLedgerUnknownSession(t *testing.T) {
	store := openTestStore(t)
	l, err := store.ReplayLedger(context.Background(), "missing")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if l != nil {
		t.Fatalf("ledger = %+v, want nil", l)
	}
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	session, err := store.GetSession(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session != nil {
		t.Fatalf("session = %+v, want nil", session)
	}
}

func TestCloseSubagentNotOpen(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.CreateSession(ctx, "s1", time.Now()); err != nil {
		t.Fatalf("create session: %v", err)
	}

	rec := SubagentRecord{SessionID: "s1", ToolID: "nope"}
	rec.EndTime = sql.NullTime{Time: time.Now(), Valid: true}
	if err := store.CloseSubagent(ctx, rec); err == nil {
		t.Fatal("expected error closing a subagent that was never opened")
	}
}

func TestCreateSessionUpsertReactivates(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := store.CreateSession(ctx, "s1", start); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.FinishSession(ctx, "s1", start.Add(time.Minute)); err != nil {
		t.Fatalf("finish session: %v", err)
	}
	if err := store.CreateSession(ctx, "s1", start.Add(time.Hour)); err != nil {
		t.Fatalf("recreate session: %v", err)
	}

	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != StatusActive || session.EndTime.Valid {
		t.Fatalf("session = %+v", session)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateSession(ctx, id, base); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		base = base.Add(time.Minute)
	}

	sessions, err := store.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Fatalf("sessions = %+v", sessions)
	}
}
