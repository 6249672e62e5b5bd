package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/runtime"
)

// replayClock feeds stored timestamps into a ledger being rebuilt.
type replayClock struct {
	t time.Time
}

func (c *replayClock) set(t time.Time) { c.t = t.UTC() }
func (c *replayClock) now() time.Time  { return c.t }

// ReplayLedger rebuilds the in-memory ledger for a stored session by feeding
// the persisted events back through the ledger's own mutation path, with the
// clock pinned to each row's recorded timestamp. Returns nil when the
// session is unknown.
func (s *Store) ReplayLedger(ctx context.Context, sessionID string, opts ...ledger.Option) (*ledger.Ledger, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	turns, err := s.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	calls, err := s.ListToolCalls(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	execs, err := s.ListSubagents(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	clock := &replayClock{}
	clock.set(session.StartTime)
	opts = append(opts, ledger.WithClock(clock.now))
	l := ledger.New(sessionID, opts...)

	callsByTurn := make(map[int][]ToolCallRecord)
	for _, call := range calls {
		callsByTurn[call.TurnNumber] = append(callsByTurn[call.TurnNumber], call)
	}

	for _, turn := range turns {
		clock.set(turn.StartTime)
		l.StartTurn(turn.Number)
		for _, call := range callsByTurn[turn.Number] {
			clock.set(call.CalledAt)
			l.RecordToolCall(call.ToolName, call.ToolID, decodeInput(call.InputJSON))
		}
		if turn.EndTime.Valid {
			clock.set(turn.EndTime.Time)
			l.EndTurn()
		}
	}

	for _, exec := range execs {
		if !exec.EndTime.Valid {
			continue
		}
		clock.set(exec.EndTime.Time)
		l.RecordToolResult(exec.ToolID, replayContent(exec), false)
	}

	if session.EndTime.Valid {
		clock.set(session.EndTime.Time)
		l.EndSession()
	}
	return l, nil
}

func decodeInput(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil
	}
	return input
}

func replayContent(exec SubagentRecord) runtime.ResultContent {
	fields := map[string]any{
		"result": exec.ResultSummary,
	}
	if exec.DurationMS > 0 {
		fields["duration_ms"] = float64(exec.DurationMS)
	}
	if exec.TotalCostUSD > 0 {
		fields["total_cost_usd"] = exec.TotalCostUSD
	}
	if usage := decodeInput(exec.UsageJSON); usage != nil {
		fields["usage"] = usage
	}
	return runtime.StructuredContent(fields)
}

// SessionLabel formats a stored session for interactive pickers.
func SessionLabel(rec SessionRecord) string {
	state := rec.Status
	if rec.EndTime.Valid {
		state = fmt.Sprintf("%s %s", rec.Status, rec.EndTime.Time.UTC().Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%s (%s)", rec.ID, state)
}
