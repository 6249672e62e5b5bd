package sqlite

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/runtime"
)

// Recorder mirrors one session's ledger events into the store. Persistence
// failures are logged and swallowed so a broken disk never aborts a live
// trading session.
type Recorder struct {
	store     *Store
	sessionID string
	turn      int

	// pending holds tool ids of delegation calls awaiting their result,
	// session scoped like the ledger's own table.
	pending map[string]struct{}

	delegateTool string
	now          func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithDelegateTool overrides the tool name that denotes delegation.
func WithDelegateTool(name string) RecorderOption {
	return func(r *Recorder) { r.delegateTool = name }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates the session row and returns a recorder for it.
func NewRecorder(ctx context.Context, store *Store, sessionID string, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		store:        store,
		sessionID:    sessionID,
		pending:      make(map[string]struct{}),
		delegateTool: ledger.DefaultDelegateTool,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := store.CreateSession(ctx, sessionID, r.now().UTC()); err != nil {
		return nil, err
	}
	return r, nil
}

var _ ledger.SessionRecorder = (*Recorder)(nil)

func (r *Recorder) StartTurn(number int) {
	r.turn = number
	if err := r.store.StartTurn(context.Background(), r.sessionID, number, r.now().UTC()); err != nil {
		log.Printf("store: start turn %d: %v", number, err)
	}
}

func (r *Recorder) EndTurn() {
	if r.turn == 0 {
		return
	}
	if err := r.store.EndTurn(context.Background(), r.sessionID, r.turn, r.now().UTC()); err != nil {
		log.Printf("store: end turn %d: %v", r.turn, err)
	}
	r.turn = 0
}

func (r *Recorder) RecordToolCall(toolName, toolID string, input map[string]any) {
	ctx := context.Background()
	if r.turn == 0 {
		r.StartTurn(1)
	}

	if toolName == r.delegateTool && input != nil {
		subagentType, _ := input["subagent_type"].(string)
		if strings.TrimSpace(subagentType) == "" {
			subagentType = "unknown"
		}
		description, _ := input["description"].(string)
		err := r.store.OpenSubagent(ctx, SubagentRecord{
			SessionID:    r.sessionID,
			ToolID:       toolID,
			SubagentType: subagentType,
			Description:  description,
			StartTime:    r.now().UTC(),
		})
		if err != nil {
			log.Printf("store: open subagent %s: %v", toolID, err)
		} else {
			r.pending[toolID] = struct{}{}
		}
	}

	err := r.store.InsertToolCall(ctx, ToolCallRecord{
		SessionID:  r.sessionID,
		TurnNumber: r.turn,
		ToolName:   toolName,
		ToolID:     toolID,
		Agent:      "main",
		InputJSON:  encodeJSON(input),
		CalledAt:   r.now().UTC(),
	})
	if err != nil {
		log.Printf("store: record tool call %s: %v", toolName, err)
	}
}

func (r *Recorder) RecordToolResult(toolID string, content runtime.ResultContent, isError bool) {
	if _, ok := r.pending[toolID]; !ok {
		return
	}
	delete(r.pending, toolID)

	rec := SubagentRecord{
		SessionID: r.sessionID,
		ToolID:    toolID,
	}
	rec.EndTime.Time = r.now().UTC()
	rec.EndTime.Valid = true

	switch content.Kind {
	case runtime.ContentStructured:
		if ms, ok := content.Int64Field("duration_ms"); ok {
			rec.DurationMS = ms
		}
		if cost, ok := content.FloatField("total_cost_usd"); ok {
			rec.TotalCostUSD = cost
		}
		rec.UsageJSON = encodeJSON(content.MapField("usage"))
		rec.ResultSummary = content.StringField("result")
	case runtime.ContentText:
		rec.ResultSummary = content.Text
	}

	if err := r.store.CloseSubagent(context.Background(), rec); err != nil {
		log.Printf("store: close subagent %s: %v", toolID, err)
	}
}

func (r *Recorder) EndSession() {
	r.EndTurn()
	if err := r.store.FinishSession(context.Background(), r.sessionID, r.now().UTC()); err != nil {
		log.Printf("store: finish session %s: %v", r.sessionID, err)
	}
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
