// Package ledger keeps the append-only activity record for one trading
// session: turns, tool calls and delegated subagent executions. Malformed
// or missing data degrades to a no-op, never a panic.
package ledger

import (
	"strings"
	"time"

	"github.com/quantrove/tradescope/internal/runtime"
)

const resultSummaryLimit = 200

// ToolCall is one invocation of a named capability. Immutable once recorded.
type ToolCall struct {
	ToolName  string
	ToolID    string
	Timestamp time.Time
	Agent     string
	Input     map[string]any
}

// SubagentExecution tracks one delegated specialist run. Created when the
// delegation tool call is issued and closed once when its result arrives.
type SubagentExecution struct {
	SubagentType    string
	TaskDescription string
	StartTime       time.Time
	EndTime         time.Time
	DurationMS      int64
	ResultSummary   string
	Usage           map[string]any
	TotalCostUSD    float64
}

// Closed reports whether the matching tool result has arrived.
func (e *SubagentExecution) Closed() bool {
	return !e.EndTime.IsZero()
}

// Turn is one request/response cycle with the agent.
type Turn struct {
	Number    int
	StartTime time.Time
	EndTime   time.Time
	ToolCalls []ToolCall
	Subagents []*SubagentExecution
}

// ToolCounts returns the per-tool call histogram for this turn.
func (t *Turn) ToolCounts() map[string]int {
	counts := make(map[string]int, len(t.ToolCalls))
	for _, call := range t.ToolCalls {
		counts[call.ToolName]++
	}
	return counts
}

// AgentToolCounts groups tool counts by the agent that issued them.
func (t *Turn) AgentToolCounts() map[string]map[string]int {
	byAgent := make(map[string]map[string]int)
	for _, call := range t.ToolCalls {
		if byAgent[call.Agent] == nil {
			byAgent[call.Agent] = make(map[string]int)
		}
		byAgent[call.Agent][call.ToolName]++
	}
	return byAgent
}

// Ledger owns the activity record of one session. It is mutated by a single
// orchestration goroutine; callers that parallelize turn processing must put
// it behind their own mutex to preserve append order.
type Ledger struct {
	sessionID string
	startTime time.Time
	endTime   time.Time

	turns   []*Turn
	current *Turn

	// pending maps a delegation tool id to its open execution. Session
	// scoped: a result may arrive after the issuing turn has closed.
	pending map[string]*SubagentExecution

	delegateTool string
	tradingTools []string

	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDelegateTool overrides the tool name that denotes delegation.
func WithDelegateTool(name string) Option {
	return func(l *Ledger) { l.delegateTool = name }
}

// WithTradingTools overrides the exchange-affecting tool allow-list.
func WithTradingTools(tools []string) Option {
	return func(l *Ledger) { l.tradingTools = tools }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger for one session. An empty sessionID defaults to a
// timestamp-derived string.
func New(sessionID string, opts ...Option) *Ledger {
	l := &Ledger{
		pending:      make(map[string]*SubagentExecution),
		delegateTool: DefaultDelegateTool,
		tradingTools: DefaultTradingTools(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = l.now().UTC().Format("20060102_150405")
	}
	l.sessionID = sessionID
	l.startTime = l.now().UTC()
	return l
}

// SessionID returns the session identifier.
func (l *Ledger) SessionID() string { return l.sessionID }

// StartTime returns when the session began.
func (l *Ledger) StartTime() time.Time { return l.startTime }

// EndTime returns when the session ended, zero until EndSession.
func (l *Ledger) EndTime() time.Time { return l.endTime }

// Turns returns the recorded turns in order. Callers must treat the result
// as read-only.
func (l *Ledger) Turns() []*Turn { return l.turns }

// StartTurn opens a new turn.
func (l *Ledger) StartTurn(number int) {
	l.current = &Turn{
		Number:    number,
		StartTime: l.now().UTC(),
	}
	l.turns = append(l.turns, l.current)
}

// EndTurn closes the current turn. No-op when none is open.
func (l *Ledger) EndTurn() {
	if l.current != nil && l.current.EndTime.IsZero() {
		l.current.EndTime = l.now().UTC()
	}
	l.current = nil
}

// RecordToolCall appends a main-agent tool call to the current turn. If no
// turn is open an implicit one is created so callers that skip StartTurn do
// not lose data. A delegation tool call additionally opens a
// SubagentExecution keyed by the tool id.
func (l *Ledger) RecordToolCall(toolName, toolID string, input map[string]any) {
	if l.current == nil {
		l.StartTurn(len(l.turns) + 1)
	}

	if toolName == l.delegateTool && input != nil {
		subagentType, _ := input["subagent_type"].(string)
		if strings.TrimSpace(subagentType) == "" {
			subagentType = "unknown"
		}
		description, _ := input["description"].(string)

		exec := &SubagentExecution{
			SubagentType:    subagentType,
			TaskDescription: description,
			StartTime:       l.now().UTC(),
		}
		l.current.Subagents = append(l.current.Subagents, exec)
		l.pending[toolID] = exec
	}

	l.current.ToolCalls = append(l.current.ToolCalls, ToolCall{
		ToolName:  toolName,
		ToolID:    toolID,
		Timestamp: l.now().UTC(),
		Agent:     "main",
		Input:     input,
	})
}

// RecordToolResult closes the pending subagent execution matching toolID, if
// any. Structured results yield duration, usage and cost; string results are
// truncated into the summary. Unknown ids are not tracked delegations and
// are ignored; a second result for the same id is a no-op.
func (l *Ledger) RecordToolResult(toolID string, content runtime.ResultContent, isError bool) {
	exec, ok := l.pending[toolID]
	if !ok {
		return
	}
	exec.EndTime = l.now().UTC()

	switch content.Kind {
	case runtime.ContentStructured:
		if ms, ok := content.Int64Field("duration_ms"); ok {
			exec.DurationMS = ms
		}
		if cost, ok := content.FloatField("total_cost_usd"); ok {
			exec.TotalCostUSD = cost
		}
		exec.Usage = content.MapField("usage")
		exec.ResultSummary = truncate(content.StringField("result"), resultSummaryLimit)
	case runtime.ContentText:
		exec.ResultSummary = truncate(content.Text, resultSummaryLimit)
	}

	delete(l.pending, toolID)
}

// EndSession finalizes the ledger, closing the open turn first. Guarded so a
// second call from another exit path cannot corrupt state.
func (l *Ledger) EndSession() {
	if !l.endTime.IsZero() {
		return
	}
	if l.current != nil {
		l.EndTurn()
	}
	l.endTime = l.now().UTC()
}

// truncate caps s at limit characters, never splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
