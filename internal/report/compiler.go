package report

import (
	"strings"
	"time"

	"github.com/quantrove/tradescope/internal/extract"
	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/models"
)

// Compiler merges ledger aggregates with text extraction into the final
// structured report. It reads the ledger as a snapshot and never mutates it.
type Compiler struct {
	extractor *extract.Extractor
	now       func() time.Time
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) CompilerOption {
	return func(c *Compiler) { c.extractor = e }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) { c.now = now }
}

// NewCompiler returns a report compiler with default extraction rules.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		extractor: extract.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input carries everything the compiler needs besides the ledger.
type Input struct {
	// Responses is the accumulated assistant text, one entry per text block
	// in arrival order.
	Responses []string

	// NotesToolOutputs holds raw outputs of the trading-notes tool, appended
	// to the combined trading notes.
	NotesToolOutputs []string

	ExitCode int
}

// Compile builds the structured execution report for a finished session.
func (c *Compiler) Compile(l *ledger.Ledger, in Input) models.AgentExecutionReport {
	endTime := l.EndTime()
	if endTime.IsZero() {
		endTime = c.now().UTC()
	}

	resume := models.TradingSessionResume{
		SessionID:       l.SessionID(),
		StartTime:       l.StartTime().Format(time.RFC3339),
		EndTime:         endTime.Format(time.RFC3339),
		DurationSeconds: endTime.Sub(l.StartTime()).Seconds(),
		SubagentsUsed:   c.subagentsUsed(l, in.Responses),
		KeyDecisions:    c.extractor.KeyDecisions(in.Responses),
	}

	actions := c.tradingActions(l, in.Responses)
	resume.TradesExecuted = len(actions)

	return models.AgentExecutionReport{
		ExitCode:       in.ExitCode,
		Status:         models.StatusForExitCode(in.ExitCode),
		Session:        resume,
		MCPReport:      c.extractor.ParseReporterOutput(in.Responses),
		WorkflowResult: c.extractor.WorkflowResults(in.Responses),
		TradingActions: actions,
		TradingNotes:   combineNotes(in.Responses, in.NotesToolOutputs),
	}
}

// tradingActions prefers the ledger's live record, which carries the real
// call timestamps and inputs. The extractor's substring pass over free text
// is the fallback when nothing was recorded live.
func (c *Compiler) tradingActions(l *ledger.Ledger, responses []string) []models.TradingAction {
	recorded := l.TradingActions()
	if len(recorded) == 0 {
		return c.extractor.TradingActions(responses)
	}

	actions := make([]models.TradingAction, 0, len(recorded))
	for _, a := range recorded {
		actions = append(actions, models.TradingAction{
			ActionType: a.Type,
			Timestamp:  a.Timestamp.Format(time.RFC3339),
			Symbol:     a.Symbol,
			Side:       a.Side,
			Details:    a.Details,
		})
	}
	return actions
}

// subagentsUsed unions the ledger's delegation record with name mentions in
// the free text, preserving the ledger's execution order and appending
// text-only mentions after it.
func (c *Compiler) subagentsUsed(l *ledger.Ledger, responses []string) []string {
	seen := make(map[string]struct{})
	var used []string

	for _, turn := range l.Turns() {
		for _, exec := range turn.Subagents {
			if _, ok := seen[exec.SubagentType]; ok {
				continue
			}
			seen[exec.SubagentType] = struct{}{}
			used = append(used, exec.SubagentType)
		}
	}

	for _, name := range c.extractor.SubagentsUsed(responses) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		used = append(used, name)
	}

	return used
}

func combineNotes(responses, notesToolOutputs []string) string {
	notes := strings.Join(responses, "\n\n")
	if len(notesToolOutputs) == 0 {
		return notes
	}
	tool := strings.Join(notesToolOutputs, "\n")
	if notes == "" {
		return tool
	}
	return notes + "\n\n## Trading Notes from Binance Tool:\n" + tool
}
