// Package session drives one agent session: it consumes the runtime event
// stream, feeds the activity recorders, and hands the accumulated text to
// the report pipeline when the stream ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/report"
	"github.com/quantrove/tradescope/internal/runtime"
	"github.com/quantrove/tradescope/models"
)

// Exit codes reported by a finished session.
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitNoAction = 2
)

const defaultNotesToolFragment = "trading_notes"

// EventSink receives events for display. Implemented by display.Printer.
type EventSink interface {
	Print(ev runtime.Event)
}

// Runner owns the single-writer event loop for one session. All recorder
// dispatch happens synchronously on the calling goroutine.
type Runner struct {
	ledger    *ledger.Ledger
	recorder  ledger.SessionRecorder
	extras    []ledger.SessionRecorder
	sink      EventSink
	notesTool string

	responses []string
	notes     []string

	// toolNames maps tool ids to names so results can be attributed,
	// session scoped like the pending-subagent table.
	toolNames map[string]string

	turn      int
	turnOpen  bool
	exitCode  int
	finalized bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRecorder adds an extra recorder alongside the ledger: the sqlite
// store, the tracing hook, or a NopRecorder when recording is disabled.
// May be given more than once; every recorder sees every event.
func WithRecorder(rec ledger.SessionRecorder) RunnerOption {
	return func(r *Runner) {
		r.extras = append(r.extras, rec)
	}
}

// WithSink sets the display sink. Absent a sink, events are not rendered.
func WithSink(sink EventSink) RunnerOption {
	return func(r *Runner) { r.sink = sink }
}

// WithNotesTool overrides the tool-name fragment whose results are captured
// as trading notes.
func WithNotesTool(fragment string) RunnerOption {
	return func(r *Runner) { r.notesTool = fragment }
}

// NewRunner creates a runner around an existing ledger.
func NewRunner(l *ledger.Ledger, opts ...RunnerOption) *Runner {
	r := &Runner{
		ledger:    l,
		recorder:  l,
		notesTool: defaultNotesToolFragment,
		toolNames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.extras) > 0 {
		r.recorder = append(ledger.MultiRecorder{l}, r.extras...)
	}
	return r
}

// Run consumes the stream until it ends, the context is cancelled, or an MCP
// server failure is reported. The session is finalized on every exit path.
func (r *Runner) Run(ctx context.Context, stream runtime.EventStream) error {
	defer r.finalize()

	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			r.exitCode = ExitError
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read event stream: %w", err)
		}

		if r.sink != nil {
			r.sink.Print(ev)
		}
		if err := r.dispatch(ev); err != nil {
			r.exitCode = ExitError
			return err
		}
	}
}

func (r *Runner) dispatch(ev runtime.Event) error {
	switch e := ev.(type) {
	case runtime.TextEvent:
		r.ensureTurn()
		r.responses = append(r.responses, e.Text)
	case runtime.ThinkingEvent:
		r.ensureTurn()
	case runtime.ToolUseEvent:
		r.ensureTurn()
		r.toolNames[e.ID] = e.Name
		r.recorder.RecordToolCall(e.Name, e.ID, e.Input)
	case runtime.ToolResultEvent:
		r.captureNotes(e)
		r.recorder.RecordToolResult(e.ToolUseID, e.Content, e.IsError)
	case runtime.SystemEvent:
		if failed := failedMCPServers(e); len(failed) > 0 {
			return fmt.Errorf("mcp server(s) failed to initialize: %s", strings.Join(failed, ", "))
		}
	case runtime.ResultEvent:
		if e.IsError {
			r.exitCode = ExitError
		}
		r.closeTurn()
	}
	return nil
}

// ensureTurn opens the next turn on the first event after a final-result.
func (r *Runner) ensureTurn() {
	if r.turnOpen {
		return
	}
	r.turn++
	r.turnOpen = true
	r.recorder.StartTurn(r.turn)
}

func (r *Runner) closeTurn() {
	if !r.turnOpen {
		return
	}
	r.turnOpen = false
	r.recorder.EndTurn()
}

func (r *Runner) captureNotes(e runtime.ToolResultEvent) {
	if e.IsError || r.notesTool == "" {
		return
	}
	name := r.toolNames[e.ToolUseID]
	if !strings.Contains(name, r.notesTool) {
		return
	}
	switch e.Content.Kind {
	case runtime.ContentText:
		if e.Content.Text != "" {
			r.notes = append(r.notes, e.Content.Text)
		}
	case runtime.ContentStructured:
		if s := e.Content.StringField("result"); s != "" {
			r.notes = append(r.notes, s)
		}
	}
}

// finalize ends the session exactly once, from whatever exit path ran.
func (r *Runner) finalize() {
	if r.finalized {
		return
	}
	r.finalized = true
	r.recorder.EndSession()
}

// ExitCode reports the session outcome: error beats no-action beats success.
func (r *Runner) ExitCode() int {
	if r.exitCode != ExitSuccess {
		return r.exitCode
	}
	if r.finalized && len(r.ledger.TradingActions()) == 0 {
		return ExitNoAction
	}
	return ExitSuccess
}

// Ledger exposes the session's activity record.
func (r *Runner) Ledger() *ledger.Ledger { return r.ledger }

// Responses returns the accumulated assistant text blocks in arrival order.
func (r *Runner) Responses() []string { return r.responses }

// NotesOutputs returns captured trading-notes tool results.
func (r *Runner) NotesOutputs() []string { return r.notes }

// Compile builds the structured report for the finished session.
func (r *Runner) Compile(c *report.Compiler) models.AgentExecutionReport {
	return c.Compile(r.ledger, report.Input{
		Responses:        r.responses,
		NotesToolOutputs: r.notes,
		ExitCode:         r.ExitCode(),
	})
}

func failedMCPServers(e runtime.SystemEvent) []string {
	raw, ok := e.Data["mcp_servers"].([]any)
	if !ok {
		return nil
	}
	var failed []string
	for _, entry := range raw {
		info, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		status, _ := info["status"].(string)
		if status != "failed" {
			continue
		}
		name, _ := info["name"].(string)
		if name == "" {
			name = "unknown"
		}
		failed = append(failed, name)
	}
	return failed
}
