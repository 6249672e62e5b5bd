package ledger

import "github.com/quantrove/tradescope/internal/runtime"

// SessionRecorder receives the activity of one session as it happens. The
// Ledger is the primary implementation; the sqlite store provides a durable
// one and NopRecorder is selected when recording is disabled.
type SessionRecorder interface {
	StartTurn(number int)
	EndTurn()
	RecordToolCall(toolName, toolID string, input map[string]any)
	RecordToolResult(toolID string, content runtime.ResultContent, isError bool)
	EndSession()
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) StartTurn(int)                                       {}
func (NopRecorder) EndTurn()                                            {}
func (NopRecorder) RecordToolCall(string, string, map[string]any)       {}
func (NopRecorder) RecordToolResult(string, runtime.ResultContent, bool) {}
func (NopRecorder) EndSession()                                         {}

// MultiRecorder fans every operation out to each recorder in order.
type MultiRecorder []SessionRecorder

func (m MultiRecorder) StartTurn(number int) {
	for _, r := range m {
		r.StartTurn(number)
	}
}

func (m MultiRecorder) EndTurn() {
	for _, r := range m {
		r.EndTurn()
	}
}

func (m MultiRecorder) RecordToolCall(toolName, toolID string, input map[string]any) {
	for _, r := range m {
		r.RecordToolCall(toolName, toolID, input)
	}
}

func (m MultiRecorder) RecordToolResult(toolID string, content runtime.ResultContent, isError bool) {
	for _, r := range m {
		r.RecordToolResult(toolID, content, isError)
	}
}

func (m MultiRecorder) EndSession() {
	for _, r := range m {
		r.EndSession()
	}
}
