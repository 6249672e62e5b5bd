package models

// MCPToolsReport aggregates MCP tool usage as recovered from the reporter
// subagent's output. All fields default to zero values; a zero report means
// nothing could be extracted, which is valid output.
type MCPToolsReport struct {
	CSVPath          string           `json:"csv_path,omitempty"`
	TotalToolCalls   int              `json:"total_tool_calls"`
	UniqueRequesters int              `json:"unique_requesters"`
	UniqueTools      int              `json:"unique_tools"`
	CallsByRequester map[string]int   `json:"calls_by_requester,omitempty"`
	CallsByServer    map[string]int   `json:"calls_by_server,omitempty"`
	TopTools         []ToolCallsEntry `json:"top_tools,omitempty"`
}

// ToolCallsEntry is one row of a top-tools ranking.
type ToolCallsEntry struct {
	Name  string `json:"name"`
	Calls int    `json:"calls"`
}

// TradingAction records one exchange-affecting operation.
type TradingAction struct {
	ActionType string         `json:"action_type"`
	Timestamp  string         `json:"timestamp"`
	Symbol     string         `json:"symbol,omitempty"`
	Side       string         `json:"side,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// WorkflowPhaseResult is one row of the workflow phase or consensus table.
type WorkflowPhaseResult struct {
	Phase          int    `json:"phase"`
	Agent          string `json:"agent"`
	Recommendation string `json:"recommendation"`
	Confidence     string `json:"confidence,omitempty"`
	Details        string `json:"details,omitempty"`
}

// WorkflowResults captures the phased workflow outcome recovered from the
// agent's free-text responses.
type WorkflowResults struct {
	Phases    []WorkflowPhaseResult `json:"phases"`
	Verdict   string                `json:"verdict,omitempty"`
	Rationale []string              `json:"rationale,omitempty"`
}

// TradingSessionResume is the concise session summary.
type TradingSessionResume struct {
	SessionID        string   `json:"session_id"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	DurationSeconds  float64  `json:"duration_seconds"`
	TradesExecuted   int      `json:"trades_executed"`
	SubagentsUsed    []string `json:"subagents_used"`
	KeyDecisions     []string `json:"key_decisions"`
	MarketConditions string   `json:"market_conditions,omitempty"`
}

// Session status values for AgentExecutionReport.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNoAction = "no_action"
)

// AgentExecutionReport is the complete structured output of one session.
type AgentExecutionReport struct {
	ExitCode       int                  `json:"exit_code"`
	Status         string               `json:"status"`
	Session        TradingSessionResume `json:"session"`
	MCPReport      MCPToolsReport       `json:"mcp_report"`
	WorkflowResult WorkflowResults      `json:"workflow_results"`
	TradingActions []TradingAction      `json:"trading_actions"`
	TradingNotes   string               `json:"trading_notes,omitempty"`
}

// StatusForExitCode maps a process exit code to a report status.
func StatusForExitCode(code int) string {
	switch code {
	case 0:
		return StatusSuccess
	case 1:
		return StatusError
	default:
		return StatusNoAction
	}
}
