package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DurationUnknown is reported while the session has not ended yet.
const DurationUnknown = "N/A"

// ToolUsage is one row of the session tool histogram.
type ToolUsage struct {
	Name  string
	Count int
}

// SessionStats are the session-wide aggregates.
type SessionStats struct {
	SessionID               string
	Duration                string
	TotalTurns              int
	TotalToolCalls          int
	TotalSubagentExecutions int
	UniqueAgents            int
	AgentsList              []string
	ToolUsage               []ToolUsage
	SubagentCostUSD         decimal.Decimal
}

// Stats computes the aggregate view of the session so far.
func (l *Ledger) Stats() SessionStats {
	stats := SessionStats{
		SessionID:       l.sessionID,
		Duration:        DurationUnknown,
		TotalTurns:      len(l.turns),
		SubagentCostUSD: decimal.Zero,
	}

	agents := map[string]struct{}{"main": {}}
	toolCounts := make(map[string]int)

	for _, turn := range l.turns {
		stats.TotalToolCalls += len(turn.ToolCalls)
		stats.TotalSubagentExecutions += len(turn.Subagents)
		for _, call := range turn.ToolCalls {
			toolCounts[call.ToolName]++
		}
		for _, exec := range turn.Subagents {
			agents[exec.SubagentType] = struct{}{}
			if exec.TotalCostUSD != 0 {
				stats.SubagentCostUSD = stats.SubagentCostUSD.Add(decimal.NewFromFloat(exec.TotalCostUSD))
			}
		}
	}

	stats.UniqueAgents = len(agents)
	stats.AgentsList = make([]string, 0, len(agents))
	for agent := range agents {
		stats.AgentsList = append(stats.AgentsList, agent)
	}
	sort.Strings(stats.AgentsList)

	stats.ToolUsage = sortedToolUsage(toolCounts)

	if !l.endTime.IsZero() {
		elapsed := l.endTime.Sub(l.startTime)
		minutes := int(elapsed.Minutes())
		seconds := int(elapsed.Seconds()) % 60
		stats.Duration = fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return stats
}

// TurnSummary is the per-turn aggregate view.
type TurnSummary struct {
	TurnNumber int
	StartTime  string
	EndTime    string
	TotalTools int
	AgentTools map[string]map[string]int
	Subagents  []SubagentSummary
}

// SubagentSummary is one subagent execution inside a turn summary.
type SubagentSummary struct {
	Type        string
	Description string
	DurationMS  int64
	CostUSD     float64
}

// Summary returns the aggregate view for a 1-based turn number, or nil when
// the number is out of range. Invalid input is absence, not an error.
func (l *Ledger) Summary(turnNumber int) *TurnSummary {
	if turnNumber <= 0 || turnNumber > len(l.turns) {
		return nil
	}
	turn := l.turns[turnNumber-1]

	summary := &TurnSummary{
		TurnNumber: turn.Number,
		StartTime:  turn.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		TotalTools: len(turn.ToolCalls),
		AgentTools: turn.AgentToolCounts(),
	}
	if !turn.EndTime.IsZero() {
		summary.EndTime = turn.EndTime.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, exec := range turn.Subagents {
		summary.Subagents = append(summary.Subagents, SubagentSummary{
			Type:        exec.SubagentType,
			Description: exec.TaskDescription,
			DurationMS:  exec.DurationMS,
			CostUSD:     exec.TotalCostUSD,
		})
	}
	return summary
}

// sortedToolUsage orders a histogram by count descending, name ascending on
// ties so the ranking is deterministic.
func sortedToolUsage(counts map[string]int) []ToolUsage {
	usage := make([]ToolUsage, 0, len(counts))
	for name, count := range counts {
		usage = append(usage, ToolUsage{Name: name, Count: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Name < usage[j].Name
	})
	return usage
}
