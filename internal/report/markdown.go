package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantrove/tradescope/internal/ledger"
)

const (
	topToolsLimit      = 10
	resultSummaryLimit = 100
)

// RenderMarkdown builds the full session report from recorded activity.
// Sections are joined by blank lines in a fixed order so reports diff
// cleanly across runs.
func RenderMarkdown(l *ledger.Ledger) string {
	sections := []string{
		"# Trading Agent Session Report",
		renderSessionOverview(l),
		renderTurnDetails(l),
		renderAgentSummary(l),
		renderToolStatistics(l),
	}
	return strings.Join(sections, "\n\n")
}

func renderSessionOverview(l *ledger.Ledger) string {
	stats := l.Stats()

	var b strings.Builder
	b.WriteString("## Session Overview\n")
	fmt.Fprintf(&b, "**Session ID**: `%s`\n", stats.SessionID)
	fmt.Fprintf(&b, "**Start Time**: %s\n", l.StartTime().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Duration**: %s\n", stats.Duration)
	fmt.Fprintf(&b, "**Total Turns**: %d\n", stats.TotalTurns)
	fmt.Fprintf(&b, "**Total Tool Calls**: %d\n", stats.TotalToolCalls)
	fmt.Fprintf(&b, "**Subagent Executions**: %d\n", stats.TotalSubagentExecutions)
	fmt.Fprintf(&b, "**Unique Agents**: %d", stats.UniqueAgents)
	return b.String()
}

func renderTurnDetails(l *ledger.Ledger) string {
	turns := l.Turns()
	if len(turns) == 0 {
		return "## Turn Details\n\n*No turns recorded*"
	}

	var b strings.Builder
	b.WriteString("## Turn Details")

	for _, turn := range turns {
		fmt.Fprintf(&b, "\n\n### Turn %d\n", turn.Number)
		fmt.Fprintf(&b, "**Time**: %s\n", turn.StartTime.UTC().Format("15:04:05"))

		agents := map[string]struct{}{"main": {}}
		for _, exec := range turn.Subagents {
			agents[exec.SubagentType] = struct{}{}
		}
		names := make([]string, 0, len(agents))
		for name := range agents {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "**Agents Executed**: %s", strings.Join(names, ", "))

		mainCalls := 0
		for _, call := range turn.ToolCalls {
			if call.Agent == "main" {
				mainCalls++
			}
		}
		if mainCalls > 0 {
			fmt.Fprintf(&b, "\n\n**Main Agent Tools** (%d calls):", mainCalls)
			for _, usage := range sortedToolCounts(turn.AgentToolCounts()["main"]) {
				fmt.Fprintf(&b, "\n- `%s`: %dx", usage.Name, usage.Count)
			}
		}

		if len(turn.Subagents) > 0 {
			fmt.Fprintf(&b, "\n\n**Subagent Executions** (%d):", len(turn.Subagents))
			for _, exec := range turn.Subagents {
				fmt.Fprintf(&b, "\n- **%s**", exec.SubagentType)
				if exec.TaskDescription != "" {
					fmt.Fprintf(&b, "\n  - Description: %s", exec.TaskDescription)
				}
				if exec.DurationMS > 0 {
					fmt.Fprintf(&b, "\n  - Duration: %.1fs", float64(exec.DurationMS)/1000)
				}
				if exec.TotalCostUSD > 0 {
					fmt.Fprintf(&b, "\n  - Cost: $%.4f", exec.TotalCostUSD)
				}
				if exec.ResultSummary != "" {
					fmt.Fprintf(&b, "\n  - Result: %s", truncateSummary(exec.ResultSummary))
				}
			}
		}
	}

	return b.String()
}

func renderAgentSummary(l *ledger.Ledger) string {
	var b strings.Builder
	b.WriteString("## Agent Summary")

	mainCounts := map[string]int{}
	mainTotal := 0
	subagentRuns := map[string]int{}
	for _, turn := range l.Turns() {
		for _, call := range turn.ToolCalls {
			if call.Agent == "main" {
				mainCounts[call.ToolName]++
				mainTotal++
			}
		}
		for _, exec := range turn.Subagents {
			subagentRuns[exec.SubagentType]++
		}
	}

	if mainTotal > 0 {
		b.WriteString("\n\n### Main Agent\n")
		fmt.Fprintf(&b, "**Total Tool Calls**: %d\n", mainTotal)
		b.WriteString("**Tools Used**:")
		for _, usage := range sortedToolCounts(mainCounts) {
			fmt.Fprintf(&b, "\n- `%s`: %dx", usage.Name, usage.Count)
		}
	}

	if len(subagentRuns) > 0 {
		b.WriteString("\n\n### Subagents")
		for _, usage := range sortedToolCounts(subagentRuns) {
			fmt.Fprintf(&b, "\n- **%s**: Executed %dx", usage.Name, usage.Count)
		}
	}

	return b.String()
}

func renderToolStatistics(l *ledger.Ledger) string {
	stats := l.Stats()
	if len(stats.ToolUsage) == 0 {
		return "## Tool Usage Statistics\n\n*No tools used*"
	}

	var b strings.Builder
	b.WriteString("## Tool Usage Statistics\n\n")
	fmt.Fprintf(&b, "**Total Tools Called**: %d\n\n", stats.TotalToolCalls)
	b.WriteString("**Most Used Tools**:")

	top := stats.ToolUsage
	if len(top) > topToolsLimit {
		top = top[:topToolsLimit]
	}
	for i, usage := range top {
		fmt.Fprintf(&b, "\n%d. `%s`: %dx", i+1, usage.Name, usage.Count)
	}

	return b.String()
}

// truncateSummary caps a subagent result for display, cutting on a rune
// boundary so multi-byte output stays valid UTF-8.
func truncateSummary(s string) string {
	if len(s) <= resultSummaryLimit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= resultSummaryLimit {
		return s
	}
	return string(runes[:resultSummaryLimit]) + "..."
}

func sortedToolCounts(counts map[string]int) []ledger.ToolUsage {
	usage := make([]ledger.ToolUsage, 0, len(counts))
	for name, count := range counts {
		usage = append(usage, ledger.ToolUsage{Name: name, Count: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Name < usage[j].Name
	})
	return usage
}
