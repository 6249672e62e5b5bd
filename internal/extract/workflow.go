package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quantrove/tradescope/models"
)

var (
	// | **0** | News Analyst | Balanced sentiment | - |
	phaseRowRe = regexp.MustCompile(`\|\s*\*?\*?(\d+)\*?\*?\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|`)

	// | **market-intelligence** | HOLD (Freeze) | HOLD | 10/10 | rationale |
	consensusRowRe = regexp.MustCompile(`\|\s*\*?\*?([\w-]+)\*?\*?\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]+)\s*\|\s*([^|]*)\s*\|`)

	workflowVerdictRe  = regexp.MustCompile(`VERDICT:\s*([A-Z][A-Z\s]+?)(?:\s*[✅❌]|\n|$)`)
	actionVerdictRe    = regexp.MustCompile(`(?i)\*\*Action:\*\*\s*(APPROVE|REJECT)`)
	decisionVerdictRe  = regexp.MustCompile(`Decision:\s*([A-Z][A-Z\s]+?)(?:\n|$)`)
	consensusResultRe  = regexp.MustCompile(`(?i)Consensus\s+Result:\s*([^\n]+)`)
	rationaleBlockRe   = regexp.MustCompile(`\*\*Rationale:\*\*\s*\n((?:\d+\..+\n?)+)`)
	whyNotTradeRe      = regexp.MustCompile(`(?i)Why\s+NOT\s+Trade\s+Today[^\n]*\n((?:\d+\..+\n?)+)`)
	numberedItemRe     = regexp.MustCompile(`\d+\.\s*(.+)`)
)

var workflowTriggers = []string{
	"5-Phase Workflow Results",
	"Workflow Results",
	"Consensus Matrix",
	"Subagent Consensus",
	"Consensus Analysis",
}

// WorkflowResults recovers the phased workflow outcome: phase and consensus
// table rows, the final verdict, and the rationale list. Each subagent is
// attributed at most once per session: the first row wins and later rows
// for the same agent are dropped. The verdict is taken from the first
// non-empty match across all responses and patterns, in pattern order.
func (e *Extractor) WorkflowResults(responses []string) models.WorkflowResults {
	var workflow models.WorkflowResults
	seenAgents := make(map[string]struct{})

	for _, response := range responses {
		if hasWorkflowTrigger(response) {
			e.collectPhaseRows(response, &workflow, seenAgents)
			e.collectConsensusRows(response, &workflow, seenAgents)
		}

		if workflow.Verdict == "" {
			workflow.Verdict = extractVerdict(response)
		}

		if match := rationaleBlockRe.FindStringSubmatch(response); match != nil {
			workflow.Rationale = numberedItems(match[1])
		}
		if len(workflow.Rationale) == 0 {
			if match := whyNotTradeRe.FindStringSubmatch(response); match != nil {
				workflow.Rationale = numberedItems(match[1])
			}
		}
	}

	return workflow
}

func hasWorkflowTrigger(response string) bool {
	for _, trigger := range workflowTriggers {
		if strings.Contains(response, trigger) {
			return true
		}
	}
	return false
}

// collectPhaseRows parses the phase-indexed legacy table shape.
func (e *Extractor) collectPhaseRows(response string, workflow *models.WorkflowResults, seen map[string]struct{}) {
	for _, match := range phaseRowRe.FindAllStringSubmatch(response, -1) {
		phase, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		agent := strings.TrimSpace(match[2])
		recommendation := strings.TrimSpace(match[3])
		confidence := strings.TrimSpace(match[4])

		if isTableNoise(agent) || strings.Contains(strings.ToLower(agent), "phase") {
			continue
		}

		key := strings.ToLower(agent)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if confidence == "-" {
			confidence = ""
		}
		workflow.Phases = append(workflow.Phases, models.WorkflowPhaseResult{
			Phase:          phase,
			Agent:          agent,
			Recommendation: recommendation,
			Confidence:     confidence,
		})
	}
}

// collectConsensusRows parses the five-column consensus matrix shape. Rows
// are accepted only for known subagent names so unrelated tables elsewhere
// in the text cannot leak in.
func (e *Extractor) collectConsensusRows(response string, workflow *models.WorkflowResults, seen map[string]struct{}) {
	for _, match := range consensusRowRe.FindAllStringSubmatch(response, -1) {
		subagent := strings.ToLower(strings.TrimSpace(match[1]))
		recommendation := strings.TrimSpace(match[2])
		direction := strings.TrimSpace(match[3])
		confidence := strings.TrimSpace(match[4])
		rationale := strings.TrimSpace(match[5])

		if isTableNoise(subagent) {
			continue
		}
		phase, known := e.subagentPhases[subagent]
		if !known {
			continue
		}
		if _, ok := seen[subagent]; ok {
			continue
		}
		seen[subagent] = struct{}{}

		if confidence == "-" {
			confidence = ""
		}
		details := "Direction: " + direction
		if rationale != "" {
			details += " | " + rationale
		}
		workflow.Phases = append(workflow.Phases, models.WorkflowPhaseResult{
			Phase:          phase,
			Agent:          subagent,
			Recommendation: recommendation,
			Confidence:     confidence,
			Details:        details,
		})
	}
}

// extractVerdict tries the verdict patterns in order of specificity and
// returns the first match, or "".
func extractVerdict(response string) string {
	if match := workflowVerdictRe.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}
	if match := actionVerdictRe.FindStringSubmatch(response); match != nil {
		return strings.ToUpper(strings.TrimSpace(match[1]))
	}
	if match := decisionVerdictRe.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}
	if strings.Contains(response, "**REJECT**") || strings.Contains(response, "VETO INVOKED") {
		return "REJECT (VETO)"
	}
	if match := consensusResultRe.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

func isTableNoise(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "agent", "subagent", "---", "------":
		return true
	}
	return strings.Contains(cell, "---") || strings.Contains(strings.ToLower(cell), "subagent")
}

func numberedItems(block string) []string {
	var items []string
	for _, match := range numberedItemRe.FindAllStringSubmatch(block, -1) {
		items = append(items, strings.TrimSpace(match[1]))
	}
	return items
}
