package extract

import (
	"testing"
)

func TestWorkflowResultsPhaseTable(t *testing.T) {
	response := `## 5-Phase Workflow Results

| Phase | Agent | Recommendation | Confidence |
|-------|-------|----------------|------------|
| 0 | News Analyst | Balanced sentiment | - |
| 1 | Market Intelligence | HOLD | 8/10 |

VERDICT: NO TRADE
`

	workflow := New().WorkflowResults([]string{response})

	if len(workflow.Phases) != 2 {
		t.Fatalf("phases = %+v", workflow.Phases)
	}
	if workflow.Phases[0].Phase != 0 || workflow.Phases[0].Agent != "News Analyst" {
		t.Fatalf("first phase = %+v", workflow.Phases[0])
	}
	if workflow.Phases[0].Confidence != "" {
		t.Fatalf("dash confidence not blanked: %q", workflow.Phases[0].Confidence)
	}
	if workflow.Phases[1].Confidence != "8/10" {
		t.Fatalf("second confidence = %q", workflow.Phases[1].Confidence)
	}
	if workflow.Verdict != "NO TRADE" {
		t.Fatalf("verdict = %q", workflow.Verdict)
	}
}

func TestWorkflowResultsConsensusTable(t *testing.T) {
	response := `## Subagent Consensus

| Subagent | Recommendation | Direction | Confidence | Rationale |
|----------|----------------|-----------|------------|-----------|
| market-intelligence | HOLD (Freeze) | HOLD | 10/10 | regime unclear |
| risk-manager | REJECT | - | 9/10 | exposure too high |
| market-intelligence | BUY | LONG | 2/10 | duplicate row |
| unrelated-thing | FOO | BAR | 1/10 | not a subagent |
`

	workflow := New().WorkflowResults([]string{response})

	if len(workflow.Phases) != 2 {
		t.Fatalf("phases = %+v", workflow.Phases)
	}
	first := workflow.Phases[0]
	if first.Agent != "market-intelligence" || first.Phase != 1 {
		t.Fatalf("first row = %+v", first)
	}
	if first.Recommendation != "HOLD (Freeze)" {
		t.Fatalf("recommendation = %q", first.Recommendation)
	}
	if first.Details != "Direction: HOLD | regime unclear" {
		t.Fatalf("details = %q", first.Details)
	}
	// The duplicate market-intelligence row must have been dropped.
	for _, phase := range workflow.Phases[1:] {
		if phase.Agent == "market-intelligence" {
			t.Fatalf("duplicate subagent row kept: %+v", workflow.Phases)
		}
	}
}

func TestWorkflowVerdictVeto(t *testing.T) {
	workflow := New().WorkflowResults([]string{
		"Risk check complete. **REJECT** - VETO INVOKED by risk-manager.",
	})
	if workflow.Verdict != "REJECT (VETO)" {
		t.Fatalf("verdict = %q", workflow.Verdict)
	}
}

func TestWorkflowVerdictFirstNonEmptyWins(t *testing.T) {
	workflow := New().WorkflowResults([]string{
		"VERDICT: NO TRADE\n",
		"**Action:** APPROVE\n",
	})
	if workflow.Verdict != "NO TRADE" {
		t.Fatalf("verdict = %q", workflow.Verdict)
	}
}

func TestWorkflowRationaleNumberedList(t *testing.T) {
	response := "**Rationale:**\n1. Funding rates negative\n2. No clear trend\n"
	workflow := New().WorkflowResults([]string{response})
	if len(workflow.Rationale) != 2 {
		t.Fatalf("rationale = %v", workflow.Rationale)
	}
	if workflow.Rationale[0] != "Funding rates negative" {
		t.Fatalf("first item = %q", workflow.Rationale[0])
	}
}

func TestWorkflowRationaleWhyNotTradeFallback(t *testing.T) {
	response := "### Why NOT Trade Today:\n1. Spreads too wide\n2. Macro event pending\n"
	workflow := New().WorkflowResults([]string{response})
	if len(workflow.Rationale) != 2 {
		t.Fatalf("rationale = %v", workflow.Rationale)
	}
}

func TestWorkflowResultsMalformedInput(t *testing.T) {
	workflow := New().WorkflowResults([]string{"| broken | table", "", "random prose"})
	if len(workflow.Phases) != 0 || workflow.Verdict != "" {
		t.Fatalf("zero-valued result expected, got %+v", workflow)
	}
}
