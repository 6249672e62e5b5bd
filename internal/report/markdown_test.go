package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/runtime"
)

func testClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func buildLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New("md-test", ledger.WithClock(testClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))))

	l.StartTurn(1)
	l.RecordToolCall("get_price", "t1", nil)
	l.RecordToolCall("get_price", "t2", nil)
	l.RecordToolCall("Task", "task-1", map[string]any{
		"subagent_type": "risk-manager",
		"description":   "assess exposure",
	})
	l.RecordToolResult("task-1", runtime.StructuredContent(map[string]any{
		"duration_ms":    float64(1500),
		"total_cost_usd": 0.05,
		"result":         "exposure acceptable",
	}), false)
	l.EndTurn()

	l.StartTurn(2)
	l.RecordToolCall("spot_market_order", "t3", map[string]any{"symbol": "BTCUSDT"})
	l.EndTurn()
	l.EndSession()
	return l
}

func TestRenderMarkdownSections(t *testing.T) {
	md := RenderMarkdown(buildLedger(t))

	wantOrder := []string{
		"# Trading Agent Session Report",
		"## Session Overview",
		"## Turn Details",
		"### Turn 1",
		"### Turn 2",
		"## Agent Summary",
		"### Main Agent",
		"### Subagents",
		"## Tool Usage Statistics",
	}
	last := -1
	for _, section := range wantOrder {
		idx := strings.Index(md, section)
		if idx < 0 {
			t.Fatalf("section %q missing:\n%s", section, md)
		}
		if idx < last {
			t.Fatalf("section %q out of order", section)
		}
		last = idx
	}
}

func TestRenderMarkdownContent(t *testing.T) {
	md := RenderMarkdown(buildLedger(t))

	for _, want := range []string{
		"**Session ID**: `md-test`",
		"**Total Turns**: 2",
		"**Total Tool Calls**: 4",
		"**Subagent Executions**: 1",
		"**Unique Agents**: 2",
		"**Agents Executed**: main, risk-manager",
		"- `get_price`: 2x",
		"- **risk-manager**",
		"  - Description: assess exposure",
		"  - Duration: 1.5s",
		"  - Cost: $0.0500",
		"  - Result: exposure acceptable",
		"- **risk-manager**: Executed 1x",
		"**Most Used Tools**:",
		"1. `get_price`: 2x",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("rendered report missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownResultSummaryRuneBoundary(t *testing.T) {
	l := ledger.New("md-runes")
	l.RecordToolCall("Task", "task-1", map[string]any{"subagent_type": "reporter"})
	l.RecordToolResult("task-1", runtime.TextContent(strings.Repeat("é", 180)), false)
	l.EndSession()

	md := RenderMarkdown(l)
	if !utf8.ValidString(md) {
		t.Fatal("report is not valid utf-8")
	}
	if !strings.Contains(md, strings.Repeat("é", 100)+"...") {
		t.Fatal("long summary not truncated at the rune limit")
	}
}

func TestRenderMarkdownEmptyLedger(t *testing.T) {
	l := ledger.New("empty")
	md := RenderMarkdown(l)

	if !strings.Contains(md, "*No turns recorded*") {
		t.Fatalf("empty turns placeholder missing:\n%s", md)
	}
	if !strings.Contains(md, "*No tools used*") {
		t.Fatalf("empty tools placeholder missing:\n%s", md)
	}
}

func TestRenderMarkdownIsPure(t *testing.T) {
	l := buildLedger(t)
	before := l.Stats()
	_ = RenderMarkdown(l)
	after := l.Stats()
	if before.TotalToolCalls != after.TotalToolCalls || before.TotalTurns != after.TotalTurns {
		t.Fatal("rendering mutated the ledger")
	}
}

func TestSaveMarkdown(t *testing.T) {
	dir := t.TempDir()
	l := buildLedger(t)

	path, err := SaveMarkdown(l, dir)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "session_md-test.md" {
		t.Fatalf("artifact name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Trading Agent Session Report") {
		t.Fatalf("unexpected content: %.60s", data)
	}

	// Last write wins for the same session.
	if _, err := SaveMarkdown(l, dir); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}
