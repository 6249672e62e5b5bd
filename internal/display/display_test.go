package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/quantrove/tradescope/internal/runtime"
)

func TestPrintToolResultMarkers(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	p.Print(runtime.ToolResultEvent{ToolUseID: "t1", Content: runtime.TextContent("filled")})
	p.Print(runtime.ToolResultEvent{ToolUseID: "t2", IsError: true, Content: runtime.TextContent("rejected")})

	out := buf.String()
	if !strings.Contains(out, "✅ result (t1): filled") {
		t.Fatalf("success line missing: %q", out)
	}
	if !strings.Contains(out, "❌ result (t2): rejected") {
		t.Fatalf("error line missing: %q", out)
	}
}

func TestPrintToolResultEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	p.Print(runtime.ToolResultEvent{ToolUseID: "t1", Content: runtime.AbsentContent()})

	if got := buf.String(); !strings.Contains(got, "✅ result (t1)") || strings.Contains(got, "):") {
		t.Fatalf("output = %q", got)
	}
}

func TestPrintResultSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	p.Print(runtime.ResultEvent{NumTurns: 3, DurationMS: 4500, TotalCostUSD: 0.1234})

	out := buf.String()
	if !strings.Contains(out, "turns: 3") || !strings.Contains(out, "4.5s") || !strings.Contains(out, "$0.1234") {
		t.Fatalf("summary line = %q", out)
	}
}

func TestPrintSessionDoneNoAction(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterTo(&buf)

	p.PrintSessionDone(2, "abc123", 12.5, 0, 4)

	out := buf.String()
	if !strings.Contains(out, "no action taken") {
		t.Fatalf("banner = %q", out)
	}
	if !strings.Contains(out, "Session ID: abc123") || !strings.Contains(out, "Subagents used: 4") {
		t.Fatalf("details = %q", out)
	}
}

func TestTruncateDisplay(t *testing.T) {
	long := strings.Repeat("x", 600)
	if got := truncateDisplay(long); len(got) != 503 || !strings.HasSuffix(got, "...") {
		t.Fatalf("char truncation: len=%d", len(got))
	}

	many := strings.Repeat("line\n", 30)
	got := truncateDisplay(many)
	if !strings.HasSuffix(got, "\n...") {
		t.Fatalf("line truncation: %q", got)
	}
	if n := strings.Count(got, "\n"); n != 20 {
		t.Fatalf("lines kept = %d", n)
	}
}
