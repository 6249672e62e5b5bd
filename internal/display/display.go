// Package display renders the live event stream for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quantrove/tradescope/internal/runtime"
)

const (
	resultMaxChars = 500
	resultMaxLines = 20
)

var (
	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	toolCallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	toolResultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)
)

// Printer writes a human-readable rendering of each event. It is display
// only and never touches session state.
type Printer struct {
	out io.Writer
}

// NewPrinter renders to stdout.
func NewPrinter() *Printer {
	return &Printer{out: os.Stdout}
}

// NewPrinterTo renders to w. Tests use this.
func NewPrinterTo(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Print renders one event.
func (p *Printer) Print(ev runtime.Event) {
	switch e := ev.(type) {
	case runtime.TextEvent:
		fmt.Fprintln(p.out, textStyle.Render(e.Text))
	case runtime.ThinkingEvent:
		fmt.Fprintln(p.out, thinkingStyle.Render("💭 "+firstLine(e.Thinking)))
	case runtime.ToolUseEvent:
		fmt.Fprintln(p.out, toolCallStyle.Render(fmt.Sprintf("🔧 %s (%s)", e.Name, e.ID)))
	case runtime.ToolResultEvent:
		p.printToolResult(e)
	case runtime.SystemEvent:
		fmt.Fprintln(p.out, systemStyle.Render(fmt.Sprintf("⚙️  system: %s", e.Subtype)))
	case runtime.ResultEvent:
		p.printResult(e)
	}
}

func (p *Printer) printToolResult(e runtime.ToolResultEvent) {
	body := ""
	switch e.Content.Kind {
	case runtime.ContentText:
		body = truncateDisplay(e.Content.Text)
	case runtime.ContentStructured:
		body = truncateDisplay(e.Content.StringField("result"))
	}
	style := toolResultStyle
	marker := "✅"
	if e.IsError {
		style = errorStyle
		marker = "❌"
	}
	if body == "" {
		fmt.Fprintln(p.out, style.Render(fmt.Sprintf("%s result (%s)", marker, e.ToolUseID)))
		return
	}
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf("%s result (%s): %s", marker, e.ToolUseID, body)))
}

func (p *Printer) printResult(e runtime.ResultEvent) {
	status := "✅ completed"
	if e.IsError {
		status = "❌ completed with errors"
	}
	fmt.Fprintln(p.out, summaryStyle.Render(fmt.Sprintf(
		"%s | turns: %d | %.1fs | $%.4f",
		status, e.NumTurns, float64(e.DurationMS)/1000, e.TotalCostUSD,
	)))
}

// PrintSessionDone renders the final exit banner.
func (p *Printer) PrintSessionDone(exitCode int, sessionID string, durationSeconds float64, trades, subagents int) {
	var line string
	switch exitCode {
	case 0:
		line = "✅ Trading session completed successfully"
	case 1:
		line = "❌ Trading session completed with errors"
	default:
		line = "ℹ️  Trading session completed - no action taken"
	}
	fmt.Fprintln(p.out, summaryStyle.Render(line))
	fmt.Fprintf(p.out, "📊 Session ID: %s\n", sessionID)
	fmt.Fprintf(p.out, "⏱️  Duration: %.2fs\n", durationSeconds)
	fmt.Fprintf(p.out, "🔧 Trades executed: %d\n", trades)
	fmt.Fprintf(p.out, "🤖 Subagents used: %d\n", subagents)
}

// truncateDisplay caps long tool output for the terminal, by bytes and by
// line count.
func truncateDisplay(s string) string {
	if len(s) > resultMaxChars {
		s = s[:resultMaxChars] + "..."
	}
	lines := strings.Split(s, "\n")
	if len(lines) > resultMaxLines {
		s = strings.Join(lines[:resultMaxLines], "\n") + "\n..."
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
