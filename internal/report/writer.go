package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/models"
)

// SaveMarkdown renders the ledger's session report and writes it to
// outputDir as session_<id>.md. Overwriting a previous report for the same
// session is fine, last write wins. Returns the written path.
func SaveMarkdown(l *ledger.Ledger, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("session_%s.md", l.SessionID()))
	if err := os.WriteFile(path, []byte(RenderMarkdown(l)), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// SaveJSON writes the structured execution report next to the markdown one
// as session_<id>.json.
func SaveJSON(rep models.AgentExecutionReport, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("session_%s.json", rep.Session.SessionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
