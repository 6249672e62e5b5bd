package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/quantrove/tradescope/models"
)

var (
	jsonBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{[^`]+\\})\\s*```")

	totalCallsRe = regexp.MustCompile(`(?i)Total\s+(?:MCP\s+)?Tool\s+Calls[:\s]+(\d+)`)

	requesterSectionRe = regexp.MustCompile(`(?i)TOOL\s+CALLS\s+BY\s+REQUESTER[:\s]*\n((?:\s*-?\s*[\w-]+[:\s]+\d+\s+calls?[^\n]*\n?)+)`)
	requesterLineRe    = regexp.MustCompile(`^\s*-?\s*([\w-]+)[:\s]+(\d+)\s+calls?`)

	serverSectionRe = regexp.MustCompile(`(?i)TOOL\s+CALLS\s+BY\s+(?:MCP\s+)?SERVER[:\s]*\n((?:\s*-?\s*[\w\s-]+[:\s]+\d+\s+calls?[^\n]*\n?)+)`)
	serverLineRe    = regexp.MustCompile(`^\s*-?\s*([\w\s-]+?)\s*(?:MCP)?[:\s]+(\d+)\s+calls?`)

	topToolsSectionRe = regexp.MustCompile(`(?i)TOP\s+TOOLS\s+(?:USED)?[:\s]*\n((?:\s*-?\s*[\w_-]+[:\s]+\d+\s+calls?[^\n]*\n?)+)`)
	topToolLineRe     = regexp.MustCompile(`^\s*-?\s*([\w_-]+)[:\s]+(\d+)\s+calls?`)

	csvPathRe = regexp.MustCompile(`([\w/\-.]+session_report_[\w\-.]+\.csv)`)
)

// Markers that identify an informally-labelled text report worth scanning.
var reporterTriggers = []string{
	"TOOL USAGE REPORT",
	"Tool Usage",
	"session_report_",
	"SESSION SUMMARY",
	"MCP Tool Calls",
	"TOOL CALLS BY REQUESTER",
}

type reporterJSON struct {
	CSVPath          string                  `json:"csv_path"`
	TotalToolCalls   int                     `json:"total_tool_calls"`
	UniqueRequesters int                     `json:"unique_requesters"`
	UniqueTools      int                     `json:"unique_tools"`
	CallsByRequester map[string]int          `json:"calls_by_requester"`
	CallsByServer    map[string]int          `json:"calls_by_server"`
	TopTools         []models.ToolCallsEntry `json:"top_tools"`
}

// ParseReporterOutput recovers the MCP tool-usage report from the reporter
// subagent's responses. A fenced JSON block is the preferred path and
// short-circuits on the first successful parse; otherwise a family of
// regexes scans the legacy text format. Partial extraction is expected.
func (e *Extractor) ParseReporterOutput(responses []string) models.MCPToolsReport {
	report := models.MCPToolsReport{
		CallsByRequester: make(map[string]int),
		CallsByServer:    make(map[string]int),
	}

	for _, response := range responses {
		if match := jsonBlockRe.FindStringSubmatch(response); match != nil {
			var data reporterJSON
			if err := json.Unmarshal([]byte(match[1]), &data); err == nil {
				report.CSVPath = data.CSVPath
				report.TotalToolCalls = data.TotalToolCalls
				report.UniqueRequesters = data.UniqueRequesters
				report.UniqueTools = data.UniqueTools
				if data.CallsByRequester != nil {
					report.CallsByRequester = data.CallsByRequester
				}
				if data.CallsByServer != nil {
					report.CallsByServer = data.CallsByServer
				}
				report.TopTools = data.TopTools
				return report
			}
			// Unparseable block: fall through to the text recognizer.
		}

		if !hasReporterTrigger(response) {
			continue
		}

		if match := totalCallsRe.FindStringSubmatch(response); match != nil {
			report.TotalToolCalls = atoi(match[1])
		}

		if match := requesterSectionRe.FindStringSubmatch(response); match != nil {
			for _, line := range strings.Split(strings.TrimSpace(match[1]), "\n") {
				if m := requesterLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
					report.CallsByRequester[m[1]] = atoi(m[2])
				}
			}
		}
		if len(report.CallsByRequester) > 0 {
			report.UniqueRequesters = len(report.CallsByRequester)
		}

		if match := serverSectionRe.FindStringSubmatch(response); match != nil {
			for _, line := range strings.Split(strings.TrimSpace(match[1]), "\n") {
				if m := serverLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
					report.CallsByServer[normalizeServerName(m[1])] = atoi(m[2])
				}
			}
		}

		if match := topToolsSectionRe.FindStringSubmatch(response); match != nil {
			for _, line := range strings.Split(strings.TrimSpace(match[1]), "\n") {
				if m := topToolLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
					report.TopTools = append(report.TopTools, models.ToolCallsEntry{
						Name:  m[1],
						Calls: atoi(m[2]),
					})
				}
			}
		}
		if len(report.TopTools) > 0 {
			distinct := make(map[string]struct{}, len(report.TopTools))
			for _, tool := range report.TopTools {
				distinct[tool.Name] = struct{}{}
			}
			report.UniqueTools = len(distinct)
		}

		if match := csvPathRe.FindStringSubmatch(response); match != nil {
			report.CSVPath = match[1]
		}
	}

	return report
}

func hasReporterTrigger(response string) bool {
	for _, trigger := range reporterTriggers {
		if strings.Contains(response, trigger) {
			return true
		}
	}
	return false
}

// normalizeServerName folds the display variants of the known MCP server
// names ("Binance MCP", "polygon mcp", ...) onto canonical keys.
func normalizeServerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " mcp", "")
	name = strings.ReplaceAll(name, "mcp", "")
	name = strings.TrimSpace(name)
	for _, known := range []string{"binance", "polygon", "perplexity"} {
		if strings.Contains(name, known) {
			return known
		}
	}
	return name
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
