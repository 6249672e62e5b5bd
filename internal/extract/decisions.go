package extract

import (
	"regexp"
	"strings"
)

const maxKeyDecisions = 5

var (
	boldVerdictRe  = regexp.MustCompile(`\*\*VERDICT:\s*(.+?)\*\*`)
	plainVerdictRe = regexp.MustCompile(`VERDICT:\s*([A-Z][A-Z\s]+?)(?:\s*[✅❌]|\n|$)`)
	statusRe       = regexp.MustCompile(`(?i)\*\*(?:VERDICT|Action|Status)\*\*:\s*(APPROVE WITH CONDITIONS|APPROVE|REJECT)`)
	stronglyRe     = regexp.MustCompile(`(?i)STRONGLY\s+(AGREE|DISAGREE)(?:[^\d]*(\d+%)[^c]*confidence)?`)
	verdictEmojiRe = regexp.MustCompile(`\s*[✅❌🎯⚡]\s*`)
)

// KeyDecisions scans responses for short decision labels, most specific
// pattern first: a bold VERDICT line, a plain VERDICT line, an
// APPROVE/REJECT status marker, and the critic's STRONGLY AGREE/DISAGREE
// form. Distinct decisions are kept once each, in document order, capped at
// five.
func (e *Extractor) KeyDecisions(responses []string) []string {
	var decisions []string
	seen := make(map[string]struct{})

	add := func(decision string) {
		decision = strings.TrimSpace(decision)
		if decision == "" {
			return
		}
		if _, ok := seen[decision]; ok {
			return
		}
		seen[decision] = struct{}{}
		decisions = append(decisions, decision)
	}

	for _, response := range responses {
		if match := boldVerdictRe.FindStringSubmatch(response); match != nil {
			add(verdictEmojiRe.ReplaceAllString(match[1], ""))
		}

		if match := plainVerdictRe.FindStringSubmatch(response); match != nil {
			add(match[1])
		}

		if match := statusRe.FindStringSubmatch(response); match != nil {
			add(strings.ToUpper(match[1]))
		}

		if match := stronglyRe.FindStringSubmatch(response); match != nil {
			decision := "STRONGLY " + strings.ToUpper(match[1])
			if match[2] != "" {
				decision += " (" + match[2] + " confidence)"
			}
			add(decision)
		}
	}

	if len(decisions) > maxKeyDecisions {
		decisions = decisions[:maxKeyDecisions]
	}
	return decisions
}
