// Package extract recovers structured trading decisions from the free-text
// responses the agent produced. The upstream runtime is not contractually
// obligated to emit machine-readable output, so extraction is an ordered
// chain of independent recognizers, most-structured first. Every recognizer
// is pure (text in, partial result out) and never errors: a field that
// cannot be recovered stays at its zero value.
package extract

import (
	"sort"
	"strings"
	"time"

	"github.com/quantrove/tradescope/internal/ledger"
)

// Extractor scans accumulated agent responses with a configured tool policy.
type Extractor struct {
	tradingTools   []string
	subagentPhases map[string]int
	now            func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTradingTools overrides the trading-tool allow-list. It must stay in
// sync with the ledger's filter list.
func WithTradingTools(tools []string) Option {
	return func(e *Extractor) { e.tradingTools = tools }
}

// WithSubagentPhases overrides the subagent-name to workflow-phase map.
func WithSubagentPhases(phases map[string]int) Option {
	return func(e *Extractor) { e.subagentPhases = phases }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New builds an extractor with the default policy.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		tradingTools:   ledger.DefaultTradingTools(),
		subagentPhases: DefaultSubagentPhases(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultSubagentPhases maps known subagent names to their workflow phase.
// Rows in consensus tables are accepted only for these names, to avoid
// matching unrelated tables elsewhere in the text.
func DefaultSubagentPhases() map[string]int {
	return map[string]int{
		"news-analyst":        0,
		"market-intelligence": 1,
		"technical-analyst":   2,
		"risk-manager":        2,
		"data-analyst":        2,
		"futures-analyst":     2,
		"btc-researcher":      2,
		"eth-researcher":      2,
		"altcoin-researcher":  2,
		"critic":              3,
		"trader":              4,
		"reporter":            5,
	}
}

// SubagentsUsed scans responses for mentions of known subagent names and
// returns the distinct set, sorted.
func (e *Extractor) SubagentsUsed(responses []string) []string {
	used := make(map[string]struct{})
	for _, response := range responses {
		lower := strings.ToLower(response)
		for name := range e.subagentPhases {
			if strings.Contains(lower, name) {
				used[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
