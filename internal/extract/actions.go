package extract

import (
	"strings"
	"time"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/models"
)

// TradingActions finds mentions of allow-listed trading tools inside the
// response texts. Each mention yields one action stamped at extraction time.
// This is the fallback path for when the ledger saw no trading tool calls;
// the compiled report prefers the ledger's recorded timestamps.
func (e *Extractor) TradingActions(responses []string) []models.TradingAction {
	var actions []models.TradingAction
	now := e.now().UTC().Format(time.RFC3339)

	for _, response := range responses {
		for _, tool := range e.tradingTools {
			if strings.Contains(response, tool) {
				actions = append(actions, models.TradingAction{
					ActionType: ledger.ActionType(tool),
					Timestamp:  now,
				})
			}
		}
	}
	return actions
}
