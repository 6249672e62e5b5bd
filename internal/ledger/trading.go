package ledger

import (
	"strings"
	"time"
)

// DefaultDelegateTool is the tool name the runtime uses to delegate work to
// a named specialist subagent.
const DefaultDelegateTool = "Task"

// exchangePrefix namespaces the exchange-affecting tools inside the trading
// MCP server. It is stripped from reported action types.
const exchangePrefix = "binance_"

// DefaultTradingTools returns the allow-list of exchange-affecting tool
// names. Membership directly determines the trading-action report; the
// extractor shares this list.
func DefaultTradingTools() []string {
	return []string{
		"binance_spot_market_order",
		"binance_spot_limit_order",
		"binance_spot_oco_order",
		"binance_cancel_order",
		"binance_trade_futures_market",
		"binance_futures_limit_order",
		"binance_cancel_futures_order",
	}
}

// TradingAction is one exchange-affecting tool call as recorded live, with
// the timestamp the ledger observed rather than extraction time.
type TradingAction struct {
	Type       string
	Timestamp  time.Time
	ToolID     string
	TurnNumber int
	Symbol     string
	Side       string
	Details    map[string]any
}

// TradingActions filters all recorded tool calls by the allow-list,
// preserving turn order and call order.
func (l *Ledger) TradingActions() []TradingAction {
	var actions []TradingAction
	for _, turn := range l.turns {
		for _, call := range turn.ToolCalls {
			typ, ok := matchTradingTool(call.ToolName, l.tradingTools)
			if !ok {
				continue
			}
			symbol, _ := call.Input["symbol"].(string)
			side, _ := call.Input["side"].(string)
			actions = append(actions, TradingAction{
				Type:       typ,
				Timestamp:  call.Timestamp,
				ToolID:     call.ToolID,
				TurnNumber: turn.Number,
				Symbol:     symbol,
				Side:       side,
				Details:    call.Input,
			})
		}
	}
	return actions
}

// ActionType canonicalizes a trading tool name into the reported action
// type: namespace and exchange prefixes are stripped.
func ActionType(toolName string) string {
	return strings.TrimPrefix(stripToolNamespace(toolName), exchangePrefix)
}

// matchTradingTool reports whether name denotes an allow-listed trading
// tool and returns the action type with namespace prefixes stripped. Names
// arrive both fully qualified ("mcp__binance__binance_spot_market_order")
// and bare ("spot_market_order").
func matchTradingTool(name string, allow []string) (string, bool) {
	bare := stripToolNamespace(name)
	for _, frag := range allow {
		typ := strings.TrimPrefix(frag, exchangePrefix)
		if strings.Contains(bare, frag) || bare == typ {
			return typ, true
		}
	}
	return "", false
}

// stripToolNamespace removes an "mcp__<server>__" style prefix.
func stripToolNamespace(name string) string {
	if !strings.HasPrefix(name, "mcp__") {
		return name
	}
	rest := name[len("mcp__"):]
	if i := strings.Index(rest, "__"); i >= 0 {
		return rest[i+2:]
	}
	return rest
}
