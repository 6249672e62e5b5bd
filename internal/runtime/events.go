// Package runtime defines the boundary with the external agent runtime: the
// typed events it emits, the tagged content of tool results, and a decoder
// for the JSON-lines event stream.
package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is one typed message from the agent runtime. The analytics core only
// reacts to ToolUseEvent, ToolResultEvent and the text of TextEvent; the
// remaining kinds are carried for display.
type Event interface {
	isEvent()
}

// TextEvent is an assistant text block.
type TextEvent struct {
	Text string `json:"text"`
}

// ThinkingEvent is an assistant thinking block. Display only.
type ThinkingEvent struct {
	Thinking string `json:"thinking"`
}

// ToolUseEvent is one invocation of a named capability.
type ToolUseEvent struct {
	Name  string         `json:"name"`
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// ToolResultEvent carries the outcome of a tool invocation, correlated to
// its ToolUseEvent by ToolUseID.
type ToolResultEvent struct {
	ToolUseID string        `json:"tool_use_id"`
	IsError   bool          `json:"is_error"`
	Content   ResultContent `json:"content"`
}

// SystemEvent is a runtime-level notification, e.g. MCP server status.
type SystemEvent struct {
	Subtype string         `json:"subtype"`
	Data    map[string]any `json:"data"`
}

// ResultEvent is the terminal event of one turn.
type ResultEvent struct {
	DurationMS    int64          `json:"duration_ms"`
	DurationAPIMS int64          `json:"duration_api_ms"`
	NumTurns      int            `json:"num_turns"`
	IsError       bool           `json:"is_error"`
	SessionID     string         `json:"session_id"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	Usage         map[string]any `json:"usage"`
	Result        string         `json:"result"`
}

func (TextEvent) isEvent()       {}
func (ThinkingEvent) isEvent()   {}
func (ToolUseEvent) isEvent()    {}
func (ToolResultEvent) isEvent() {}
func (SystemEvent) isEvent()     {}
func (ResultEvent) isEvent()     {}

// Wire event names.
const (
	EventText       = "assistant_text"
	EventThinking   = "assistant_thinking"
	EventToolUse    = "tool_use"
	EventToolResult = "tool_result"
	EventSystem     = "system"
	EventResult     = "result"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEvent parses one event envelope. Unknown event names are an error so
// the caller can decide whether to skip or abort.
func DecodeEvent(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch strings.TrimSpace(env.Event) {
	case EventText:
		var ev TextEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	case EventThinking:
		var ev ThinkingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	case EventToolUse:
		var ev ToolUseEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	case EventToolResult:
		var ev ToolResultEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	case EventSystem:
		var ev SystemEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	case EventResult:
		var ev ResultEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}
