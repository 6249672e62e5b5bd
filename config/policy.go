package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantrove/tradescope/internal/extract"
	"github.com/quantrove/tradescope/internal/ledger"
)

// ToolPolicy describes which tool names count as trading actions, which tool
// delegates work to subagents, and how subagent names map onto workflow
// phases. A YAML file can override any subset of the defaults.
type ToolPolicy struct {
	DelegateTool   string         `yaml:"delegate_tool"`
	TradingTools   []string       `yaml:"trading_tools"`
	SubagentPhases map[string]int `yaml:"subagent_phases"`
}

// DefaultToolPolicy returns the built-in policy.
func DefaultToolPolicy() ToolPolicy {
	return ToolPolicy{
		DelegateTool:   ledger.DefaultDelegateTool,
		TradingTools:   ledger.DefaultTradingTools(),
		SubagentPhases: extract.DefaultSubagentPhases(),
	}
}

// LoadToolPolicy reads a YAML policy file and merges it over the defaults.
// An empty path returns the defaults unchanged.
func LoadToolPolicy(path string) (ToolPolicy, error) {
	policy := DefaultToolPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read tool policy: %w", err)
	}

	var override ToolPolicy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return policy, fmt.Errorf("parse tool policy %s: %w", path, err)
	}

	if override.DelegateTool != "" {
		policy.DelegateTool = override.DelegateTool
	}
	if len(override.TradingTools) > 0 {
		policy.TradingTools = override.TradingTools
	}
	if len(override.SubagentPhases) > 0 {
		policy.SubagentPhases = override.SubagentPhases
	}
	return policy, nil
}
