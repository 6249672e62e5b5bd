package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the orchestration layer. Values come
// from defaults, the optional .env file, and environment overrides, in that
// order.
type Config struct {
	ProjectDir string `json:"project_dir"`
	ResultsDir string `json:"results_dir"`
	DataDir    string `json:"data_dir"`
	DBPath     string `json:"db_path"`

	// StoreEnabled selects the durable sqlite recorder; when false the
	// session is tracked in memory only.
	StoreEnabled bool `json:"store_enabled"`

	// StrictMCPCheck turns failed tool-server health probes into a hard
	// error instead of a warning.
	StrictMCPCheck bool `json:"strict_mcp_check"`

	PolygonURL    string `json:"polygon_url"`
	BinanceURL    string `json:"binance_url"`
	PerplexityURL string `json:"perplexity_url"`

	// ToolPolicyPath optionally points at a YAML file overriding the
	// trading-tool allow-list and subagent phase map.
	ToolPolicyPath string `json:"tool_policy_path"`

	// TracingEnabled exports OpenTelemetry spans for the session.
	TracingEnabled bool `json:"tracing_enabled"`

	// TraceExporter selects the span exporter: "console" or "otlp-http".
	TraceExporter string `json:"trace_exporter"`

	// OTLPEndpoint is the collector host:port for the otlp-http exporter.
	OTLPEndpoint string `json:"otlp_endpoint"`

	Debug bool `json:"debug"`
}

// DefaultConfig builds the config from defaults, .env and environment.
func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot builds the default config rooted at dir, without
// consulting the environment.
func DefaultConfigWithRoot(dir string) *Config {
	return &Config{
		ProjectDir: dir,
		ResultsDir: filepath.Join(dir, "data", "trading_agent"),
		DataDir:    filepath.Join(dir, "data"),
		DBPath:     filepath.Join(dir, "data", "tradescope.db"),

		StoreEnabled:   true,
		StrictMCPCheck: false,

		TracingEnabled: false,
		TraceExporter:  "console",

		PolygonURL:    "http://localhost:8009/polygon/",
		BinanceURL:    "http://localhost:8010/binance/",
		PerplexityURL: "http://localhost:8011/perplexity/",
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.DBPath = val
	}
	if val := os.Getenv("POLYGON_URL"); val != "" {
		c.PolygonURL = val
	}
	if val := os.Getenv("BINANCE_URL"); val != "" {
		c.BinanceURL = val
	}
	if val := os.Getenv("PERPLEXITY_URL"); val != "" {
		c.PerplexityURL = val
	}
	if val := os.Getenv("TOOL_POLICY_PATH"); val != "" {
		c.ToolPolicyPath = val
	}
	if val := os.Getenv("STORE_ENABLED"); val != "" {
		c.StoreEnabled = parseBool(val, c.StoreEnabled)
	}
	if val := os.Getenv("STRICT_MCP_CHECK"); val != "" {
		c.StrictMCPCheck = parseBool(val, c.StrictMCPCheck)
	}
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		c.TracingEnabled = parseBool(val, c.TracingEnabled)
	}
	if val := os.Getenv("TRACE_EXPORTER"); val != "" {
		c.TraceExporter = val
	}
	if val := os.Getenv("OTLP_ENDPOINT"); val != "" {
		c.OTLPEndpoint = val
	}
	if val := os.Getenv("DEBUG"); val != "" {
		c.Debug = parseBool(val, c.Debug)
	}
}

func parseBool(val string, fallback bool) bool {
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// MCPServers returns the configured tool servers keyed by display name.
func (c *Config) MCPServers() map[string]string {
	return map[string]string{
		"Polygon":    c.PolygonURL,
		"Binance":    c.BinanceURL,
		"Perplexity": c.PerplexityURL,
	}
}

// EnsureDirectories creates the working directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.ResultsDir, c.DataDir, filepath.Dir(c.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks the fields a session cannot run without.
func (c *Config) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("results dir is required")
	}
	if c.StoreEnabled && c.DBPath == "" {
		return fmt.Errorf("db path is required when the store is enabled")
	}
	return nil
}
