package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigWithRoot(t *testing.T) {
	cfg := DefaultConfigWithRoot("/srv/agent")

	if cfg.ResultsDir != filepath.Join("/srv/agent", "data", "trading_agent") {
		t.Fatalf("results dir = %q", cfg.ResultsDir)
	}
	if cfg.DBPath != filepath.Join("/srv/agent", "data", "tradescope.db") {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if !cfg.StoreEnabled {
		t.Fatal("store should default to enabled")
	}
	if cfg.StrictMCPCheck {
		t.Fatal("strict mcp check should default to off")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("RESULTS_DIR", "/tmp/results")
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("STORE_ENABLED", "false")
	t.Setenv("STRICT_MCP_CHECK", "true")
	t.Setenv("BINANCE_URL", "http://binance.internal:9000/")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACE_EXPORTER", "otlp-http")
	t.Setenv("OTLP_ENDPOINT", "collector:4318")

	cfg := DefaultConfigWithRoot("/srv/agent")
	cfg.loadFromEnv()

	if cfg.ResultsDir != "/tmp/results" {
		t.Fatalf("results dir = %q", cfg.ResultsDir)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.StoreEnabled {
		t.Fatal("STORE_ENABLED=false not applied")
	}
	if !cfg.StrictMCPCheck {
		t.Fatal("STRICT_MCP_CHECK=true not applied")
	}
	if cfg.BinanceURL != "http://binance.internal:9000/" {
		t.Fatalf("binance url = %q", cfg.BinanceURL)
	}
	if !cfg.TracingEnabled || cfg.TraceExporter != "otlp-http" || cfg.OTLPEndpoint != "collector:4318" {
		t.Fatalf("tracing config = %v %q %q", cfg.TracingEnabled, cfg.TraceExporter, cfg.OTLPEndpoint)
	}
}

func TestLoadFromEnvBadBoolKeepsDefault(t *testing.T) {
	t.Setenv("STORE_ENABLED", "maybe")

	cfg := DefaultConfigWithRoot("/srv/agent")
	cfg.loadFromEnv()

	if !cfg.StoreEnabled {
		t.Fatal("unparseable bool should keep the default")
	}
}

func TestMCPServers(t *testing.T) {
	cfg := DefaultConfigWithRoot("/srv/agent")
	servers := cfg.MCPServers()
	if len(servers) != 3 {
		t.Fatalf("servers = %v", servers)
	}
	if servers["Binance"] != cfg.BinanceURL {
		t.Fatalf("binance = %q", servers["Binance"])
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfigWithRoot("/srv/agent")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.ResultsDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing results dir accepted")
	}

	cfg = DefaultConfigWithRoot("/srv/agent")
	cfg.StoreEnabled = true
	cfg.DBPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("store enabled without db path accepted")
	}

	cfg.StoreEnabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("db path should be optional with the store off: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories should be idempotent: %v", err)
	}
}
