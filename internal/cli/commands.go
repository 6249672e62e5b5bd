// Package cli wires the command surface: running a session from an event
// stream, rebuilding reports from the store, and config management.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quantrove/tradescope/config"
	"github.com/quantrove/tradescope/internal/display"
	"github.com/quantrove/tradescope/internal/extract"
	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/report"
	"github.com/quantrove/tradescope/internal/runtime"
	"github.com/quantrove/tradescope/internal/session"
	"github.com/quantrove/tradescope/internal/storage/sqlite"
	"github.com/quantrove/tradescope/internal/tracing"
)

// ErrNoAction signals a clean session during which no trade was executed.
// The process maps it to exit code 2.
var ErrNoAction = errors.New("no trading action taken")

// NewRootCmd loads the persistent configuration and creates the root command.
func NewRootCmd() *cobra.Command {
	mgr, err := config.NewManager()
	if err != nil {
		log.Printf("config: %v (using defaults)", err)
		mgr, _ = config.NewManager(
			config.WithConfigPath(filepath.Join(os.TempDir(), "tradescope.json")),
			config.WithInitialConfig(config.DefaultConfig()),
		)
	}
	return newRootCmd(mgr)
}

func newRootCmd(mgr *config.Manager) *cobra.Command {
	// Flags override a per-invocation copy; only `config set` writes back.
	current := mgr.Get()
	cfg := &current

	rootCmd := &cobra.Command{
		Use:   "tradescope",
		Short: "Tradescope - trading agent session analytics",
		Long: `Tradescope consumes the event stream of a crypto-trading agent session,
tracks turns, tool calls and subagent delegations, and compiles structured
and markdown session reports.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newReportCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(mgr, cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfg.ResultsDir, "results-dir", cfg.ResultsDir, "Report output directory")

	return rootCmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var (
		eventsPath string
		sessionID  string
		noStore    bool
		skipHealth bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consume a session event stream and compile its report",
		Long: `Read the agent runtime's JSONL event stream (from a file or stdin),
record activity, and write the session report when the stream ends.
Example: tradescope run --events session.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cfg, eventsPath, sessionID, noStore, skipHealth)
		},
	}

	cmd.Flags().StringVar(&eventsPath, "events", "-", "Event stream file, or - for stdin")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session id (short uuid if not provided)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Disable the durable session store")
	cmd.Flags().BoolVar(&skipHealth, "skip-health", false, "Skip the MCP server pre-flight check")

	return cmd
}

func runSession(ctx context.Context, cfg *config.Config, eventsPath, sessionID string, noStore, skipHealth bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !skipHealth {
		if err := preflight(ctx, cfg); err != nil {
			return err
		}
	}

	policy, err := config.LoadToolPolicy(cfg.ToolPolicyPath)
	if err != nil {
		return err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()[:8]
	}

	input, closeInput, err := openEvents(eventsPath)
	if err != nil {
		return err
	}
	defer closeInput()

	l := ledger.New(sessionID,
		ledger.WithDelegateTool(policy.DelegateTool),
		ledger.WithTradingTools(policy.TradingTools),
	)

	opts := []session.RunnerOption{
		session.WithSink(display.NewPrinter()),
	}
	if cfg.StoreEnabled && !noStore {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		rec, err := sqlite.NewRecorder(ctx, store, sessionID,
			sqlite.WithDelegateTool(policy.DelegateTool))
		if err != nil {
			return err
		}
		opts = append(opts, session.WithRecorder(rec))
	} else {
		opts = append(opts, session.WithRecorder(ledger.NopRecorder{}))
	}

	if cfg.TracingEnabled {
		tp, err := tracing.NewProvider(ctx, tracing.Config{
			Exporter: cfg.TraceExporter,
			Endpoint: cfg.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Printf("tracing: shutdown: %v", err)
			}
		}()
		opts = append(opts, session.WithRecorder(
			tracing.NewRecorder(tp.Tracer("tradescope"), sessionID)))
	}

	runner := session.NewRunner(l, opts...)
	runErr := runner.Run(ctx, runtime.NewJSONLStream(input))

	exitCode, err := saveReports(runner, policy, cfg.ResultsDir)
	if err != nil {
		if runErr != nil {
			return fmt.Errorf("%w (additionally: %v)", runErr, err)
		}
		return err
	}
	if runErr != nil {
		return runErr
	}
	if exitCode == session.ExitNoAction {
		return ErrNoAction
	}
	return nil
}

func saveReports(runner *session.Runner, policy config.ToolPolicy, resultsDir string) (int, error) {
	compiler := report.NewCompiler(report.WithExtractor(extract.New(
		extract.WithTradingTools(policy.TradingTools),
		extract.WithSubagentPhases(policy.SubagentPhases),
	)))
	rep := runner.Compile(compiler)

	mdPath, err := report.SaveMarkdown(runner.Ledger(), resultsDir)
	if err != nil {
		return rep.ExitCode, err
	}
	jsonPath, err := report.SaveJSON(rep, resultsDir)
	if err != nil {
		return rep.ExitCode, err
	}

	printer := display.NewPrinter()
	printer.PrintSessionDone(rep.ExitCode, rep.Session.SessionID,
		rep.Session.DurationSeconds, rep.Session.TradesExecuted, len(rep.Session.SubagentsUsed))
	fmt.Printf("📄 Markdown report: %s\n", mdPath)
	fmt.Printf("📄 Structured report: %s\n", jsonPath)
	return rep.ExitCode, nil
}

// preflight probes the configured tool servers. Strict mode turns failures
// into a hard error; otherwise the user decides whether to continue.
func preflight(ctx context.Context, cfg *config.Config) error {
	checker := runtime.NewHealthChecker(5 * time.Second)
	statuses := checker.Check(ctx, cfg.MCPServers())

	var failed []string
	for _, st := range statuses {
		if st.OK {
			fmt.Printf("✓ %s is accessible\n", st.Name)
			continue
		}
		fmt.Printf("✗ %s is not accessible: %v\n", st.Name, st.Err)
		failed = append(failed, st.Name)
	}
	if runtime.AllHealthy(statuses) {
		fmt.Println("✓ All MCP servers are accessible")
		return nil
	}

	if cfg.StrictMCPCheck {
		return fmt.Errorf("mcp pre-flight failed: %s", strings.Join(failed, ", "))
	}

	proceed := true
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%d MCP server(s) unreachable. Continue anyway?", len(failed)),
		Default: false,
	}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		// Non-interactive environment: keep the lenient default behavior.
		fmt.Println("   STRICT_MCP_CHECK=false - Continuing anyway (may fail later).")
		return nil
	}
	if !proceed {
		return fmt.Errorf("aborted: mcp server(s) unreachable: %s", strings.Join(failed, ", "))
	}
	return nil
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild the report for a stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rebuildReport(cmd.Context(), cfg, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Stored session id (interactive picker if omitted)")
	return cmd
}

func rebuildReport(ctx context.Context, cfg *config.Config, sessionID string) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionID == "" {
		sessionID, err = pickSession(ctx, store)
		if err != nil {
			return err
		}
	}

	policy, err := config.LoadToolPolicy(cfg.ToolPolicyPath)
	if err != nil {
		return err
	}

	l, err := store.ReplayLedger(ctx, sessionID,
		ledger.WithDelegateTool(policy.DelegateTool),
		ledger.WithTradingTools(policy.TradingTools),
	)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	path, err := report.SaveMarkdown(l, cfg.ResultsDir)
	if err != nil {
		return err
	}
	fmt.Printf("📄 Report rebuilt: %s\n", path)
	return nil
}

func pickSession(ctx context.Context, store *sqlite.Store) (string, error) {
	sessions, err := store.ListSessions(ctx, 50)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("no stored sessions")
	}

	labels := make([]string, 0, len(sessions))
	byLabel := make(map[string]string, len(sessions))
	for _, rec := range sessions {
		label := sqlite.SessionLabel(rec)
		labels = append(labels, label)
		byLabel[label] = rec.ID
	}

	var choice string
	prompt := &survey.Select{
		Message: "Select a session:",
		Options: labels,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", fmt.Errorf("select session: %w", err)
	}
	return byLabel[choice], nil
}

func newConfigCmd(mgr *config.Manager, cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored configuration",
		Run: func(cmd *cobra.Command, args []string) {
			stored := mgr.Get()
			showConfig(&stored)
			fmt.Printf("\nConfig File:          %s\n", mgr.Path())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <json>",
		Short: "Merge a JSON document into the stored configuration",
		Long: `Merge the given JSON document over the stored configuration and persist
it. Example: tradescope config set '{"strict_mcp_check": true}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mgr.UpdateFromJSON([]byte(args[0])); err != nil {
				return err
			}
			fmt.Printf("📄 Configuration saved: %s\n", mgr.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and tool servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.Context(), cfg)
		},
	})

	return configCmd
}

func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current Tradescope Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Database Path:        %s\n", cfg.DBPath)
	fmt.Println()
	fmt.Printf("Store Enabled:        %t\n", cfg.StoreEnabled)
	fmt.Printf("Strict MCP Check:     %t\n", cfg.StrictMCPCheck)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Printf("Tracing Enabled:      %t\n", cfg.TracingEnabled)
	if cfg.TracingEnabled {
		fmt.Printf("Trace Exporter:       %s\n", cfg.TraceExporter)
	}
	fmt.Println()
	fmt.Println("🔌 Tool Servers:")
	fmt.Println("─────────────────────")
	fmt.Printf("Polygon:              %s\n", cfg.PolygonURL)
	fmt.Printf("Binance:              %s\n", cfg.BinanceURL)
	fmt.Printf("Perplexity:           %s\n", cfg.PerplexityURL)
	if cfg.ToolPolicyPath != "" {
		fmt.Println()
		fmt.Printf("Tool Policy:          %s\n", cfg.ToolPolicyPath)
	}
}

func validateConfig(ctx context.Context, cfg *config.Config) error {
	fmt.Println("🔍 Validating Tradescope Configuration...")
	fmt.Println("═══════════════════════════════════════")

	fmt.Print("📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Println("✅")

	fmt.Print("⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Println("✅")

	fmt.Print("📜 Checking tool policy... ")
	if _, err := config.LoadToolPolicy(cfg.ToolPolicyPath); err != nil {
		fmt.Println("❌")
		return err
	}
	fmt.Println("✅")

	fmt.Println("🌐 Probing tool servers...")
	checker := runtime.NewHealthChecker(5 * time.Second)
	statuses := checker.Check(ctx, cfg.MCPServers())
	warnings := 0
	for _, st := range statuses {
		if st.OK {
			fmt.Printf("  ✅ %s\n", st.Name)
		} else {
			fmt.Printf("  ⚠️  %s: %v\n", st.Name, st.Err)
			warnings++
		}
	}

	fmt.Println()
	if runtime.AllHealthy(statuses) {
		fmt.Println("✅ Configuration validation completed successfully!")
	} else {
		fmt.Printf("⚠️  Configuration validation completed with %d warnings.\n", warnings)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Tradescope v1.0.0")
			fmt.Println("Trading agent session analytics")
		},
	}
}

func openEvents(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open event stream: %w", err)
	}
	return f, func() { f.Close() }, nil
}
