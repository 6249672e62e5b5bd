package cli

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/quantrove/tradescope/config"
)

func newTestRootCmd(t *testing.T) (*config.Manager, *cobra.Command) {
	t.Helper()
	dir := t.TempDir()
	mgr, err := config.NewManager(
		config.WithConfigDir(dir),
		config.WithInitialConfig(config.DefaultConfigWithRoot(dir)),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cmd := newRootCmd(mgr)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return mgr, cmd
}

func TestRootCmdSilencesErrors(t *testing.T) {
	_, root := newTestRootCmd(t)
	if !root.SilenceErrors {
		t.Fatal("root command must not double-print errors")
	}
	if !root.SilenceUsage {
		t.Fatal("root command must not dump usage on runtime errors")
	}
}

func TestConfigSetPersists(t *testing.T) {
	mgr, root := newTestRootCmd(t)

	root.SetArgs([]string{"config", "set", `{"debug": true}`})
	if err := root.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}

	if !mgr.Get().Debug {
		t.Fatal("config set did not update the live config")
	}

	data, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("read config file: %v", err)
	}
	var onDisk config.Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse config file: %v", err)
	}
	if !onDisk.Debug {
		t.Fatal("config set did not persist to disk")
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	mgr, root := newTestRootCmd(t)
	before := mgr.Get()

	root.SetArgs([]string{"config", "set", `{"results_dir": ""}`})
	if err := root.Execute(); err == nil {
		t.Fatal("invalid config accepted")
	}
	if mgr.Get().ResultsDir != before.ResultsDir {
		t.Fatal("rejected update mutated the stored config")
	}
}
