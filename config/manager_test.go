package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(
		WithConfigDir(dir),
		WithInitialConfig(DefaultConfigWithRoot(dir)),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerCreatesConfigFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(WithConfigPath(filepath.Join(dir, "config.json")))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not valid json: %v", err)
	}
}

func TestManagerUpdatePersistsAndNotifies(t *testing.T) {
	m := newTestManager(t)

	var notified *Config
	m.OnChange(func(cfg *Config) { notified = cfg })

	if err := m.Update(func(cfg *Config) { cfg.Debug = true }); err != nil {
		t.Fatalf("update: %v", err)
	}

	if !m.Get().Debug {
		t.Fatal("update not reflected in Get")
	}
	if notified == nil || !notified.Debug {
		t.Fatal("OnChange callback not invoked with the new config")
	}

	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !onDisk.Debug {
		t.Fatal("update not persisted to disk")
	}
}

func TestManagerUpdateRejectsInvalid(t *testing.T) {
	m := newTestManager(t)
	before := m.Get()

	err := m.Update(func(cfg *Config) { cfg.ResultsDir = "" })
	if err == nil {
		t.Fatal("invalid update accepted")
	}
	if m.Get().ResultsDir != before.ResultsDir {
		t.Fatal("rejected update mutated the live config")
	}
}

func TestManagerUpdateFromJSON(t *testing.T) {
	m := newTestManager(t)

	if err := m.UpdateFromJSON([]byte(`{"strict_mcp_check": true}`)); err != nil {
		t.Fatalf("update from json: %v", err)
	}
	cfg := m.Get()
	if !cfg.StrictMCPCheck {
		t.Fatal("json field not merged")
	}
	if cfg.ResultsDir == "" {
		t.Fatal("merge wiped unrelated fields")
	}
}

func TestManagerReloadFromDisk(t *testing.T) {
	m := newTestManager(t)

	next := m.Get()
	next.Debug = true
	if err := writeConfigFile(m.Path(), &next); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := m.reloadFromDisk(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !m.Get().Debug {
		t.Fatal("reload did not pick up the on-disk change")
	}
}

func TestManagerReloadRejectsInvalidFile(t *testing.T) {
	m := newTestManager(t)
	before := m.Get()

	if err := os.WriteFile(m.Path(), []byte(`{"results_dir": ""}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := m.reloadFromDisk(); err == nil {
		t.Fatal("invalid on-disk config accepted")
	}
	if m.Get().ResultsDir != before.ResultsDir {
		t.Fatal("failed reload mutated the live config")
	}
}
