package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager owns a Config, persists it as JSON and reloads it when the file
// changes on disk.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange []func(*Config)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithConfigPath sets the config file location.
func WithConfigPath(path string) ManagerOption {
	return func(m *Manager) { m.path = path }
}

// WithConfigDir places the config file inside dir under the default name.
func WithConfigDir(dir string) ManagerOption {
	return func(m *Manager) { m.path = filepath.Join(dir, "tradescope.json") }
}

// WithDebounce sets how long file events are coalesced before a reload.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

// WithInitialConfig seeds the manager instead of loading from disk.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(m *Manager) { m.cfg = cfg }
}

// NewManager loads (or creates) the config file and returns a manager for it.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{debounce: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(m)
	}
	if m.path == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		m.path = path
	}
	if m.cfg == nil {
		cfg, err := loadOrCreateConfig(m.path)
		if err != nil {
			return nil, err
		}
		m.cfg = cfg
	}
	return m, nil
}

// Get returns a copy of the current config.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.path
}

// OnChange registers fn to run after every successful reload or update.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Update applies fn to a copy of the config, persists it and swaps it in.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	next := *m.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := writeConfigFile(m.path, &next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.cfg = &next
	callbacks := append([]func(*Config){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(&next)
	}
	return nil
}

// UpdateFromJSON merges a JSON document over the current config.
func (m *Manager) UpdateFromJSON(data []byte) error {
	return m.Update(func(cfg *Config) {
		if err := json.Unmarshal(data, cfg); err != nil {
			log.Printf("config: merge json: %v", err)
		}
	})
}

// Watch reloads the config when the file changes, until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	m.watcher = watcher

	// Watch the directory so atomic renames are observed.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.watcher.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !m.isConfigEvent(event) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		case <-reload:
			if err := m.reloadFromDisk(); err != nil {
				log.Printf("config: reload: %v", err)
			}
		}
	}
}

func (m *Manager) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(m.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}

func (m *Manager) reloadFromDisk() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	next := DefaultConfigWithRoot(m.Get().ProjectDir)
	if err := json.Unmarshal(data, next); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.mu.Lock()
	m.cfg = next
	callbacks := append([]func(*Config){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
	return nil
}

func loadOrCreateConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tradescope", "config.json"), nil
}

func writeConfigFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tradescope-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
