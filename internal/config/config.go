// Package config provides configuration management for the activity monitor.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"activitymon/internal/hook"
	"activitymon/internal/hotkey"
	"activitymon/internal/input"
)

// Hotkey actions understood by the monitor.
const (
	ActionToggleKeyboard = "toggle-keyboard"
	ActionToggleMouse    = "toggle-mouse"
	ActionPrintPressed   = "print-pressed"
	ActionQuit           = "quit"
)

var validActions = map[string]bool{
	ActionToggleKeyboard: true,
	ActionToggleMouse:    true,
	ActionPrintPressed:   true,
	ActionQuit:           true,
}

// Config represents the application configuration
type Config struct {
	// Monitor selects what is captured and printed
	Monitor MonitorConfig `json:"monitor"`

	// Hotkeys binds global key combinations to actions
	Hotkeys []HotkeyBinding `json:"hotkeys"`

	// General contains general application settings
	General GeneralConfig `json:"general"`
}

// MonitorConfig selects the events the monitor subscribes to
type MonitorConfig struct {
	// Events lists event kind names, e.g. "KeyUp", "MouseClick"
	Events []string `json:"events"`

	// TargetWindow is the title of a window to report Enter/Leave for (optional)
	TargetWindow string `json:"target_window,omitempty"`

	// TargetPID selects the main window of a process instead of a title
	TargetPID int `json:"target_pid,omitempty"`

	// ErrorPolicy is "continue" or "forward"
	ErrorPolicy string `json:"error_policy,omitempty"`

	// SuppressHotkeys keeps hotkey presses from reaching other applications
	SuppressHotkeys bool `json:"suppress_hotkeys"`
}

// HotkeyBinding binds a combination such as "Ctrl+Alt+K" to an action
type HotkeyBinding struct {
	Hotkey string `json:"hotkey"`
	Action string `json:"action"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`

	// LogFormat is "console" or "json"
	LogFormat string `json:"log_format"`

	// ShowTray shows the system tray icon
	ShowTray bool `json:"show_tray"`

	// StartOnLogin registers the monitor to start when the user logs in
	StartOnLogin bool `json:"start_on_login"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Events:      []string{input.KeyUp.String()},
			ErrorPolicy: hook.ContinueOnError.String(),
		},
		Hotkeys: []HotkeyBinding{
			{Hotkey: "Ctrl+Alt+Shift+K", Action: ActionToggleKeyboard},
			{Hotkey: "Ctrl+Alt+Shift+M", Action: ActionToggleMouse},
			{Hotkey: "Ctrl+Alt+Shift+Esc", Action: ActionQuit},
		},
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "console",
			ShowTray:  true,
		},
	}
}

// EventKinds resolves the configured event names.
func (c *Config) EventKinds() ([]input.EventKind, error) {
	kinds := make([]input.EventKind, 0, len(c.Monitor.Events))
	for _, name := range c.Monitor.Events {
		k, err := input.ParseEventKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Validate checks every field that has a closed set of values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.EventKinds(); err != nil {
		errs = append(errs, err)
	}
	if c.Monitor.TargetPID < 0 {
		errs = append(errs, fmt.Errorf("invalid target pid %d", c.Monitor.TargetPID))
	}
	if _, ok := hook.ParseErrorPolicy(c.Monitor.ErrorPolicy); !ok {
		errs = append(errs, fmt.Errorf("unknown error policy %q", c.Monitor.ErrorPolicy))
	}
	for _, b := range c.Hotkeys {
		if !validActions[b.Action] {
			errs = append(errs, fmt.Errorf("hotkey %q: unknown action %q", b.Hotkey, b.Action))
		}
		if _, err := hotkey.ParseCombo(b.Hotkey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit file path
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "activitymon")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "activitymon")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "activitymon")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// SetHotkey updates the binding for action or adds a new one
func (m *Manager) SetHotkey(action, combo string) error {
	if !validActions[action] {
		return fmt.Errorf("unknown action %q", action)
	}
	if _, err := hotkey.ParseCombo(combo); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Hotkeys {
		if m.config.Hotkeys[i].Action == action {
			m.config.Hotkeys[i].Hotkey = combo
			return nil
		}
	}
	// Not found, add new
	m.config.Hotkeys = append(m.config.Hotkeys, HotkeyBinding{Hotkey: combo, Action: action})
	return nil
}
