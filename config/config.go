// Package config holds TOML-driven runtime configuration for the
// emulator: cache/arena sizing, the hot-block promotion threshold, the
// cycle guard, and trace/statistics toggles, grouped into [section]
// tables by concern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the emulator's tunable runtime configuration. Every field
// has a sane default (DefaultConfig) so a missing or absent config
// file never prevents the emulator from running.
type Config struct {
	// Execution governs the outer dispatcher and guest memory layout.
	Execution struct {
		MaxCycles uint64 `toml:"max_cycles"` // 0 = unbounded
		StackSize uint64 `toml:"stack_size"`
		FSRoot    string `toml:"fsroot"`
	} `toml:"execution"`

	// Cache governs the hot-block cache's table and code arena.
	Cache struct {
		TableSize    int    `toml:"table_size"`
		ProbeLimit   int    `toml:"probe_limit"`
		HotThreshold uint64 `toml:"hot_threshold"`
		ArenaBytes   uint64 `toml:"arena_bytes"`
	} `toml:"cache"`

	// Debugger governs the interactive tcell/tview session.
	Debugger struct {
		HistorySize   int  `toml:"history_size"`
		ShowRegisters bool `toml:"show_registers"`
	} `toml:"debugger"`

	// Trace governs optional execution/ecall trace output.
	Trace struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
	} `toml:"trace"`

	// Statistics governs optional end-of-run counters.
	Statistics struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
		Format     string `toml:"format"` // json, csv
	} `toml:"statistics"`
}

// DefaultConfig returns the configuration used when no config file is
// present: a 64K-slot table with a 100000-hit promotion threshold, a
// 64 MiB code arena, and a 32 MiB guest stack.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MaxCycles = 0
	cfg.Execution.StackSize = 32 * 1024 * 1024
	cfg.Execution.FSRoot = ""

	cfg.Cache.TableSize = 65536
	cfg.Cache.ProbeLimit = 32
	cfg.Cache.HotThreshold = 100000
	cfg.Cache.ArenaBytes = 64 * 1024 * 1024

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.ShowRegisters = true

	cfg.Trace.Enabled = false
	cfg.Trace.OutputFile = "trace.log"

	cfg.Statistics.Enabled = false
	cfg.Statistics.OutputFile = "stats.json"
	cfg.Statistics.Format = "json"

	return cfg
}

// GetConfigPath returns the platform-specific config file path:
// ~/.config/rv64emu/config.toml on macOS/Linux, %APPDATA%\rv64emu on
// Windows, falling back to the current directory if the home
// directory cannot be resolved.
func GetConfigPath() string {
	dir := platformDir("rv64emu", false)
	if dir == "" {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// GetLogPath returns the platform-specific directory for trace,
// statistics, and other diagnostic output files.
func GetLogPath() string {
	dir := platformDir("rv64emu", true)
	if dir == "" {
		return "logs"
	}
	return dir
}

func platformDir(app string, logs bool) string {
	var base string

	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, app)
		if logs {
			base = filepath.Join(base, "logs")
		}
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		if logs {
			base = filepath.Join(home, ".local", "share", app, "logs")
		} else {
			base = filepath.Join(home, ".config", app)
		}
	}

	if err := os.MkdirAll(base, 0o750); err != nil {
		return ""
	}
	return base
}

// Load reads configuration from the default config path, falling back
// to DefaultConfig when the file does not exist.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads configuration from path, falling back to
// DefaultConfig when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to the default config path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes c to path in TOML form, creating parent directories
// as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}

	f, err := os.Create(path) // #nosec G304 -- operator-specified config path
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
