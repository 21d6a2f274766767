package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Execution.MaxCycles != 0 {
		t.Errorf("MaxCycles = %d, want 0 (unbounded)", cfg.Execution.MaxCycles)
	}
	if cfg.Execution.StackSize != 32*1024*1024 {
		t.Errorf("StackSize = %d, want 32MiB", cfg.Execution.StackSize)
	}

	if cfg.Cache.TableSize != 65536 {
		t.Errorf("Cache.TableSize = %d, want 65536", cfg.Cache.TableSize)
	}
	if cfg.Cache.ProbeLimit != 32 {
		t.Errorf("Cache.ProbeLimit = %d, want 32", cfg.Cache.ProbeLimit)
	}
	if cfg.Cache.HotThreshold != 100000 {
		t.Errorf("Cache.HotThreshold = %d, want 100000", cfg.Cache.HotThreshold)
	}
	if cfg.Cache.ArenaBytes != 64*1024*1024 {
		t.Errorf("Cache.ArenaBytes = %d, want 64MiB", cfg.Cache.ArenaBytes)
	}

	if cfg.Debugger.HistorySize != 1000 {
		t.Errorf("Debugger.HistorySize = %d, want 1000", cfg.Debugger.HistorySize)
	}
	if cfg.Trace.Enabled {
		t.Error("Trace.Enabled should default false")
	}
	if cfg.Statistics.Format != "json" {
		t.Errorf("Statistics.Format = %q, want json", cfg.Statistics.Format)
	}
}

func TestLoadFromMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Cache.HotThreshold != DefaultConfig().Cache.HotThreshold {
		t.Error("LoadFrom on a missing path should return defaults")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Cache.HotThreshold = 42
	cfg.Execution.FSRoot = "/tmp/sandbox"
	cfg.Trace.Enabled = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Cache.HotThreshold != 42 {
		t.Errorf("HotThreshold = %d, want 42", loaded.Cache.HotThreshold)
	}
	if loaded.Execution.FSRoot != "/tmp/sandbox" {
		t.Errorf("FSRoot = %q, want /tmp/sandbox", loaded.Execution.FSRoot)
	}
	if !loaded.Trace.Enabled {
		t.Error("Trace.Enabled should round-trip true")
	}
}

func TestGetLogPathIsAbsoluteOrFallback(t *testing.T) {
	p := GetLogPath()
	if p == "" {
		t.Fatal("GetLogPath returned empty string")
	}
}
