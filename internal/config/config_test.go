package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("NEUROPIXEL_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Batch.MaxConcurrentJobs != 0 {
		t.Fatalf("default max jobs = %d", cfg.Batch.MaxConcurrentJobs)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Paths.UploadDir == "" || cfg.Paths.OutputDir == "" || cfg.Paths.DatabasePath == "" {
		t.Fatalf("path defaults missing: %+v", cfg.Paths)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
        "server": {"addr": ":9999"},
        "batch": {"max_concurrent_jobs": 4},
        "paths": {"watch_dirs": ["/data/inbox"]},
        "logging": {"level": "debug", "format": "json"}
    }`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEUROPIXEL_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr not read: %q", cfg.Server.Addr)
	}
	if cfg.Batch.MaxConcurrentJobs != 4 {
		t.Fatalf("max jobs not read: %d", cfg.Batch.MaxConcurrentJobs)
	}
	if len(cfg.Paths.WatchDirs) != 1 || cfg.Paths.WatchDirs[0] != "/data/inbox" {
		t.Fatalf("watch dirs not read: %v", cfg.Paths.WatchDirs)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not read: %+v", cfg.Logging)
	}
	// Unspecified fields keep their defaults.
	if cfg.Paths.UploadDir == "" {
		t.Fatal("unset field lost its default")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEUROPIXEL_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected decode error")
	}
}
