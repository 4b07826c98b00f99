package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const defaultConfigPath = "~/.config/neuropixel/config.json"

// Config holds user-editable settings for the service.
type Config struct {
	Server  Server  `json:"server"`
	Batch   Batch   `json:"batch"`
	Paths   Paths   `json:"paths"`
	Logging Logging `json:"logging"`
}

// Server captures HTTP listener settings.
type Server struct {
	Addr string `json:"addr"`
}

// Batch captures orchestrator execution preferences.
type Batch struct {
	// MaxConcurrentJobs bounds simultaneously running batch jobs;
	// 0 means unbounded.
	MaxConcurrentJobs int `json:"max_concurrent_jobs"`
}

// Paths configures storage locations.
type Paths struct {
	UploadDir    string   `json:"upload_dir"`
	OutputDir    string   `json:"output_dir"`
	DatabasePath string   `json:"database_path"`
	WatchDirs    []string `json:"watch_dirs"`
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // text, json
	FileOutput bool   `json:"file_output"` // enable file logging
	LogDir     string `json:"log_dir"`     // directory for log files
}

// Load reads configuration from disk, falling back to sensible
// defaults when no config file exists. NEUROPIXEL_CONFIG overrides the
// default location.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("NEUROPIXEL_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Addr: ":8080",
		},
		Batch: Batch{
			MaxConcurrentJobs: 0,
		},
		Paths: Paths{
			UploadDir:    filepath.Join(os.TempDir(), "neuropixel-uploads"),
			OutputDir:    filepath.Join(os.TempDir(), "neuropixel-batch-output"),
			DatabasePath: filepath.Join(os.TempDir(), "neuropixel.db"),
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     "./logs",
		},
	}
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
