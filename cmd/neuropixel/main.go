package main

import (
	"fmt"
	"os"

	"neuropixel/internal/cli"
	"neuropixel/internal/config"
	"neuropixel/internal/logging"
	"neuropixel/internal/plugin"
	"neuropixel/internal/plugin/library"
	"neuropixel/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Setup(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	st, err := store.Open(cfg.Paths.DatabasePath, cfg.Paths.UploadDir, cfg.Paths.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}
	defer st.Close()

	registry := plugin.NewRegistry(logger)
	n, err := registry.Discover(library.All())
	if err != nil {
		return fmt.Errorf("plugin discovery: %w", err)
	}
	logger.Info("plugins registered", "count", n)

	root := cli.NewRoot(cfg, logger, registry, st)
	return cli.NewRootCmd(root).Execute()
}
