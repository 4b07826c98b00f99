package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  "Show or validate neuropixel configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := os.Getenv("NEUROPIXEL_CONFIG")
			if cfgPath == "" {
				cfgPath = "(default) ~/.config/neuropixel/config.json"
			}
			fmt.Printf("Config file: %s\n\n", cfgPath)
			fmt.Printf("Server Addr: %s\n", root.cfg.Server.Addr)
			fmt.Printf("Max Concurrent Jobs: %d\n", root.cfg.Batch.MaxConcurrentJobs)
			fmt.Printf("Upload Directory: %s\n", root.cfg.Paths.UploadDir)
			fmt.Printf("Output Directory: %s\n", root.cfg.Paths.OutputDir)
			fmt.Printf("Database Path: %s\n", root.cfg.Paths.DatabasePath)
			fmt.Printf("Watch Directories: %v\n", root.cfg.Paths.WatchDirs)
			fmt.Printf("Log Level: %s\n", root.cfg.Logging.Level)
			fmt.Printf("Log Format: %s\n", root.cfg.Logging.Format)
			fmt.Printf("Log Directory: %s\n", root.cfg.Logging.LogDir)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var problems []string
			switch root.cfg.Logging.Level {
			case "debug", "info", "warn", "warning", "error":
			default:
				problems = append(problems, fmt.Sprintf("unknown log level %q", root.cfg.Logging.Level))
			}
			switch root.cfg.Logging.Format {
			case "text", "json":
			default:
				problems = append(problems, fmt.Sprintf("unknown log format %q", root.cfg.Logging.Format))
			}
			if root.cfg.Batch.MaxConcurrentJobs < 0 {
				problems = append(problems, "max_concurrent_jobs must be >= 0")
			}
			for _, dir := range root.cfg.Paths.WatchDirs {
				if info, err := os.Stat(dir); err != nil || !info.IsDir() {
					problems = append(problems, fmt.Sprintf("watch dir not accessible: %s", dir))
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Printf("problem: %s\n", p)
				}
				return fmt.Errorf("configuration has %d problem(s)", len(problems))
			}
			fmt.Println("Configuration is valid")
			return nil
		},
	}

	cmd.AddCommand(showCmd, validateCmd)
	return cmd
}
