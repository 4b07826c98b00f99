package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"neuropixel/internal/fsutil"
	"neuropixel/internal/pipeline"
	"neuropixel/internal/server"
	"neuropixel/internal/store"
)

// NewRootCmd creates the root Cobra command.
func NewRootCmd(root *Root) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neuropixel",
		Short: "Neuropixel is a plugin-driven image processing service",
		Long: `Neuropixel runs configurable image transformation pipelines over single
images or whole batches, exposing a plugin registry, batch orchestration
and live progress over HTTP and websocket.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newRunCmd(root))
	rootCmd.AddCommand(newPluginsCmd(root))
	rootCmd.AddCommand(newImagesCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))

	return rootCmd
}

func newServeCmd(root *Root) *cobra.Command {
	var (
		addr       string
		watchPaths []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API with batch processing and live progress",
		Long: `Start an HTTP server exposing the plugin registry, batch submission and
status endpoints, the image library, and a websocket progress feed.

Examples:
  # Basic server
  neuropixel serve --addr :8080

  # Auto-register images dropped into watched directories
  neuropixel serve --addr :8080 --watch /data/inbox --watch /photos/import`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch := root.newOrchestrator(ctx)
			defer orch.Close()

			if len(watchPaths) == 0 {
				watchPaths = root.cfg.Paths.WatchDirs
			}
			if len(watchPaths) > 0 {
				w, err := store.NewWatcher(root.store, watchPaths, root.log)
				if err != nil {
					return fmt.Errorf("failed to create watcher: %w", err)
				}
				if err := w.Start(); err != nil {
					return fmt.Errorf("failed to start watcher: %w", err)
				}
				defer w.Stop()
			}

			srv := server.NewServer(addr, root.registry, orch, root.store, root.reloadPlugins, root.log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "server address (host:port)")
	cmd.Flags().StringSliceVar(&watchPaths, "watch", nil, "directories to monitor for new images")

	return cmd
}

func newRunCmd(root *Root) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "run <pipeline.json> [input...]",
		Short: "Run a pipeline over inputs and wait for completion",
		Long: `Run a pipeline definition over the given inputs. Each input is a
registered image id or a filesystem path; --dir adds every image found
under a directory.

Examples:
  neuropixel run denoise.json photo1.png photo2.png
  neuropixel run pipeline.json --dir /photos/session-12/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pipe, err := pipeline.FromJSON(data)
			if err != nil {
				return err
			}

			inputs := args[1:]
			if dir != "" {
				found, err := fsutil.ListImages(dir)
				if err != nil {
					return err
				}
				inputs = append(inputs, found...)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no inputs: pass image paths or --dir")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return root.runAndWait(ctx, pipe, inputs)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "process every image found under this directory")

	return cmd
}

func newPluginsCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect registered image transformations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered transformations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for category, descs := range root.registry.ListByCategory() {
				fmt.Printf("%s:\n", category)
				for _, d := range descs {
					fmt.Printf("  %-24s %s\n", d.Name, d.DisplayName)
				}
			}
			fmt.Printf("\n%d transformations registered\n", root.registry.Len())
			return nil
		},
	}

	describeCmd := &cobra.Command{
		Use:   "describe <name>",
		Short: "Show a transformation's parameter schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, ok := root.registry.Describe(args[0])
			if !ok {
				return fmt.Errorf("capability not found: %s", args[0])
			}
			fmt.Printf("%s (%s)\n", desc.DisplayName, desc.Name)
			fmt.Printf("Category: %s\n", desc.Category)
			if desc.Description != "" {
				fmt.Printf("%s\n", desc.Description)
			}
			fmt.Printf("\nParameters:\n")
			for _, p := range desc.Params {
				fmt.Printf("  %-18s %-8s default=%v", p.Name, p.Kind, p.Default)
				if p.Kind == "range" {
					fmt.Printf(" low=%v high=%v", p.DefaultLow, p.DefaultHigh)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, describeCmd)
	return cmd
}

func newImagesCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage the image library",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered images",
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := root.store.List()
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Printf("%s  %dx%d  %-5s %s\n", rec.ID, rec.Width, rec.Height, rec.Format, rec.Path)
			}
			fmt.Printf("\n%d images\n", len(recs))
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <path...>",
		Short: "Register image files with the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				rec, err := root.store.Register(path, "")
				if err != nil {
					root.log.Error("failed to register image", "path", path, "error", err)
					continue
				}
				fmt.Printf("%s  %s\n", rec.ID, rec.Path)
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, addCmd)
	return cmd
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("Neuropixel v1.0.0")
		},
	}
}
