// Package cli wires the cobra command tree to the core components.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"neuropixel/internal/batch"
	"neuropixel/internal/config"
	"neuropixel/internal/pipeline"
	"neuropixel/internal/plugin"
	"neuropixel/internal/plugin/library"
	"neuropixel/internal/store"
)

// Root carries the shared collaborators every command needs.
type Root struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *plugin.Registry
	store    *store.Store
}

// NewRoot constructs the CLI root state.
func NewRoot(cfg *config.Config, logger *slog.Logger, reg *plugin.Registry, st *store.Store) *Root {
	return &Root{
		cfg:      cfg,
		log:      logger,
		registry: reg,
		store:    st,
	}
}

func (r *Root) newOrchestrator(ctx context.Context) *batch.Orchestrator {
	return batch.NewOrchestrator(ctx, r.registry, r.store, r.store,
		r.cfg.Batch.MaxConcurrentJobs, r.log)
}

// reloadPlugins re-runs discovery over the built-in library.
func (r *Root) reloadPlugins() (int, error) {
	return r.registry.Discover(library.All())
}

// runAndWait submits one batch job and blocks until it reaches a
// terminal state, echoing progress to stdout.
func (r *Root) runAndWait(ctx context.Context, pipe pipeline.Pipeline, inputs []string) error {
	orch := r.newOrchestrator(ctx)
	defer orch.Close()

	snaps, unsubscribe := orch.Broadcaster().Subscribe()
	defer unsubscribe()

	id, err := orch.Submit(pipe, inputs)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			orch.Cancel(id)
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return fmt.Errorf("progress feed closed before job finished")
			}
			if snap.JobID != id {
				continue
			}
			if snap.Filename != "" {
				fmt.Fprintf(os.Stdout, "[%d/%d] %s\n", snap.Current, snap.Total, snap.Filename)
			}
			if !snap.Status.Terminal() {
				continue
			}
			fmt.Fprintf(os.Stdout, "job %s: %s (%d processed, %d failed, %.1fs)\n",
				snap.JobID, snap.Status, snap.Processed, snap.FailedCount, snap.ElapsedSeconds)
			for _, e := range snap.Errors {
				fmt.Fprintf(os.Stdout, "  - %s\n", e)
			}
			if snap.Status == batch.StatusFailed {
				return fmt.Errorf("batch job failed: no input produced output")
			}
			return nil
		}
	}
}
