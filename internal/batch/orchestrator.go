package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuropixel/internal/logging"
	"neuropixel/internal/pipeline"
	"neuropixel/internal/plugin"
)

// ErrJobNotFound is returned for status or cancel requests against an
// unknown job id.
var ErrJobNotFound = errors.New("job not found")

// ValidationError rejects a submission whose pipeline references
// unregistered capabilities. The job is never created.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid pipeline: " + strings.Join(e.Problems, "; ")
}

// Source resolves an input reference (library image id or filesystem
// path) to a decoded image and a display name.
type Source interface {
	Load(ctx context.Context, ref string) (image.Image, string, error)
}

// Sink persists a processed image under a destination hint and returns
// the written path.
type Sink interface {
	Save(ctx context.Context, img image.Image, name string) (string, error)
}

// Orchestrator owns the process-wide table of batch jobs: it submits,
// runs, reports and cancels them. Each active job runs on its own
// goroutine; counters are written only by that goroutine while reads
// get copy-on-read snapshots.
type Orchestrator struct {
	registry *plugin.Registry
	source   Source
	sink     Sink
	bcast    *Broadcaster
	log      *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job

	// sem bounds concurrently running jobs when non-nil; by default
	// there is no limit.
	sem chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator wires the orchestrator to its collaborators.
// maxConcurrent bounds simultaneously running jobs; zero or negative
// means unbounded.
func NewOrchestrator(ctx context.Context, reg *plugin.Registry, source Source, sink Sink, maxConcurrent int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	o := &Orchestrator{
		registry: reg,
		source:   source,
		sink:     sink,
		bcast:    NewBroadcaster(log),
		log:      log,
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}
	if maxConcurrent > 0 {
		o.sem = make(chan struct{}, maxConcurrent)
	}
	return o
}

// Broadcaster exposes the progress fan-out for subscribers.
func (o *Orchestrator) Broadcaster() *Broadcaster { return o.bcast }

// Submit validates the pipeline against the registry, registers the
// job as pending and schedules its run loop. It returns as soon as the
// job is registered, never when it finishes. An unresolvable step
// rejects the submission with a ValidationError and no job id is
// issued.
func (o *Orchestrator) Submit(pipe pipeline.Pipeline, inputs []string) (string, error) {
	if ok, problems := pipe.Validate(o.registry); !ok {
		return "", &ValidationError{Problems: problems}
	}

	job := newJob(uuid.NewString(), pipe, inputs)

	o.mu.Lock()
	o.jobs[job.ID()] = job
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(job)

	o.log.Info("batch job submitted", "id", job.ID(), "inputs", len(inputs), "steps", len(pipe.Steps))
	return job.ID(), nil
}

// Status returns a snapshot of the job's counters and state. It never
// blocks on the run loop.
func (o *Orchestrator) Status(id string) (Snapshot, error) {
	o.mu.RLock()
	job, ok := o.jobs[id]
	o.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

// Cancel requests cooperative cancellation. Idempotent; a terminal job
// is unaffected. The current in-flight input is not interrupted, only
// no further input starts.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.RLock()
	job, ok := o.jobs[id]
	o.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	job.RequestCancel()
	o.log.Info("batch job cancellation requested", "id", id)
	return nil
}

// Active returns snapshots of every job still pending or processing,
// the on-demand pull counterpart to the push channel.
func (o *Orchestrator) Active() []Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []Snapshot
	for _, job := range o.jobs {
		if s := job.Snapshot(); !s.Status.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// Close stops accepting work from running loops at the next input
// boundary and waits for them to exit.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
	o.bcast.Close()
}

// run is the per-job loop. Inputs are processed strictly in
// submission order; a per-input failure is recorded and never aborts
// the batch. After every input a snapshot is published and the
// goroutine yields so outbound notifications can flush.
func (o *Orchestrator) run(job *Job) {
	defer o.wg.Done()

	if o.sem != nil {
		select {
		case o.sem <- struct{}{}:
		case <-o.ctx.Done():
			job.finish(true)
			o.bcast.Publish(job.Snapshot())
			return
		}
		defer func() { <-o.sem }()
	}

	start := time.Now()
	job.start()
	logging.LogJobStart(o.log, job.ID(), len(job.inputs), len(job.pipe.Steps))
	o.bcast.Publish(job.Snapshot())

	cancelled := false
	for i, ref := range job.inputs {
		if job.cancelRequested() || o.ctx.Err() != nil {
			cancelled = true
			break
		}

		job.noteInputStart(i, ref)
		o.processInput(job, ref)

		o.bcast.Publish(job.Snapshot())
		runtime.Gosched()
	}

	status := job.finish(cancelled)
	o.bcast.Publish(job.Snapshot())
	logging.LogJobComplete(o.log, job.ID(), string(status), time.Since(start), job.Snapshot().Processed, job.Snapshot().FailedCount)
}

// processInput loads one input, runs it through the pipeline and
// persists the result, charging any failure to the input without
// aborting the batch.
func (o *Orchestrator) processInput(job *Job, ref string) {
	img, name, err := o.source.Load(o.ctx, ref)
	if err != nil {
		job.noteFailure(fmt.Sprintf("error processing %s: %v", ref, err))
		return
	}
	job.setFilename(name)

	out, res := job.pipe.Execute(o.registry, img)
	if len(res.Errors) > 0 {
		job.appendErrors(res.Errors)
	}

	if _, err := o.sink.Save(o.ctx, out, name); err != nil {
		job.noteFailure(fmt.Sprintf("error saving %s: %v", name, err))
		return
	}
	job.noteSuccess()
}
