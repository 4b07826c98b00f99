// Package batch runs a pipeline across many inputs as a cancellable,
// observable background job and fans progress out to subscribers.
package batch

import (
	"sync"
	"sync/atomic"
	"time"

	"neuropixel/internal/pipeline"
)

// Status is a batch job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Snapshot is an immutable point-in-time copy of a job's observable
// state, the shape pushed to subscribers and returned by status
// queries.
type Snapshot struct {
	JobID          string   `json:"job_id"`
	Status         Status   `json:"status"`
	Current        int      `json:"current"`
	Total          int      `json:"total"`
	Processed      int      `json:"processed"`
	FailedCount    int      `json:"failed_count"`
	Filename       string   `json:"filename,omitempty"`
	Errors         []string `json:"errors"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// Job wraps a pipeline plus an ordered input list and owns the
// lifecycle counters. All counter mutation happens from the job's own
// run loop; external callers only set the cancel flag and read
// snapshots.
type Job struct {
	id     string
	pipe   pipeline.Pipeline
	inputs []string

	mu        sync.Mutex
	status    Status
	current   int
	processed int
	failed    int
	errors    []string
	lastFile  string
	startedAt time.Time
	endedAt   time.Time

	cancel atomic.Bool
}

func newJob(id string, pipe pipeline.Pipeline, inputs []string) *Job {
	return &Job{
		id:     id,
		pipe:   pipe,
		inputs: inputs,
		status: StatusPending,
	}
}

// ID returns the job's opaque identifier.
func (j *Job) ID() string { return j.id }

// RequestCancel sets the cooperative cancellation flag. The run loop
// observes it at the next input boundary; the in-flight input is not
// interrupted. Safe to call repeatedly and after the job finished.
func (j *Job) RequestCancel() { j.cancel.Store(true) }

func (j *Job) cancelRequested() bool { return j.cancel.Load() }

// Snapshot returns a torn-free copy of the current state. It never
// blocks on the run loop beyond the field-copy critical section.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	errs := make([]string, len(j.errors))
	copy(errs, j.errors)

	var elapsed float64
	if !j.startedAt.IsZero() {
		end := j.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		elapsed = end.Sub(j.startedAt).Seconds()
	}

	return Snapshot{
		JobID:          j.id,
		Status:         j.status,
		Current:        j.current,
		Total:          len(j.inputs),
		Processed:      j.processed,
		FailedCount:    j.failed,
		Filename:       j.lastFile,
		Errors:         errs,
		ElapsedSeconds: elapsed,
	}
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusProcessing
	j.startedAt = time.Now()
}

// noteInputStart records that input i (0-indexed) is being processed.
func (j *Job) noteInputStart(i int, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = i + 1
	j.lastFile = name
}

func (j *Job) setFilename(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastFile = name
}

func (j *Job) noteSuccess() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed++
}

func (j *Job) noteFailure(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed++
	j.errors = append(j.errors, msg)
}

// appendErrors records pipeline step diagnostics for an input that
// still produced an output.
func (j *Job) appendErrors(msgs []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msgs...)
}

// finish assigns the terminal state exactly once: cancelled wins, then
// failed only when zero inputs succeeded, otherwise completed. Partial
// success is reported as completed; callers inspect failed_count and
// errors to detect it.
func (j *Job) finish(cancelled bool) Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.endedAt = time.Now()
	switch {
	case cancelled:
		j.status = StatusCancelled
	case j.failed > 0 && j.processed == 0:
		j.status = StatusFailed
	default:
		j.status = StatusCompleted
	}
	return j.status
}
