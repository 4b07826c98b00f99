// Package pipeline composes registered capabilities into an ordered
// image-to-image chain with best-effort partial-failure semantics.
package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"time"

	"neuropixel/internal/plugin"
)

// Step is one link of a pipeline: which capability to run, with what
// parameters, and whether the step is currently enabled.
type Step struct {
	CapabilityName string         `json:"capability_name"`
	Params         map[string]any `json:"params"`
	Enabled        bool           `json:"enabled"`
}

// Pipeline is an ordered sequence of steps. It carries no mutable
// state, so concurrent Execute calls against different images are
// safe.
type Pipeline struct {
	Steps []Step `json:"steps"`
}

// Result reports a single execution over one image.
type Result struct {
	Success       bool          `json:"success"`
	StepsExecuted int           `json:"steps_executed"`
	TotalTime     time.Duration `json:"-"`
	TotalTimeMS   float64       `json:"total_time_ms"`
	Errors        []string      `json:"errors"`
}

// FromJSON decodes a pipeline from its wire form.
func FromJSON(data []byte) (Pipeline, error) {
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	return p, nil
}

// Validate checks that every step's capability resolves in the
// registry, enabled or not. Unresolved names are collected by step
// index rather than short-circuited; the function has no side
// effects.
func (p Pipeline) Validate(reg *plugin.Registry) (bool, []string) {
	var errs []string
	for i, step := range p.Steps {
		if _, ok := reg.Lookup(step.CapabilityName); !ok {
			errs = append(errs, fmt.Sprintf("step %d: capability %q not found", i, step.CapabilityName))
		}
	}
	return len(errs) == 0, errs
}

// Execute runs the enabled steps in order. A failing step is recorded
// with its index and capability name and execution continues with the
// pre-failure image; the failed output is discarded, never propagated.
// StepsExecuted counts steps that were attempted. Success means the
// error list is empty.
func (p Pipeline) Execute(reg *plugin.Registry, img image.Image) (image.Image, Result) {
	current := img
	res := Result{}

	for i, step := range p.Steps {
		if !step.Enabled {
			continue
		}
		res.StepsExecuted++

		t, ok := reg.Lookup(step.CapabilityName)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("step %d (%s): capability not registered", i, step.CapabilityName))
			continue
		}

		params := plugin.NormalizeParams(t.Descriptor(), step.Params)
		start := time.Now()
		out, err := t.Apply(current, params)
		res.TotalTime += time.Since(start)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %d (%s): %v", i, step.CapabilityName, err))
			continue
		}
		current = out
	}

	res.Success = len(res.Errors) == 0
	res.TotalTimeMS = float64(res.TotalTime.Microseconds()) / 1000
	return current, res
}
