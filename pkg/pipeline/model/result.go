package model

import "time"

// Result is the outcome of a run: the final state snapshot plus its status.
// A failed run still exposes the outputs of the steps that completed before the failure.
type Result struct {
	StartedAt      time.Time      `json:"started_at" yaml:"started_at"`
	Err            error          `json:"-" yaml:"-"`
	State          map[string]any `json:"state" yaml:"state"`
	RunID          string         `json:"run_id" yaml:"run_id"`
	Pipeline       string         `json:"pipeline" yaml:"pipeline"`
	Status         Status         `json:"status" yaml:"status"`
	FailedStepName string         `json:"failed_step_name,omitempty" yaml:"failed_step_name,omitempty"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	Records        []StepRecord   `json:"records" yaml:"records"`
	FailedStep     int            `json:"failed_step" yaml:"failed_step"`
	Duration       time.Duration  `json:"duration" yaml:"duration"`
}

// Completed reports whether every step ran successfully.
func (r *Result) Completed() bool {
	return r != nil && r.Status == StatusCompleted
}
