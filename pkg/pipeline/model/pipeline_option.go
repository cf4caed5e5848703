package model

import "time"

// PipelineOption defines the interface for pipeline options.
// A pipeline is read-only once assembled and may serve concurrent runs,
// so implementations must be safe for concurrent use.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStepOption

	// Finish runs after every run, completed or failed.
	Finish(result *Result) error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
type pipelineStepOption interface {
	// PrepareStep runs when the step is added to the pipeline.
	// parentSteps are the steps producing the inputs of the step, StartStep for seed keys.
	PrepareStep(parentSteps []*StepInfo, step *StepInfo) error
	// OnStepOutput runs after the step wrote its output.
	// handoffDuration is the time spent between the end of the previous step and the call,
	// computationDuration the time spent in the collaborator.
	OnStepOutput(step *StepInfo, handoffDuration, computationDuration time.Duration) error
	// OnStepError runs when the step failed.
	OnStepError(step *StepInfo, computationDuration time.Duration, err error) error
}
