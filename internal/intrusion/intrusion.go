// Package intrusion assembles the intrusion detection and response pipeline:
// an alert is analysed into an incident report, which drives a mitigation.
package intrusion

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// State keys.
const (
	KeyAlert            = "alert"
	KeyIncidentReport   = "incident_report"
	KeyMitigationStatus = "mitigation_status"
)

// Step names.
const (
	StepAnalyze  = "analyze"
	StepMitigate = "mitigate"
)

// Name of the pipeline in results, logs and metrics.
const Name = "intrusion"

// Steps returns the two steps of the pipeline in execution order.
func Steps(analyst pipeline.Model, blocker pipeline.Tool) []pipeline.Step {
	return []pipeline.Step{
		pipeline.ModelStep(StepAnalyze, []string{KeyAlert}, KeyIncidentReport, analyst),
		pipeline.ToolStep(StepMitigate, []string{KeyIncidentReport}, KeyMitigationStatus, blocker),
	}
}

// New builds the pipeline. Extra options are applied after the defaults, so a caller
// can rename the pipeline or add hooks.
func New(analyst pipeline.Model, blocker pipeline.Tool, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if analyst == nil || blocker == nil {
		return nil, ErrCollaboratorMustBeSet
	}

	pipeOpts := append([]pipeline.Option{
		pipeline.WithName(Name),
		pipeline.WithDependencyCheck(KeyAlert),
	}, opts...)

	pipe, err := pipeline.New(pipeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create intrusion pipeline")
	}

	err = pipe.AddSteps(Steps(analyst, blocker)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to assemble intrusion pipeline")
	}

	return pipe, nil
}

// Seed returns the initial state of a run for alert.
func Seed(alert string) map[string]any {
	return map[string]any{KeyAlert: alert}
}

var ErrCollaboratorMustBeSet = errors.New("analyst and blocker must be set")
