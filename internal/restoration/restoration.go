// Package restoration assembles the artifact restoration pipeline: a picture of an
// artifact is identified, restored, put in its historical context and its future
// degradation is predicted.
package restoration

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// State keys.
const (
	KeyImage               = "image"
	KeyRestorationLevel    = "restoration_level"
	KeyTimeSpan            = "time_span"
	KeyIdentification      = "identification"
	KeyRestoration         = "restoration"
	KeyHistoricalContext   = "historical_context"
	KeyDegradationTimeline = "degradation_timeline"
	KeyEnvironmentalReport = "environmental_predictions"
)

// Step names.
const (
	StepVision        = "vision"
	StepRestoration   = "restoration"
	StepHistorical    = "historical"
	StepEnvironmental = "environmental"
	StepConservation  = "environmental_analysis"
)

// Restoration levels.
const (
	LevelLight  = "light"
	LevelMedium = "medium"
	LevelHeavy  = "heavy"
)

// Bounds of the prediction span, in years.
const (
	MinYears = 1
	MaxYears = 100
)

// Name of the pipeline in results, logs and metrics.
const Name = "restoration"

var (
	ErrInvalidLevel          = errors.New("restoration level must be light, medium or heavy")
	ErrInvalidYears          = errors.New("time span must be between 1 and 100 years")
	ErrEmptyImage            = errors.New("image must be set")
	ErrCollaboratorMustBeSet = errors.New("vision and historical models must be set")
)

// ValidateLevel checks a restoration level.
func ValidateLevel(level string) error {
	switch level {
	case LevelLight, LevelMedium, LevelHeavy:
		return nil
	}

	return errors.Wrapf(ErrInvalidLevel, "got %q", level)
}

// ValidateYears checks a prediction span.
func ValidateYears(years int) error {
	if years < MinYears || years > MaxYears {
		return errors.Wrapf(ErrInvalidYears, "got %d", years)
	}

	return nil
}

// Seed validates the inputs of a run and returns its initial state.
func Seed(image []byte, level string, years int) (map[string]any, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	err := ValidateLevel(level)
	if err != nil {
		return nil, err
	}

	err = ValidateYears(years)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		KeyImage:            image,
		KeyRestorationLevel: level,
		KeyTimeSpan:         years,
	}, nil
}

// Collaborators are the external services of the pipeline. Vision and Historical are
// required. Restorer, Environment and Conservator default to a Restorer without
// generator, Environment and OfflineConservator.
type Collaborators struct {
	Vision      pipeline.Model
	Historical  pipeline.Model
	Restorer    pipeline.Tool
	Environment pipeline.Tool
	Conservator pipeline.Model
}

// Steps returns the steps of the pipeline in execution order.
func Steps(c Collaborators) []pipeline.Step {
	return []pipeline.Step{
		pipeline.ModelStep(StepVision, []string{KeyImage}, KeyIdentification, c.Vision),
		pipeline.ToolStep(StepRestoration, []string{KeyImage, KeyIdentification, KeyRestorationLevel}, KeyRestoration, c.Restorer),
		pipeline.ModelStep(StepHistorical, []string{KeyIdentification}, KeyHistoricalContext, c.Historical),
		pipeline.ToolStep(StepEnvironmental, []string{KeyIdentification, KeyTimeSpan}, KeyDegradationTimeline, c.Environment),
		pipeline.ModelStep(StepConservation, []string{KeyHistoricalContext, KeyDegradationTimeline}, KeyEnvironmentalReport, c.Conservator),
	}
}

// New builds the pipeline. Extra options are applied after the defaults.
func New(c Collaborators, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if c.Vision == nil || c.Historical == nil {
		return nil, ErrCollaboratorMustBeSet
	}

	if c.Restorer == nil {
		c.Restorer = NewRestorer(nil, nil)
	}

	if c.Environment == nil {
		c.Environment = Environment{}
	}

	if c.Conservator == nil {
		c.Conservator = OfflineConservator{}
	}

	pipeOpts := append([]pipeline.Option{
		pipeline.WithName(Name),
		pipeline.WithDependencyCheck(KeyImage, KeyRestorationLevel, KeyTimeSpan),
	}, opts...)

	pipe, err := pipeline.New(pipeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create restoration pipeline")
	}

	err = pipe.AddSteps(Steps(c)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to assemble restoration pipeline")
	}

	return pipe, nil
}
