package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	order []string
	mu    sync.RWMutex
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStep.Name)
	pm.AddMetric(model.EndStep.Name)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_ []*model.StepInfo, step *model.StepInfo) error {
	pm.AddMetric(step.Name)

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.order = append(pm.order, step.Name)

	return nil
}

// previous returns the step run right before the step at index.
func (pm *pipelineMeasure) previous(index int) string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if index <= 0 || index > len(pm.order) {
		return model.StartStep.Name
	}

	return pm.order[index-1]
}

func (pm *pipelineMeasure) OnStepOutput(step *model.StepInfo, handoffDuration, computationDuration time.Duration) error {
	mt := pm.AddMetric(step.Name)
	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(pm.previous(step.Index), handoffDuration)

	return nil
}

func (pm *pipelineMeasure) OnStepError(step *model.StepInfo, _ time.Duration, _ error) error {
	pm.AddMetric(step.Name).AddFailure()

	return nil
}

func (pm *pipelineMeasure) Finish(result *model.Result) error {
	end := pm.AddMetric(model.EndStep.Name)
	end.SetTotalDuration(result.Duration)

	if result.Completed() {
		end.AddDuration(result.Duration)
	} else {
		end.AddFailure()
	}

	return nil
}

// PipelineMeasure records the durations of every step of a pipeline into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
