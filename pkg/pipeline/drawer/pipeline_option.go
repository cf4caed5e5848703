package drawer

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline/measure"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m       measure.Measure
	outputs map[string]string
	steps   []string
	mu      sync.Mutex
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStep(model.StartStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = pd.AddStep(model.EndStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStep(parentSteps []*model.StepInfo, step *model.StepInfo) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}

	for _, parent := range parentSteps {
		err = pd.AddLink(parent.Name, step.Name, pd.handedOver(parent.Name, step))
		if err != nil {
			return err
		}
	}

	if len(pd.steps) > 0 {
		last := pd.steps[len(pd.steps)-1]
		// the previous step is not always a parent, keep the execution order visible
		if !isParent(parentSteps, last) {
			err = pd.AddLink(last, step.Name, "")
			if err != nil {
				return err
			}
		}
	}

	pd.outputs[step.Name] = step.Output
	pd.steps = append(pd.steps, step.Name)

	return nil
}

// handedOver returns the keys of step produced by parent.
func (pd *pipelineDrawer) handedOver(parent string, step *model.StepInfo) string {
	var keys []string

	for _, key := range step.Inputs {
		producer := model.StartStep.Name

		for name, output := range pd.outputs {
			if output == key {
				producer = name

				break
			}
		}

		if producer == parent {
			keys = append(keys, key)
		}
	}

	return strings.Join(keys, ", ")
}

func isParent(parents []*model.StepInfo, name string) bool {
	for _, parent := range parents {
		if parent.Name == name {
			return true
		}
	}

	return false
}

func (pd *pipelineDrawer) OnStepOutput(_ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnStepError(_ *model.StepInfo, _ time.Duration, _ error) error {
	return nil
}

// Finish colours the steps with the status they had in result and draws the graph.
func (pd *pipelineDrawer) Finish(result *model.Result) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	if len(pd.steps) > 0 {
		err := pd.AddLink(pd.steps[len(pd.steps)-1], model.EndStep.Name, "")
		if err != nil {
			return err
		}
	}

	statuses := make(map[string]model.Status, len(result.Records))
	for _, record := range result.Records {
		statuses[record.Name] = record.Status
	}

	for _, name := range pd.steps {
		status, ok := statuses[name]
		if !ok {
			status = model.StatusPending
		}

		err := pd.SetStatus(name, status)
		if err != nil {
			return errors.Wrap(err, "unable to set step status")
		}
	}

	err := pd.SetStatus(model.EndStep.Name, result.Status)
	if err != nil {
		return errors.Wrap(err, "unable to set end status")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.SetTotalTime(model.EndStep.Name, result.Duration)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the pipeline after every run. measure is optional.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure, outputs: make(map[string]string)}
}
