package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// Pipeline is an ordered list of steps sharing a write-once state.
// It is read-only once assembled and can serve concurrent runs.
type Pipeline struct {
	logger    *zap.Logger
	deps      *dependencies
	seedKeys  map[string]struct{}
	outputs   map[string]string
	name      string
	opts      []model.PipelineOption
	steps     []*assembledStep
	checkDeps bool
}

// New creates a new pipeline.
func New(opts ...Option) (*Pipeline, error) {
	pipe := &Pipeline{
		logger:   zap.NewNop(),
		deps:     newDependencies(),
		seedKeys: make(map[string]struct{}),
		outputs:  make(map[string]string),
		name:     "pipeline",
	}

	for _, opt := range opts {
		opt(pipe)
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// Name returns the name of the pipeline.
func (p *Pipeline) Name() string {
	return p.name
}

// AddStep appends step to the pipeline. Every assembly error is reported here,
// before any run starts.
func (p *Pipeline) AddStep(step Step) error {
	if p == nil {
		return ErrPipelineMustBeSet
	}

	switch {
	case step.Name == "":
		return ErrStepNameMustBeSet
	case step.Name == model.StartStep.Name, step.Name == model.EndStep.Name:
		return errors.Wrapf(ErrReservedStepName, "step %s", step.Name)
	case step.Output == "":
		return errors.Wrapf(ErrOutputMustBeSet, "step %s", step.Name)
	case step.Call == nil:
		return errors.Wrapf(ErrCallMustBeSet, "step %s", step.Name)
	}

	for _, s := range p.steps {
		if s.info.Name == step.Name {
			return errors.Wrapf(ErrDuplicateStepName, "step %s", step.Name)
		}
	}

	if owner, ok := p.outputs[step.Output]; ok {
		return errors.Wrapf(ErrDuplicateKeyWrite, "key %q is written by %s and %s", step.Output, owner, step.Name)
	}

	kind := step.Kind
	if kind == "" {
		kind = model.FuncStepKind
	}

	inputs := make([]string, len(step.Inputs))
	copy(inputs, step.Inputs)

	info := &model.StepInfo{
		Index:  len(p.steps),
		Name:   step.Name,
		Kind:   kind,
		Inputs: inputs,
		Output: step.Output,
	}

	if p.checkDeps {
		if keys := p.deps.unresolved(info, p.seedKeys); len(keys) > 0 {
			return errors.Wrapf(ErrUnresolvedInput, "step %s reads %v", step.Name, keys)
		}
	}

	parents := p.deps.parents(info)
	for i, parent := range parents {
		parents[i] = cloneInfo(parent)
	}

	err := p.deps.add(info)
	if err != nil {
		return err
	}

	for _, opt := range p.opts {
		err = opt.PrepareStep(parents, cloneInfo(info))
		if err != nil {
			p.deps.remove(info)

			return errors.Wrap(err, "unable to run prepare step function")
		}
	}

	p.outputs[step.Output] = step.Name
	p.steps = append(p.steps, &assembledStep{info: info, call: step.Call})

	return nil
}

// AddSteps adds every step in order and stops on the first error.
func (p *Pipeline) AddSteps(steps ...Step) error {
	for _, step := range steps {
		err := p.AddStep(step)
		if err != nil {
			return err
		}
	}

	return nil
}

// Steps describes the assembled steps in execution order.
func (p *Pipeline) Steps() []model.StepInfo {
	infos := make([]model.StepInfo, len(p.steps))
	for i, s := range p.steps {
		infos[i] = *cloneInfo(s.info)
	}

	return infos
}

// Dependencies returns the names of every step stepName transitively reads from.
func (p *Pipeline) Dependencies(stepName string) ([]string, error) {
	return p.deps.upstream(stepName)
}

// Run executes the steps in order against a fresh state seeded with seed.
// It stops on the first error. The returned result is never nil and keeps the outputs
// of the steps completed before the failure. The error, if any, is a *StepError.
func (p *Pipeline) Run(ctx context.Context, seed map[string]any) (*model.Result, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	res := &model.Result{
		RunID:      uuid.NewString(),
		Pipeline:   p.name,
		Status:     model.StatusRunning,
		FailedStep: -1,
		StartedAt:  time.Now(),
	}
	logger := p.logger.With(zap.String("pipeline", p.name), zap.String("run_id", res.RunID))

	state := NewState()

	err := p.seed(state, seed)
	if err != nil {
		return p.finishRun(logger, res, state, &StepError{Index: -1, Err: err})
	}

	logger.Debug("run started", zap.Int("steps", len(p.steps)), zap.Strings("seed", state.Keys()))

	lastEnd := time.Now()

	for _, step := range p.steps {
		// cancellation checkpoint, never in the middle of a call
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.finishRun(logger, res, state, p.failStep(res, step, 0, errors.Wrap(ctxErr, "run cancelled")))
		}

		stepLogger := logger.With(zap.String("step", step.info.Name), zap.Int("index", step.info.Index))
		stepLogger.Debug("step started", zap.Strings("inputs", step.info.Inputs))

		handoff := time.Since(lastEnd)

		elapsed, err := step.run(ctx, state)
		if err != nil {
			stepLogger.Warn("step failed", zap.Duration("elapsed", elapsed), zap.Error(err))

			return p.finishRun(logger, res, state, p.failStep(res, step, elapsed, err))
		}

		lastEnd = time.Now()

		res.Records = append(res.Records, model.StepRecord{
			Index:    step.info.Index,
			Name:     step.info.Name,
			Status:   model.StatusCompleted,
			Duration: elapsed,
		})

		for _, opt := range p.opts {
			if hookErr := opt.OnStepOutput(cloneInfo(step.info), handoff, elapsed); hookErr != nil {
				stepLogger.Warn("pipeline option failed on step output", zap.Error(hookErr))
			}
		}

		stepLogger.Info("step completed", zap.String("output", step.info.Output), zap.Duration("elapsed", elapsed))
	}

	return p.finishRun(logger, res, state, nil)
}

func (p *Pipeline) seed(state *State, seed map[string]any) error {
	for _, key := range sortedKeys(seed) {
		if owner, ok := p.outputs[key]; ok {
			return errors.Wrapf(ErrDuplicateKeyWrite, "seed key %q is the output of step %s", key, owner)
		}

		err := state.Set(key, seed[key])
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) failStep(res *model.Result, step *assembledStep, elapsed time.Duration, err error) *StepError {
	res.Records = append(res.Records, model.StepRecord{
		Index:    step.info.Index,
		Name:     step.info.Name,
		Status:   model.StatusFailed,
		Duration: elapsed,
		Error:    err.Error(),
	})

	for _, opt := range p.opts {
		if hookErr := opt.OnStepError(cloneInfo(step.info), elapsed, err); hookErr != nil {
			p.logger.Warn("pipeline option failed on step error", zap.String("step", step.info.Name), zap.Error(hookErr))
		}
	}

	return &StepError{Index: step.info.Index, Name: step.info.Name, Err: err}
}

func (p *Pipeline) finishRun(logger *zap.Logger, res *model.Result, state *State, stepErr *StepError) (*model.Result, error) {
	res.State = state.Snapshot()
	res.Duration = time.Since(res.StartedAt)
	res.Status = model.StatusCompleted

	var err error
	if stepErr != nil {
		err = stepErr
		res.Status = model.StatusFailed
		res.FailedStep = stepErr.Index
		res.FailedStepName = stepErr.Name
		res.Err = stepErr
		res.Error = stepErr.Error()
	}

	for _, opt := range p.opts {
		if hookErr := opt.Finish(res); hookErr != nil {
			logger.Warn("unable to finish pipeline option", zap.Error(hookErr))
		}
	}

	logger.Info("run finished",
		zap.String("status", string(res.Status)),
		zap.Int("failed_step", res.FailedStep),
		zap.Duration("elapsed", res.Duration),
	)

	return res, err
}

// cloneInfo returns a copy of info sharing nothing with the assembled step.
func cloneInfo(info *model.StepInfo) *model.StepInfo {
	c := *info
	c.Inputs = make([]string, len(info.Inputs))
	copy(c.Inputs, info.Inputs)

	return &c
}
