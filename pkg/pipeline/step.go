package pipeline

import (
	"context"
	"time"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// CallFunc is the external call of a step. It only sees the declared inputs of the step.
type CallFunc func(ctx context.Context, in *View) (any, error)

// Model is an inference endpoint. The prompt context holds the declared inputs of the step.
type Model interface {
	Infer(ctx context.Context, prompt map[string]any) (any, error)
}

// Tool is an action invoked with the declared inputs of the step as arguments.
type Tool interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// ModelFunc is an adapter to use an ordinary function as a Model.
type ModelFunc func(ctx context.Context, prompt map[string]any) (any, error)

func (f ModelFunc) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	return f(ctx, prompt)
}

// ToolFunc is an adapter to use an ordinary function as a Tool.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

func (f ToolFunc) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// Step is one stage of a pipeline: a name, the keys it reads, the key it writes
// and the external call producing that key.
type Step struct {
	Call   CallFunc
	Kind   model.StepKind
	Name   string
	Output string
	Inputs []string
}

// ModelStep builds a step calling m with its declared inputs as prompt context.
func ModelStep(name string, inputs []string, output string, m Model) Step {
	return Step{
		Kind:   model.ModelStepKind,
		Name:   name,
		Inputs: inputs,
		Output: output,
		Call: func(ctx context.Context, in *View) (any, error) {
			out, err := m.Infer(ctx, in.Map())

			return out, NewServiceError(name, err)
		},
	}
}

// ToolStep builds a step invoking t with its declared inputs as arguments.
func ToolStep(name string, inputs []string, output string, t Tool) Step {
	return Step{
		Kind:   model.ToolStepKind,
		Name:   name,
		Inputs: inputs,
		Output: output,
		Call: func(ctx context.Context, in *View) (any, error) {
			out, err := t.Invoke(ctx, in.Map())

			return out, NewServiceError(name, err)
		},
	}
}

type assembledStep struct {
	call CallFunc
	info *model.StepInfo
}

// run executes a single step against the state: narrowed view, one call, one write.
func (s *assembledStep) run(ctx context.Context, state *State) (time.Duration, error) {
	view, err := state.View(s.info.Name, s.info.Inputs...)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	out, err := s.call(ctx, view)
	elapsed := time.Since(start)

	if err != nil {
		return elapsed, err
	}

	return elapsed, state.Set(s.info.Output, out)
}
