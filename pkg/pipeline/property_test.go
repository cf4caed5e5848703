package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// buildChain builds n steps, step i reading k<i> and writing k<i+1>.
// The step at failAt returns an error, failAt out of range means no failure.
func buildChain(n, failAt int) (*pipeline.Pipeline, error) {
	pipe, err := pipeline.New(pipeline.WithDependencyCheck("k0"))
	if err != nil {
		return nil, err
	}

	for i := range n {
		name, in, out := fmt.Sprintf("step%d", i), fmt.Sprintf("k%d", i), fmt.Sprintf("k%d", i+1)

		step := upper(name, in, out)
		if i == failAt {
			step = failing(name, []string{in}, out, assert.AnError)
		}

		err = pipe.AddStep(step)
		if err != nil {
			return nil, err
		}
	}

	return pipe, nil
}

func chain(t require.TestingT, n, failAt int) *pipeline.Pipeline {
	pipe, err := buildChain(n, failAt)
	require.NoError(t, err)

	return pipe
}

func TestPropertyRunIsDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "steps")
		seed := rapid.String().Draw(rt, "seed")

		pipe := chain(rt, n, -1)

		first, err := pipe.Run(context.Background(), map[string]any{"k0": seed})
		require.NoError(rt, err)

		second, err := pipe.Run(context.Background(), map[string]any{"k0": seed})
		require.NoError(rt, err)

		assert.Equal(rt, first.State, second.State)
		assert.Len(rt, first.State, n+1)
	})
}

func TestPropertyHaltOnFailure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("a failed run keeps exactly the outputs written before the failure", prop.ForAll(
		func(n, failAt int) bool {
			failAt %= n

			pipe, err := buildChain(n, failAt)
			if err != nil {
				return false
			}

			res, err := pipe.Run(context.Background(), map[string]any{"k0": "seed"})
			if err == nil || res.FailedStep != failAt {
				return false
			}

			if len(res.State) != failAt+1 {
				return false
			}

			for i := 0; i <= failAt; i++ {
				if _, ok := res.State[fmt.Sprintf("k%d", i)]; !ok {
					return false
				}
			}

			return len(res.Records) == failAt+1
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
