package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// RunAll runs the pipeline once per seed, at most limit runs at a time.
// Runs are independent: each one has its own state and is sequential on its own.
// A failed run does not stop the others; results are returned in seed order and
// the failure is only visible in the corresponding result.
// The returned error is only set when ctx is cancelled before every run started;
// the results of the runs that never started are nil.
func RunAll(ctx context.Context, pipe *Pipeline, seeds []map[string]any, limit int) ([]*model.Result, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if limit <= 0 {
		limit = 1
	}

	results := make([]*model.Result, len(seeds))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(limit)

	for idx, seed := range seeds {
		if err := dCtx.Err(); err != nil {
			break
		}

		errGrp.Go(func() error {
			// the failure is kept in the result, it must not cancel the sibling runs
			res, _ := pipe.Run(dCtx, seed)
			results[idx] = res

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return results, err
	}

	for _, res := range results {
		if res == nil {
			return results, errors.Wrap(ctx.Err(), "runs not started")
		}
	}

	return results, nil
}
