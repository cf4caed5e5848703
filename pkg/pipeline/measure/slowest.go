package measure

import (
	"sort"
	"time"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// StepTiming is the average computation time of a step over the recorded runs.
type StepTiming struct {
	Name    string
	Average time.Duration
	Count   int64
}

// Slowest returns the executed steps, slowest average first.
// The start and end steps are left out, as are steps that never completed.
func Slowest(msr Measure) []StepTiming {
	var timings []StepTiming

	for name, mt := range msr.AllMetrics() {
		if name == model.StartStep.Name || name == model.EndStep.Name || mt.Count() == 0 {
			continue
		}

		timings = append(timings, StepTiming{Name: name, Average: mt.AVGDuration(), Count: mt.Count()})
	}

	sort.Slice(timings, func(i, j int) bool {
		if timings[i].Average == timings[j].Average {
			return timings[i].Name < timings[j].Name
		}

		return timings[i].Average > timings[j].Average
	})

	return timings
}
