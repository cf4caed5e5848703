package drawer

import (
	"time"

	"github.com/askiada/go-relay/pkg/pipeline/measure"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStep adds a step to the pipeline drawer.
	AddStep(stepName string) error
	// AddLink adds a link between parent and children steps, labelled with the keys handed over.
	AddLink(parentStepName, childrenStepName, label string) error
	// SetStatus colours the step according to its status in the last run.
	SetStatus(stepName string, status model.Status) error
	// SetTotalTime sets the total time for the step.
	SetTotalTime(stepName string, total time.Duration) error
	// AddMeasure adds a measure to the pipeline drawer.
	AddMeasure(measure measure.Measure) error
	// Draw creates a file with the pipeline graph.
	Draw() error
}
