package measure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// Collector exports runs and steps as Prometheus metrics.
// A single collector can be shared by several pipelines, each one gets its own
// option through PipelineOption.
type Collector struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	stepsTotal      *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	handoffDuration *prometheus.HistogramVec
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of pipeline runs",
			},
			[]string{"pipeline", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_run_duration_seconds",
				Help:      "Pipeline run duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"pipeline", "status"},
		),
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_steps_total",
				Help:      "Total number of executed steps",
			},
			[]string{"pipeline", "step", "kind", "status"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_step_duration_seconds",
				Help:      "Time spent in the collaborator of a step",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"pipeline", "step", "kind"},
		),
		handoffDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_step_handoff_seconds",
				Help:      "Time between the end of the previous step and the call of a step",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 10, 7),
			},
			[]string{"pipeline", "step"},
		),
	}
}

// PipelineOption returns the option feeding the collector for the named pipeline.
func (c *Collector) PipelineOption(pipelineName string) model.PipelineOption {
	return &prometheusOption{collector: c, pipeline: pipelineName}
}

type prometheusOption struct {
	collector *Collector
	pipeline  string
}

func (po *prometheusOption) New() error {
	return nil
}

func (po *prometheusOption) PrepareStep(_ []*model.StepInfo, _ *model.StepInfo) error {
	return nil
}

func (po *prometheusOption) OnStepOutput(step *model.StepInfo, handoffDuration, computationDuration time.Duration) error {
	po.collector.stepsTotal.WithLabelValues(po.pipeline, step.Name, string(step.Kind), string(model.StatusCompleted)).Inc()
	po.collector.stepDuration.WithLabelValues(po.pipeline, step.Name, string(step.Kind)).Observe(computationDuration.Seconds())
	po.collector.handoffDuration.WithLabelValues(po.pipeline, step.Name).Observe(handoffDuration.Seconds())

	return nil
}

func (po *prometheusOption) OnStepError(step *model.StepInfo, computationDuration time.Duration, _ error) error {
	po.collector.stepsTotal.WithLabelValues(po.pipeline, step.Name, string(step.Kind), string(model.StatusFailed)).Inc()
	po.collector.stepDuration.WithLabelValues(po.pipeline, step.Name, string(step.Kind)).Observe(computationDuration.Seconds())

	return nil
}

func (po *prometheusOption) Finish(result *model.Result) error {
	status := string(result.Status)
	po.collector.runsTotal.WithLabelValues(po.pipeline, status).Inc()
	po.collector.runDuration.WithLabelValues(po.pipeline, status).Observe(result.Duration.Seconds())

	return nil
}

var _ model.PipelineOption = (*prometheusOption)(nil)
