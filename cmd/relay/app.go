package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/askiada/go-relay/internal/config"
	"github.com/askiada/go-relay/internal/intrusion"
	"github.com/askiada/go-relay/internal/llm"
	"github.com/askiada/go-relay/internal/logging"
	"github.com/askiada/go-relay/internal/restoration"
	"github.com/askiada/go-relay/pkg/pipeline"
	"github.com/askiada/go-relay/pkg/pipeline/drawer"
	"github.com/askiada/go-relay/pkg/pipeline/measure"
)

const metricsNamespace = "relay"

// app holds what every command needs: configuration, logger and metrics.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *measure.Collector
	measures  map[string]measure.Measure
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		collector: measure.NewCollector(registry, metricsNamespace),
		measures:  make(map[string]measure.Measure),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// pipelineOptions returns the logger and the hooks of the named pipeline.
// The DOT drawing is only produced when a drawing directory is configured.
func (a *app) pipelineOptions(name string) ([]pipeline.Option, error) {
	msr := measure.NewDefaultMeasure()
	a.measures[name] = msr

	hooks := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithOptions(a.collector.PipelineOption(name), measure.PipelineMeasure(msr)),
	}

	if a.cfg.Pipeline.DrawDir != "" {
		err := os.MkdirAll(a.cfg.Pipeline.DrawDir, 0o755)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create drawing directory")
		}

		hooks = append(hooks, pipeline.WithOptions(
			drawer.PipelineDrawer(drawer.NewDOTDrawer(filepath.Join(a.cfg.Pipeline.DrawDir, name+".dot")), msr),
		))
	}

	return hooks, nil
}

// logSlowest reports the slowest step of the named pipeline over the runs of the command.
func (a *app) logSlowest(name string) {
	msr, ok := a.measures[name]
	if !ok {
		return
	}

	slowest := measure.Slowest(msr)
	if len(slowest) == 0 {
		return
	}

	a.logger.Debug("slowest step",
		zap.String("pipeline", name),
		zap.String("step", slowest[0].Name),
		zap.Duration("avg", slowest[0].Average),
		zap.Int64("runs", slowest[0].Count),
	)
}

func (a *app) chatModel(ctx context.Context, name, system, tmpl string) (pipeline.Model, error) {
	mc := a.cfg.Model

	backend, err := llm.NewProvider(ctx, llm.ProviderConfig{
		Provider:    mc.Provider,
		BaseURL:     mc.BaseURL,
		APIKey:      mc.APIKey,
		Model:       mc.Name,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
		Timeout:     mc.Timeout,
	})
	if err != nil {
		return nil, err
	}

	cm, err := llm.NewChatModel(backend,
		llm.WithName(name),
		llm.WithSystemPrompt(system),
		llm.WithTemplate(tmpl),
		llm.WithTemperature(mc.Temperature),
		llm.WithTimeout(mc.Timeout),
		llm.WithRetries(mc.Retries, llm.DefaultBackoff),
		llm.WithRateLimit(mc.RequestsPerSecond),
		llm.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

const (
	analystSystemPrompt = "You are a security analyst. Classify the alert and name the offending address."
	analystPrompt       = `Alert:
{{.alert}}

Answer with one line: "incident: <brute force|suspicious activity|none>, ip=<address or unknown>".`
)

func (a *app) intrusionPipeline(ctx context.Context, blocker *intrusion.Blocker) (*pipeline.Pipeline, error) {
	var analyst pipeline.Model = intrusion.Analyst{}

	if a.cfg.Model.Provider != config.ProviderOffline {
		var err error

		analyst, err = a.chatModel(ctx, intrusion.StepAnalyze, analystSystemPrompt, analystPrompt)
		if err != nil {
			return nil, err
		}
	}

	opts, err := a.pipelineOptions(intrusion.Name)
	if err != nil {
		return nil, err
	}

	return intrusion.New(analyst, blocker, opts...)
}

func (a *app) restorationPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	collaborators := restoration.Collaborators{
		Vision:     restoration.OfflineVision{},
		Historical: restoration.OfflineHistorian{},
		Restorer:   restoration.NewRestorer(nil, a.logger),
	}

	if a.cfg.Model.Provider != config.ProviderOffline {
		vision, err := a.chatModel(ctx, restoration.StepVision, restoration.VisionSystemPrompt, restoration.VisionPrompt)
		if err != nil {
			return nil, err
		}

		historical, err := a.chatModel(ctx, restoration.StepHistorical, restoration.HistoricalSystemPrompt, restoration.HistoricalPrompt)
		if err != nil {
			return nil, err
		}

		conservator, err := a.chatModel(ctx, restoration.StepConservation, restoration.EnvironmentalSystemPrompt, restoration.EnvironmentalPrompt)
		if err != nil {
			return nil, err
		}

		collaborators.Vision = vision
		collaborators.Historical = historical
		collaborators.Conservator = conservator
	}

	opts, err := a.pipelineOptions(restoration.Name)
	if err != nil {
		return nil, err
	}

	return restoration.New(collaborators, opts...)
}
