package pipeline

import (
	"go.uber.org/zap"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// Option configures a pipeline.
type Option func(p *Pipeline)

// WithName sets the name reported in results and logs.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOptions registers pipeline options (hooks).
func WithOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}

// WithDependencyCheck makes AddStep reject a step reading a key that is neither
// one of seedKeys nor the output of an earlier step.
func WithDependencyCheck(seedKeys ...string) Option {
	return func(p *Pipeline) {
		p.checkDeps = true
		for _, key := range seedKeys {
			p.seedKeys[key] = struct{}{}
		}
	}
}
