package orchestrator

import "github.com/okian/fillcheck/pkg/logger"

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithOutputDir sets where verdict.json is written. Empty disables it.
func WithOutputDir(dir string) Option {
	return func(o *Orchestrator) {
		o.outputDir = dir
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
