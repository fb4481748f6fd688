package phase

import (
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithFilters sets the event selection filters.
func WithFilters(f selection.Filters) Option {
	return func(r *Runner) {
		r.filters = f
	}
}

// WithOutputDir sets the artifact root. An empty root disables artifacts.
func WithOutputDir(dir string) Option {
	return func(r *Runner) {
		r.outputDir = dir
	}
}

// WithFileConcurrency bounds how many input files are labeled at once.
func WithFileConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.fileConcurrency = n
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
