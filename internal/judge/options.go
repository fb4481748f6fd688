package judge

import "github.com/okian/fillcheck/pkg/logger"

// Option applies a configuration option to the RulesJudge.
type Option func(*RulesJudge)

// WithMinSamples sets the group size below which a group is held for more
// samples.
func WithMinSamples(n int) Option {
	return func(j *RulesJudge) {
		if n > 0 {
			j.minSamples = n
		}
	}
}

// WithAdoptThresholds sets the average net and win rate a group must
// exceed to become an adopt candidate.
func WithAdoptThresholds(minAvgNet, minWinRate float64) Option {
	return func(j *RulesJudge) {
		j.minAvgNet = minAvgNet
		if minWinRate >= 0 && minWinRate <= 1 {
			j.minWinRate = minWinRate
		}
	}
}

// CommandOption applies a configuration option to the CommandJudge.
type CommandOption func(*CommandJudge)

// WithCommandLogger sets a custom logger for the command judge.
func WithCommandLogger(l logger.Logger) CommandOption {
	return func(j *CommandJudge) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithTempDir sets where the command judge stages its input table.
func WithTempDir(dir string) CommandOption {
	return func(j *CommandJudge) {
		j.tempDir = dir
	}
}
