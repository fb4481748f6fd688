// Package config defines fillcheck configuration and its loading.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Addr is the status HTTP listen address, e.g. ":9090". Empty disables it.
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`

	// OutputDir is the artifact root.
	OutputDir string `koanf:"output_dir" validate:"required"`

	// WorkerCount sets the dispatcher pool size.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// FileConcurrency bounds how many input files a phase labels at once.
	FileConcurrency int `koanf:"file_concurrency" validate:"gte=1"`

	// NotionalUSD is the fixed position size of every labeled event.
	NotionalUSD float64 `koanf:"notional_usd" validate:"gt=0"`

	// TakerBps is the per-side taker fee; round trips pay it twice.
	TakerBps float64 `koanf:"taker_bps" validate:"gte=0"`

	// HorizonMs is the forward horizon used to derive a missing move30.
	HorizonMs int64 `koanf:"horizon_ms" validate:"gt=0"`

	CooldownMs   int64   `koanf:"cooldown_ms" validate:"gte=0"`
	MinScore     float64 `koanf:"min_score"`
	MaxSpreadBps float64 `koanf:"max_spread_bps" validate:"gte=0"`

	// SortInputs reorders events by timestamp before selection; off keeps
	// each file's row order.
	SortInputs bool `koanf:"sort_inputs"`

	// SortTicks sorts tick rows by timestamp at load.
	SortTicks bool `koanf:"sort_ticks"`

	JudgeMinSamples      int     `koanf:"judge_min_samples" validate:"gte=1"`
	JudgeAdoptMinAvgNet  float64 `koanf:"judge_adopt_min_avg_net"`
	JudgeAdoptMinWinRate float64 `koanf:"judge_adopt_min_win_rate" validate:"gte=0,lte=1"`

	// JudgeCommand replaces the built-in judge with an external program.
	JudgeCommand string `koanf:"judge_command"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		OutputDir:            "./artifacts",
		WorkerCount:          runtime.NumCPU(),
		FileConcurrency:      2,
		NotionalUSD:          1000,
		TakerBps:             5,
		HorizonMs:            30_000,
		SortTicks:            true,
		JudgeMinSamples:      20,
		JudgeAdoptMinWinRate: 0.5,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
