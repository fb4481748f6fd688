// Package service wires the fillcheck components from configuration and
// implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/fillcheck/internal/adapters/ingest"
	"github.com/okian/fillcheck/internal/adapters/mq/worker"
	"github.com/okian/fillcheck/internal/config"
	"github.com/okian/fillcheck/internal/domain/labeler"
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/internal/judge"
	"github.com/okian/fillcheck/internal/orchestrator"
	"github.com/okian/fillcheck/internal/phase"
	"github.com/okian/fillcheck/internal/shadow"
	"github.com/okian/fillcheck/internal/sweep"
	"github.com/okian/fillcheck/pkg/logger"
)

// Service runs validations, single phases, sweeps and shadow summaries and
// remembers what it ran for the status API.
type Service struct {
	mu sync.RWMutex

	cfg          *config.Config
	judge        judge.Judge
	runner       *phase.Runner
	orchestrator *orchestrator.Orchestrator
	sweeper      *sweep.Sweeper
	shadow       *shadow.Summarizer

	// State
	startedAt   time.Time
	lastVerdict *orchestrator.Verdict
	validations int
	adopted     int
	failures    map[string]int
	phases      int
	sweeps      int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJudge replaces the judge chosen from configuration.
func WithJudge(j judge.Judge) Option {
	return func(s *Service) {
		if j != nil {
			s.judge = j
		}
	}
}

// New wires a Service from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:       cfg,
		startedAt: time.Now().UTC(),
		failures:  make(map[string]int),
		logger:    logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.judge == nil {
		s.judge = judgeFromConfig(cfg)
	}

	lab := labeler.New(labeler.WithNotionalUSD(cfg.NotionalUSD), labeler.WithTakerBps(cfg.TakerBps))
	s.runner = phase.NewRunner(
		ingest.NewReader(ingest.WithSortTicks(cfg.SortTicks)),
		worker.NewDispatcher(lab, worker.WithWorkerCount(cfg.WorkerCount)),
		s.judge,
		phase.WithFilters(Filters(cfg)),
		phase.WithOutputDir(cfg.OutputDir),
		phase.WithFileConcurrency(cfg.FileConcurrency),
	)
	s.orchestrator = orchestrator.New(s.runner, orchestrator.WithOutputDir(cfg.OutputDir))
	s.sweeper = sweep.New(s.runner, sweep.WithOutputDir(cfg.OutputDir))
	s.shadow = shadow.New(shadow.WithNotionalUSD(cfg.NotionalUSD), shadow.WithTakerBps(cfg.TakerBps))

	s.logger.Info(context.Background(), "service wired",
		logger.Int("workers", cfg.WorkerCount),
		logger.Int("file_concurrency", cfg.FileConcurrency),
		logger.Float64("notional_usd", cfg.NotionalUSD),
		logger.Float64("taker_bps", cfg.TakerBps),
		logger.String("output_dir", cfg.OutputDir),
		logger.Bool("external_judge", cfg.JudgeCommand != ""),
	)
	return s, nil
}

// Filters maps configuration onto selection filters.
func Filters(cfg *config.Config) selection.Filters {
	return selection.Filters{
		MinScore:     cfg.MinScore,
		MaxSpreadBps: cfg.MaxSpreadBps,
		CooldownMs:   cfg.CooldownMs,
		HorizonMs:    cfg.HorizonMs,
		Sort:         cfg.SortInputs,
	}
}

func judgeFromConfig(cfg *config.Config) judge.Judge {
	if fields := strings.Fields(cfg.JudgeCommand); len(fields) > 0 {
		return judge.NewCommandJudge(fields[0], fields[1:])
	}
	return judge.NewRulesJudge(
		judge.WithMinSamples(cfg.JudgeMinSamples),
		judge.WithAdoptThresholds(cfg.JudgeAdoptMinAvgNet, cfg.JudgeAdoptMinWinRate),
	)
}

// Config returns the configuration the service was wired with.
func (s *Service) Config() *config.Config { return s.cfg }

// Validate runs the multi-phase validation and records its verdict.
func (s *Service) Validate(ctx context.Context, in orchestrator.Inputs) (*orchestrator.Verdict, error) {
	v, err := s.orchestrator.Run(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations++
	if v != nil {
		s.lastVerdict = v
		if v.Failure != nil {
			s.failures[string(v.Failure.Kind)]++
		} else {
			s.adopted += len(v.Adopted)
		}
	}
	return v, err
}

// RunPhase runs a single phase outside the orchestrator.
func (s *Service) RunPhase(ctx context.Context, name string, files []string) (*phase.Result, error) {
	switch name {
	case phase.Train, phase.Validate, phase.Forward:
	default:
		return nil, fmt.Errorf("%w: unknown phase %q", phase.ErrPhaseFailed, name)
	}
	res, err := s.runner.Run(ctx, name, files)
	s.mu.Lock()
	s.phases++
	s.mu.Unlock()
	return res, err
}

// Sweep grid-searches the selection filters over train files.
func (s *Service) Sweep(ctx context.Context, files []string, grid sweep.Grid) (*sweep.Report, error) {
	rep, err := s.sweeper.Run(ctx, files, grid)
	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()
	return rep, err
}

// Shadow summarizes a file of shadow-live intents.
func (s *Service) Shadow(ctx context.Context, path string) (*shadow.Report, error) {
	intents, err := shadow.ReadIntentsFile(path)
	if err != nil {
		return nil, err
	}
	return s.shadow.Summarize(ctx, intents), nil
}

// LastVerdict returns the most recent verdict, if any.
func (s *Service) LastVerdict(_ context.Context) (*orchestrator.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastVerdict, s.lastVerdict != nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failures := make(map[string]int, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	stats := map[string]interface{}{
		"startedAt":       s.startedAt,
		"uptimeSeconds":   int64(time.Since(s.startedAt).Seconds()),
		"workerCount":     s.cfg.WorkerCount,
		"fileConcurrency": s.cfg.FileConcurrency,
		"validations":     s.validations,
		"adopted":         s.adopted,
		"failures":        failures,
		"phases":          s.phases,
		"sweeps":          s.sweeps,
	}
	if s.lastVerdict != nil {
		stats["lastRunId"] = s.lastVerdict.RunID
		stats["lastStatus"] = s.lastVerdict.Status
	}
	return stats
}
