// Package phase runs one validation phase: read every input window, label
// the selected events, merge the tables and judge the result.
package phase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fillcheck/internal/adapters/artifact"
	"github.com/okian/fillcheck/internal/adapters/csvtable"
	"github.com/okian/fillcheck/internal/adapters/ingest"
	"github.com/okian/fillcheck/internal/adapters/mq/worker"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/internal/domain/tickindex"
	"github.com/okian/fillcheck/internal/judge"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/okian/fillcheck/pkg/metrics"
)

// Phase names.
const (
	Train    = "train"
	Validate = "validate"
	Forward  = "forward"
)

const defaultFileConcurrency = 2

// Summary is the per-phase traceability record.
type Summary struct {
	Phase         string `json:"phase"`
	RunID         string `json:"runId"`
	Files         int    `json:"files"`
	Chunks        int    `json:"chunks"`
	Events        int    `json:"events"`
	InvalidLabels int    `json:"invalidLabels"`
	MakerFills    int    `json:"makerFills"`
}

// Result is the outcome of one phase run.
type Result struct {
	Phase     string
	RunID     string
	Dir       string // artifact directory, empty when artifacts are off
	Table     *csvtable.Table
	Judgement *model.Judgement
	Summary   Summary
	Selection selection.Stats
}

type fileOutcome struct {
	table  *csvtable.Table
	chunks int
	stats  selection.Stats
	labels []model.Label
}

// Runner executes phases. It is safe for concurrent use.
type Runner struct {
	reader          *ingest.Reader
	dispatcher      *worker.Dispatcher
	judge           judge.Judge
	filters         selection.Filters
	outputDir       string
	fileConcurrency int
	logger          logger.Logger
}

// NewRunner creates a Runner from its collaborators.
func NewRunner(reader *ingest.Reader, dispatcher *worker.Dispatcher, j judge.Judge, opts ...Option) *Runner {
	r := &Runner{
		reader:          reader,
		dispatcher:      dispatcher,
		judge:           j,
		filters:         selection.Filters{},
		fileConcurrency: defaultFileConcurrency,
		logger:          logger.Get().Named("phase"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of the runner with opts applied.
func (r *Runner) With(opts ...Option) *Runner {
	c := *r
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Filters returns the selection filters in effect.
func (r *Runner) Filters() selection.Filters { return r.filters }

// Run executes phase name over files. Files are labeled concurrently and
// merged in file-list order. Any failure fails the whole phase.
func (r *Runner) Run(ctx context.Context, name string, files []string) (*Result, error) {
	start := time.Now()
	res, err := r.run(ctx, name, files)
	metrics.RecordPhaseDuration(name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPhase(name, "failed")
		metrics.RecordErrorByComponent("phase", name)
		r.logger.Error(ctx, "phase failed", logger.String("phase", name), logger.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrPhaseFailed, name, err)
	}
	metrics.RecordPhase(name, "ok")
	r.logger.Info(ctx, "phase finished",
		logger.String("phase", name),
		logger.String("run_id", res.RunID),
		logger.Int("files", res.Summary.Files),
		logger.Int("events", res.Summary.Events),
		logger.Int("candidates", len(res.Judgement.Candidates)),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, name string, files []string) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	res := &Result{Phase: name, RunID: RunIDFromContext(ctx)}
	if r.outputDir != "" {
		res.Dir = artifact.PhaseDir(r.outputDir, res.RunID, name)
	}

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fileConcurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			out, err := r.labelFile(gctx, path)
			if err != nil {
				return err
			}
			if res.Dir != "" {
				if err := out.table.WriteFile(artifact.FileTable(res.Dir, i+1, path)); err != nil {
					return err
				}
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make([]*csvtable.Table, len(outcomes))
	res.Summary = Summary{Phase: name, RunID: res.RunID, Files: len(files)}
	for i, o := range outcomes {
		tables[i] = o.table
		res.Summary.Chunks += o.chunks
		res.Summary.Events += len(o.labels)
		res.Selection = addStats(res.Selection, o.stats)
		for _, l := range o.labels {
			if !l.Net30Pes.Valid {
				res.Summary.InvalidLabels++
				metrics.RecordInvalidLabel()
			}
			if l.MakerFilled.Valid && l.MakerFilled.V == 1 {
				res.Summary.MakerFills++
				metrics.RecordMakerFill()
			}
		}
	}

	merged, err := csvtable.Merge(tables...)
	if err != nil {
		return nil, fmt.Errorf("merge tables: %w", err)
	}
	res.Table = merged

	jd, err := r.judge.Evaluate(ctx, merged)
	if err != nil {
		return nil, err
	}
	res.Judgement = jd

	if res.Dir != "" {
		if err := r.writeArtifacts(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) labelFile(ctx context.Context, path string) (fileOutcome, error) {
	w, err := r.reader.ReadFile(ctx, path)
	if err != nil {
		return fileOutcome{}, err
	}
	ix, err := tickindex.New(w.Mids, w.Trades)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("%s: %w", path, err)
	}

	sel := selection.Select(ctx, ix, w.Events, r.filters)
	dres, err := r.dispatcher.Dispatch(ctx, ix, sel.Jobs)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := dres.Err(); err != nil {
		return fileOutcome{}, fmt.Errorf("%s: %w", path, err)
	}

	labeled := make([]model.LabeledEvent, len(sel.Events))
	for i := range sel.Events {
		labeled[i] = model.LabeledEvent{Event: sel.Events[i], Label: dres.Labels[i]}
	}
	r.logger.Info(ctx, "file labeled",
		logger.String("file", path),
		logger.Int("events", len(labeled)),
		logger.Int("dropped", sel.Stats.Input-sel.Stats.Kept),
	)
	return fileOutcome{
		table:  csvtable.EncodeLabeled(labeled),
		chunks: len(dres.Succeeded),
		stats:  sel.Stats,
		labels: dres.Labels,
	}, nil
}

func (r *Runner) writeArtifacts(res *Result) error {
	if err := res.Table.WriteFile(filepath.Join(res.Dir, artifact.EventsFile)); err != nil {
		return err
	}
	if err := artifact.WriteJSON(filepath.Join(res.Dir, artifact.SummaryFile), res.Summary); err != nil {
		return err
	}
	return artifact.WriteJSON(filepath.Join(res.Dir, artifact.JudgementFile), res.Judgement)
}

func addStats(a, b selection.Stats) selection.Stats {
	return selection.Stats{
		Input:      a.Input + b.Input,
		Duplicates: a.Duplicates + b.Duplicates,
		LowScore:   a.LowScore + b.LowScore,
		WideSpread: a.WideSpread + b.WideSpread,
		Cooldown:   a.Cooldown + b.Cooldown,
		Kept:       a.Kept + b.Kept,
	}
}
