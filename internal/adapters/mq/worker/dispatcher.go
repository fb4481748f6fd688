package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/okian/fillcheck/internal/adapters/mq/queue"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/tickindex"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/okian/fillcheck/pkg/metrics"
)

// Dispatcher fans a labeling batch out to a fixed pool of workers.
type Dispatcher struct {
	labeler Labeler
	workers int
	logger  logger.Logger
}

// NewDispatcher creates a dispatcher. The pool defaults to one worker per
// CPU.
func NewDispatcher(l Labeler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		labeler: l,
		workers: runtime.NumCPU(),
		logger:  logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int { return d.workers }

// Result is the reassembled output of one batch.
type Result struct {
	// Labels holds one label per input event in input order. Entries of
	// failed partitions are zero labels carrying only their index.
	Labels    []model.Label
	Succeeded []int
	Failed    []*PartitionError
}

// Err joins every partition failure, or returns nil when all succeeded.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return fmt.Errorf("%w: %d of %d partitions: %w",
		ErrPartitionFailed, len(r.Failed), len(r.Failed)+len(r.Succeeded), errors.Join(errs...))
}

// Dispatch labels events against ix. Only an invalid batch is returned as
// an error; partition failures are reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, ix *tickindex.Index, events []model.CandidateEvent) (*Result, error) {
	if err := validateBatch(ix, events); err != nil {
		return nil, err
	}
	res := &Result{Labels: make([]model.Label, len(events))}
	if len(events) == 0 {
		return res, nil
	}

	parts := Split(events, d.workers)
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(parts)))
	for _, p := range parts {
		if err := q.Enqueue(ctx, p); err != nil {
			return nil, fmt.Errorf("enqueue partition %d: %w", p.ID, err)
		}
	}
	_ = q.Close()

	results := make(chan outcome, len(parts))

	var wg sync.WaitGroup
	for i := 0; i < len(parts); i++ {
		w := newInMemoryWorker(q, ix, d.labeler, results,
			WithLogger(d.logger),
			WithName("worker-"+strconv.Itoa(i)),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	metrics.UpdateWorkerActiveCount(len(parts))
	wg.Wait()
	metrics.UpdateWorkerActiveCount(0)
	close(results)

	done := make(map[int]bool, len(parts))
	for o := range results {
		done[o.partition.ID] = true
		d.collect(ctx, res, o)
	}
	for _, p := range parts {
		if !done[p.ID] {
			err := ctx.Err()
			if err == nil {
				err = errors.New("partition was not processed")
			}
			d.collect(ctx, res, outcome{partition: p, err: err})
		}
	}

	sort.Ints(res.Succeeded)
	sort.Slice(res.Failed, func(a, b int) bool { return res.Failed[a].Partition < res.Failed[b].Partition })
	metrics.RecordEventsLabeled(len(events) - failedEvents(res.Failed))
	return res, nil
}

func (d *Dispatcher) collect(ctx context.Context, res *Result, o outcome) {
	p := o.partition
	if o.err != nil {
		metrics.RecordPartition("failed")
		pe := &PartitionError{Partition: p.ID, Start: p.Start, End: p.Start + len(p.Events), Err: o.err}
		d.logger.Error(ctx, "partition failed", logger.Int("partition", p.ID), logger.Error(o.err))
		res.Failed = append(res.Failed, pe)
		for i, ev := range p.Events {
			res.Labels[p.Start+i] = model.Label{Index: ev.Index}
		}
		return
	}
	metrics.RecordPartition("ok")
	copy(res.Labels[p.Start:], o.labels)
	res.Succeeded = append(res.Succeeded, p.ID)
}

func failedEvents(failed []*PartitionError) int {
	n := 0
	for _, f := range failed {
		n += f.End - f.Start
	}
	return n
}

// Split cuts events into at most workers contiguous partitions whose sizes
// differ by at most one.
func Split(events []model.CandidateEvent, workers int) []queue.Partition {
	n := len(events)
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	parts := make([]queue.Partition, 0, workers)
	size, extra := n/workers, n%workers
	start := 0
	for id := 0; id < workers; id++ {
		end := start + size
		if id < extra {
			end++
		}
		chunk := make([]model.CandidateEvent, end-start)
		copy(chunk, events[start:end])
		parts = append(parts, queue.Partition{ID: id, Start: start, Events: chunk})
		start = end
	}
	return parts
}

func validateBatch(ix *tickindex.Index, events []model.CandidateEvent) error {
	if ix == nil {
		return fmt.Errorf("%w: nil tick index", ErrInvalidBatch)
	}
	seen := make(map[int]struct{}, len(events))
	for pos, ev := range events {
		if ev.Index < 0 {
			return fmt.Errorf("%w: event %d has negative index %d", ErrInvalidBatch, pos, ev.Index)
		}
		if _, dup := seen[ev.Index]; dup {
			return fmt.Errorf("%w: duplicate index %d at position %d", ErrInvalidBatch, ev.Index, pos)
		}
		seen[ev.Index] = struct{}{}
	}
	return nil
}
