package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/okian/fillcheck/internal/adapters/mq/queue"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/tickindex"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/okian/fillcheck/pkg/metrics"
)

// Labeler computes the label of one candidate event.
type Labeler interface {
	Label(ix *tickindex.Index, ev model.CandidateEvent) model.Label
}

// Queue defines how workers receive partitions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Partition
}

// outcome is what a worker reports for one partition.
type outcome struct {
	partition queue.Partition
	labels    []model.Label
	err       error
}

// InMemoryWorker labels partitions against the index it was started with.
// The index and labeler are never mutated after startup.
type InMemoryWorker struct {
	queue   Queue
	ix      *tickindex.Index
	labeler Labeler
	results chan<- outcome
	name    string

	logger logger.Logger
}

// newInMemoryWorker creates a worker consuming q and reporting to results.
func newInMemoryWorker(q Queue, ix *tickindex.Index, l Labeler, results chan<- outcome, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		ix:      ix,
		labeler: l,
		results: results,
		name:    "worker",
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run labels partitions until the queue is drained or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	partitions := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-partitions:
			if !ok {
				return
			}
			labels, err := w.processPartition(ctx, p)
			w.results <- outcome{partition: p, labels: labels, err: err}
		}
	}
}

// processPartition labels one partition, turning a panic into an error so
// sibling workers keep running.
func (w *InMemoryWorker) processPartition(ctx context.Context, p queue.Partition) (labels []model.Label, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPartitionLatency(float64(time.Since(start).Milliseconds()))
	}()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "partition panicked",
				logger.Int("partition", p.ID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			metrics.RecordErrorByComponent("worker", "panic")
			labels, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	labels = make([]model.Label, len(p.Events))
	for i, ev := range p.Events {
		labels[i] = w.labeler.Label(w.ix, ev)
		labels[i].Index = ev.Index
	}
	w.logger.Debug(ctx, "partition labeled", logger.Int("partition", p.ID), logger.Int("events", len(labels)))
	return labels, nil
}
