// Package queue carries labeling partitions from the dispatcher to its
// workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Partition is one contiguous slice of a labeling batch. Start is the
// position of Events[0] in the batch.
type Partition struct {
	ID     int
	Start  int
	Events []model.CandidateEvent
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a partition. It fails with ErrFull or ErrClosed instead
	// of blocking.
	Enqueue(ctx context.Context, p Partition) error

	// Dequeue returns a channel yielding queued partitions. It is closed once
	// the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Partition

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	partitions chan Partition
	capacity   int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.partitions = make(chan Partition, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a partition to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Partition) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.partitions <- p:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.partitions))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that yields partitions until the queue is
// closed and drained or ctx is done. Several consumers may share one
// returned channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Partition {
	out := make(chan Partition)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-q.partitions:
				if !ok {
					return
				}
				select {
				case out <- p:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.partitions))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued partitions.
func (q *InMemoryQueue) Len() int {
	return len(q.partitions)
}

// Close stops accepting partitions. Queued partitions remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.partitions)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
