// Package dedupe tracks keys that were already seen during one run.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/fillcheck/internal/domain/model"
)

// Deduper records seen keys so that repeated rows or intents are processed
// at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key.
	Unrecord(ctx context.Context, key string)

	// Size returns the number of remembered keys.
	Size() int64

	// Duplicates returns how many SeenAndRecord calls hit a known key.
	Duplicates() int64
}

// EventKey fingerprints a detected event on (ts, type, side).
func EventKey(e model.Event) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(e.TS, 10))
	b.WriteByte('|')
	b.WriteString(e.Type)
	b.WriteByte('|')
	b.WriteString(string(e.Side))
	return b.String()
}

// inMemoryDeduper implements Deduper with a map and, in bounded mode, an
// insertion-order ring used for eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> slot in ring (or -1 in unbounded mode)
	ring    []string       // bounded mode only; "" marks a free slot
	next    int
	maxSize int
	size    atomic.Int64
	dups    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		d.dups.Add(1)
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		d.size.Add(1)
		return false
	}

	// The slot under next is the oldest entry once the ring is full.
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
		d.size.Add(-1)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	d.size.Add(1)
	return false
}

// Unrecord forgets key.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Duplicates returns the number of repeated keys observed.
func (d *inMemoryDeduper) Duplicates() int64 {
	return d.dups.Load()
}
