package ingest

import "github.com/okian/fillcheck/pkg/logger"

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithSortTicks stably sorts the mid and trade series by timestamp after
// reading. Without it an unsorted file is left for the tick index to refuse.
func WithSortTicks(enabled bool) Option {
	return func(r *Reader) {
		r.sortTicks = enabled
	}
}

// WithMaxLineBytes bounds a single JSONL record.
func WithMaxLineBytes(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLine = n
		}
	}
}

// WithLogger sets a custom logger for the reader.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}
