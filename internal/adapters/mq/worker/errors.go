package worker

import (
	"errors"
	"fmt"
)

// Sentinel kinds for dispatcher errors.
var (
	ErrInvalidBatch    = errors.New("invalid batch")
	ErrPartitionFailed = errors.New("partition failed")
)

// PartitionError reports a failure inside one partition's computation.
type PartitionError struct {
	Partition int
	Start     int
	End       int
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %d [%d,%d): %v", e.Partition, e.Start, e.End, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Is reports ErrPartitionFailed for every partition error.
func (e *PartitionError) Is(target error) bool { return target == ErrPartitionFailed }
