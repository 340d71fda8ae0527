package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist, or
	// exists but is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInUse is returned when a delete is blocked by rows referencing the
	// record.
	ErrInUse = errors.New("record is referenced by other records")
)

// LimitError is returned by the quota-guarded inserts when the owner already
// holds Limit records. Current is the count observed inside the transaction.
type LimitError struct {
	Current int
	Limit   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limit reached: %d of %d", e.Current, e.Limit)
}
