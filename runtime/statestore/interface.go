// Package statestore records tasks this worker has already resolved, so a
// task re-delivered by a later fetch (after a lost response, for example) is
// skipped instead of being handled twice.
package statestore

import (
	"context"
	"errors"
	"time"
)

// defaultTTL bounds how long a resolution is remembered. Re-deliveries
// happen within a lock duration, so a day is ample.
const defaultTTL = 24 * time.Hour

// Resolution describes how a task left this worker's hands.
type Resolution struct {
	TaskID string `json:"taskId"`
	Topic  string `json:"topic,omitempty"`
	// Operation is the engine operation that resolved the task, e.g. "complete".
	Operation  string    `json:"operation"`
	WorkerID   string    `json:"workerId,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Ledger stores resolutions keyed by task id.
type Ledger interface {
	// Record stores r, replacing any earlier resolution of the same task.
	Record(ctx context.Context, r Resolution) error

	// Lookup returns the resolution of taskID, or ErrNotFound.
	Lookup(ctx context.Context, taskID string) (*Resolution, error)

	// Forget removes the resolution of taskID. Forgetting an unknown task is
	// not an error.
	Forget(ctx context.Context, taskID string) error
}

// ErrNotFound is returned when a task has no recorded resolution.
var ErrNotFound = errors.New("statestore: task not resolved")

// ErrInvalidID is returned when an empty task id is provided.
var ErrInvalidID = errors.New("statestore: invalid task id")

// IsResolved reports whether the ledger holds a resolution for taskID.
func IsResolved(ctx context.Context, l Ledger, taskID string) (bool, error) {
	_, err := l.Lookup(ctx, taskID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
