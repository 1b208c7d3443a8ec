package bulk

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrConfirmationRequired is returned when an action was staged and
	// waits for Confirm
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrPartialFailure is returned when at least one item of a batch failed
	ErrPartialFailure = errors.New("bulk action partially failed")

	// ErrUnknownAction is returned for an action id missing from the catalog
	ErrUnknownAction = errors.New("unknown bulk action")

	// ErrNothingSelected is returned when running an action on an empty selection
	ErrNothingSelected = errors.New("no records selected")

	// ErrNothingPending is returned by Confirm when no action is staged
	ErrNothingPending = errors.New("no bulk action awaiting confirmation")

	// ErrRolledBack marks items of an atomic batch undone by another item's failure
	ErrRolledBack = errors.New("rolled back")
)

// ConfirmationRequiredError carries the copy shown before a destructive action runs
type ConfirmationRequiredError struct {
	ActionID string
	Label    string
	Message  string
	Count    int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%s on %d records requires confirmation: %s", e.ActionID, e.Count, e.Message)
}

func (e *ConfirmationRequiredError) Is(target error) bool {
	return target == ErrConfirmationRequired
}

// BatchPartialFailureError lists which items of a batch succeeded and which failed.
// RolledBack is set when an atomic batch undid every item.
type BatchPartialFailureError[K comparable] struct {
	ActionID   string
	Succeeded  []K
	Failed     []Result[K]
	RolledBack bool
}

func (e *BatchPartialFailureError[K]) Error() string {
	total := len(e.Succeeded) + len(e.Failed)
	if e.RolledBack {
		return fmt.Sprintf("bulk %s rolled back: %v", e.ActionID, e.Err())
	}
	return fmt.Sprintf("bulk %s: %d of %d failed: %v", e.ActionID, len(e.Failed), total, e.Err())
}

func (e *BatchPartialFailureError[K]) Is(target error) bool {
	return target == ErrPartialFailure
}

// Err combines the per-item errors
func (e *BatchPartialFailureError[K]) Err() error {
	var combined error
	for _, r := range e.Failed {
		if r.Err != nil && !errors.Is(r.Err, ErrRolledBack) {
			combined = multierr.Append(combined, fmt.Errorf("%v: %w", r.ID, r.Err))
		}
	}
	return combined
}

// FailedIDs returns the ids of the failed items
func (e *BatchPartialFailureError[K]) FailedIDs() []K {
	ids := make([]K, len(e.Failed))
	for i, r := range e.Failed {
		ids[i] = r.ID
	}
	return ids
}
