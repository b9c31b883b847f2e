package models

import "errors"

// Sentinel errors shared by repositories, services and handlers.
// Services wrap them with context via fmt.Errorf("...: %w", ...);
// handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound is returned when the referenced task or progress
	// record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDefinition is returned when a task definition violates
	// its invariants (non-positive goal, negative reward, inverted
	// window, bad type).
	ErrInvalidDefinition = errors.New("invalid task definition")

	// ErrTaskNotEligible is returned when no progress instance may be
	// created: the task window has not opened, has already closed, or
	// the per-user instance cap is reached.
	ErrTaskNotEligible = errors.New("task not eligible")

	// ErrTaskInactive is returned on claim when the task is
	// deactivated or its window has closed.
	ErrTaskInactive = errors.New("task inactive")

	// ErrNotEligible is returned on claim when the progress record is
	// not in the completed state.
	ErrNotEligible = errors.New("progress not eligible for claim")

	// ErrWrongState is returned when an administrator operation is
	// attempted from an incompatible lifecycle state.
	ErrWrongState = errors.New("operation not allowed in current state")

	// ErrAlreadyClaimed is returned when the reward for a progress
	// record has already been paid out.
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrBudgetExhausted is returned when paying the reward would push
	// the task's cumulative debits past its total budget.
	ErrBudgetExhausted = errors.New("task budget exhausted")

	// ErrHasActiveProgress is returned when deleting a task that live
	// progress records still reference.
	ErrHasActiveProgress = errors.New("task has active progress records")

	// ErrDuplicateInstance is returned when creating a progress record
	// while a non-terminal instance for the same (user, task) pair
	// already exists. Callers resolve it by re-reading the open
	// instance.
	ErrDuplicateInstance = errors.New("open progress instance already exists")

	// ErrInvalidEvent is returned when an ingested event is malformed
	// (missing user, unknown source, bad quantity).
	ErrInvalidEvent = errors.New("invalid event")
)
