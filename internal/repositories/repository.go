package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
)

// TaskFilter narrows task listings. Nil fields match everything.
type TaskFilter struct {
	Type   *models.TaskType
	Active *bool
}

// ProgressFilter narrows progress listings. Zero/nil fields match
// everything.
type ProgressFilter struct {
	UserID string
	TaskID *primitive.ObjectID
	Status *models.ProgressStatus
}

// TaskRepository defines the interface for task catalog storage.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindAll(ctx context.Context, filter TaskFilter, page, limit int) ([]*models.Task, error)
	// FindActiveByType returns every active task rewarding the given
	// behavior type, regardless of window. Window checks belong to the
	// caller because they depend on the event timestamp.
	FindActiveByType(ctx context.Context, taskType models.TaskType) ([]*models.Task, error)
	// FindEnded returns tasks whose window closed before now.
	FindEnded(ctx context.Context, now time.Time) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// ProgressRepository defines the interface for progress ledger storage.
// The mutating operations are the engine's serialization points: each
// must be atomic per progress record.
type ProgressRepository interface {
	// Create inserts a new progress record. At most one non-terminal
	// instance may exist per (user, task) pair: a concurrent or prior
	// open instance yields models.ErrDuplicateInstance and nothing is
	// inserted.
	Create(ctx context.Context, progress *models.Progress) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Progress, error)
	// FindOpenByUserAndTask returns the non-terminal instance for the
	// pair, or models.ErrNotFound.
	FindOpenByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error)
	// FindLatestByUserAndTask returns the most recently created
	// instance for the pair regardless of status.
	FindLatestByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error)
	// CountByUserAndTask counts every instance ever created for the
	// pair, terminal included. Backs the maxPerUser cap.
	CountByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (int64, error)
	FindAll(ctx context.Context, filter ProgressFilter, page, limit int) ([]*models.Progress, error)
	FindByUser(ctx context.Context, userID string) ([]*models.Progress, error)

	// IncrementProgress atomically adds quantity to the counter,
	// clamped to goal, and flips in_progress to completed when the
	// clamp lands on the goal. It only applies to in_progress records;
	// any other state returns models.ErrWrongState.
	IncrementProgress(ctx context.Context, id primitive.ObjectID, quantity, goal int) (*models.Progress, error)
	// TransitionStatus compare-and-swaps the status from any of the
	// expected states to the target state. models.ErrWrongState when
	// the current status is not in from.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus, to models.ProgressStatus) (*models.Progress, error)
	// Reset is the administrator restart: progress back to zero,
	// status in_progress, claimedAt cleared, attempts incremented.
	// Only valid from one of the given states.
	Reset(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus) (*models.Progress, error)
	// RecordAttempt bumps the claim-attempt counter for audit.
	RecordAttempt(ctx context.Context, id primitive.ObjectID) error
	// ExpireByTask bulk-moves every instance of the task in one of the
	// given states to expired, returning how many changed.
	ExpireByTask(ctx context.Context, taskID primitive.ObjectID, from []models.ProgressStatus, now time.Time) (int64, error)
	// HasOpenByTask reports whether any non-terminal instance still
	// references the task.
	HasOpenByTask(ctx context.Context, taskID primitive.ObjectID) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByTask(ctx context.Context, taskID primitive.ObjectID) (int64, error)
}

// ClaimRepository executes the money-adjacent commit: the progress
// status flip and the task budget debit succeed or fail together.
type ClaimRepository interface {
	// ExecuteClaim flips the progress from completed to claimed and
	// debits amount from the task budget in one atomic commit.
	// Returns models.ErrAlreadyClaimed, models.ErrNotEligible,
	// models.ErrBudgetExhausted or models.ErrNotFound on rejection;
	// no partial state survives a rejection.
	ExecuteClaim(ctx context.Context, progressID, taskID primitive.ObjectID, amount float64) (*models.Progress, error)
}

// EventRepository is the short-lived seen-set behind event
// deduplication.
type EventRepository interface {
	// MarkSeen records the event id and reports true when it was not
	// seen before. A second call with the same id returns false.
	MarkSeen(ctx context.Context, eventID string, at time.Time) (bool, error)
	// Forget releases an event id so a redelivery can be applied.
	// Used when the event could not be applied after MarkSeen.
	Forget(ctx context.Context, eventID string) error
}

// AdminUserRepository stores operator accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}
