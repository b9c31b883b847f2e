package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// TaskService defines the interface for the task catalog.
type TaskService interface {
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id primitive.ObjectID, task *models.Task) (*models.Task, error)
	GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	GetTasks(ctx context.Context, filter repositories.TaskFilter, page, limit int) ([]*models.Task, error)
	SetTaskActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Task, error)
	// DeleteTask refuses to delete a task that live progress records
	// still reference unless force is set, in which case the progress
	// records are cascaded away with it.
	DeleteTask(ctx context.Context, id primitive.ObjectID, force bool) error
}

// ProgressService defines the interface for the progress ledger.
type ProgressService interface {
	// GetOrCreate returns the open instance for the pair, creating one
	// when the task allows it. A closed or unopened window, or an
	// exhausted per-user cap, yields models.ErrTaskNotEligible; an
	// inactive task yields a locked instance.
	GetOrCreate(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error)
	// ApplyEvent routes one quantified behavior to every active task of
	// the matching type whose window contains the timestamp and
	// advances each instance. Failures on one task do not abort the
	// others.
	ApplyEvent(ctx context.Context, userID string, source models.TaskType, quantity int, timestamp time.Time) ([]*models.Progress, error)
	// Restart is the administrator reset; allowed only from completed,
	// claimed or expired.
	Restart(ctx context.Context, progressID primitive.ObjectID) (*models.Progress, error)
	// ForceEnd sets the status directly to completed or expired,
	// bypassing the event path.
	ForceEnd(ctx context.Context, progressID primitive.ObjectID, outcome models.ProgressStatus) (*models.Progress, error)
	GetProgressByID(ctx context.Context, id primitive.ObjectID) (*models.Progress, error)
	GetProgressByUser(ctx context.Context, userID string) ([]*models.Progress, error)
	GetProgress(ctx context.Context, filter repositories.ProgressFilter, page, limit int) ([]*models.Progress, error)
	DeleteProgress(ctx context.Context, id primitive.ObjectID) error
}

// EventService defines the interface for event ingress.
type EventService interface {
	// Ingest deduplicates on the producer-supplied event id and applies
	// the event to the progress ledger. A duplicate is reported in the
	// result, not as an error, so at-least-once producers do not retry.
	Ingest(ctx context.Context, event models.RewardEvent) (*models.IngestResult, error)
}

// ClaimService defines the interface for the claim coordinator.
type ClaimService interface {
	// Claim pays out a completed progress record exactly once, debiting
	// the task budget in the same commit, then hands the payout to the
	// wallet out of band.
	Claim(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.ClaimResult, error)
}

// SweeperService defines the interface for the lifecycle sweeper.
type SweeperService interface {
	// Sweep expires stale progress on every task whose window closed
	// before now. Idempotent: a second run over unchanged state expires
	// nothing.
	Sweep(ctx context.Context, now time.Time) (int64, error)
	// Run invokes Sweep on the given interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}

// AuthService defines the interface for operator authentication.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	// EnsureAdmin creates the bootstrap operator account when it does
	// not exist yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}

// WalletClient is the external wallet/ledger collaborator. Credit is
// called after the claim commit; failures are retried out of band,
// never by reversing the claim.
type WalletClient interface {
	Credit(ctx context.Context, userID string, amount float64, currency, reference string) error
}
