package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure ClaimStore implements the interface
var _ repositories.ClaimRepository = (*ClaimStore)(nil)

// ClaimStore commits claims against the in-memory stores. It is the
// only writer that holds the task lock and the progress lock at once,
// always task first, so the status flip and the budget debit are a
// single critical section and cannot interleave with other claims.
type ClaimStore struct {
	tasks    *TaskStore
	progress *ProgressStore
}

// NewClaimStore creates a ClaimStore over the given stores
func NewClaimStore(tasks *TaskStore, progress *ProgressStore) *ClaimStore {
	return &ClaimStore{tasks: tasks, progress: progress}
}

// ExecuteClaim flips completed -> claimed and debits the task budget
// atomically.
func (s *ClaimStore) ExecuteClaim(ctx context.Context, progressID, taskID primitive.ObjectID, amount float64) (*models.Progress, error) {
	s.tasks.mu.Lock()
	defer s.tasks.mu.Unlock()
	s.progress.mu.Lock()
	defer s.progress.mu.Unlock()

	p, ok := s.progress.records[progressID]
	if !ok {
		return nil, models.ErrNotFound
	}
	switch p.Status {
	case models.ProgressStatusCompleted:
	case models.ProgressStatusClaimed:
		return nil, models.ErrAlreadyClaimed
	default:
		return nil, models.ErrNotEligible
	}

	task, ok := s.tasks.tasks[taskID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if task.TotalBudget != nil && task.BudgetDebited+amount > *task.TotalBudget {
		return nil, models.ErrBudgetExhausted
	}

	now := time.Now()
	task.BudgetDebited += amount
	task.UpdatedAt = now
	p.Status = models.ProgressStatusClaimed
	p.ClaimedAt = &now
	p.UpdatedAt = now
	return cloneProgress(p), nil
}
