package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure ProgressServiceImpl implements ProgressService
var _ ProgressService = (*ProgressServiceImpl)(nil)

// ProgressServiceImpl implements the progress ledger. All counter and
// status mutations go through the repository's atomic operations; this
// layer only decides which mutation applies.
type ProgressServiceImpl struct {
	taskRepo     repositories.TaskRepository
	progressRepo repositories.ProgressRepository
}

// NewProgressService creates a new ProgressServiceImpl
func NewProgressService(taskRepo repositories.TaskRepository, progressRepo repositories.ProgressRepository) *ProgressServiceImpl {
	return &ProgressServiceImpl{
		taskRepo:     taskRepo,
		progressRepo: progressRepo,
	}
}

// GetOrCreate returns the open instance for the (user, task) pair or
// creates one according to the eligibility rules.
func (s *ProgressServiceImpl) GetOrCreate(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	existing, err := s.progressRepo.FindOpenByUserAndTask(ctx, userID, taskID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	if !task.WindowOpened(now) {
		return nil, fmt.Errorf("%w: task window has not opened", models.ErrTaskNotEligible)
	}
	if task.WindowClosed(now) {
		return nil, fmt.Errorf("%w: task window has closed", models.ErrTaskNotEligible)
	}
	if task.MaxPerUser != nil {
		count, err := s.progressRepo.CountByUserAndTask(ctx, userID, taskID)
		if err != nil {
			return nil, err
		}
		if count >= int64(*task.MaxPerUser) {
			return nil, fmt.Errorf("%w: per-user instance cap reached", models.ErrTaskNotEligible)
		}
	}

	status := models.ProgressStatusInProgress
	if !task.Active {
		// The task exists but is gated off; the instance waits in
		// locked until the gate opens.
		status = models.ProgressStatusLocked
	}
	progress := &models.Progress{
		UserID: userID,
		TaskID: taskID,
		Status: status,
	}
	if err := s.progressRepo.Create(ctx, progress); err != nil {
		// A concurrent GetOrCreate won the insert; converge on its
		// record instead of leaving a sibling instance behind.
		if errors.Is(err, models.ErrDuplicateInstance) {
			return s.progressRepo.FindOpenByUserAndTask(ctx, userID, taskID)
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return progress, nil
}

// ApplyEvent advances every matching instance for the user. Each task
// is handled independently: one failure is logged and the rest proceed.
func (s *ProgressServiceImpl) ApplyEvent(ctx context.Context, userID string, source models.TaskType, quantity int, timestamp time.Time) ([]*models.Progress, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	tasks, err := s.taskRepo.FindActiveByType(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tasks for source %s: %w", source, err)
	}

	updated := []*models.Progress{}
	for _, task := range tasks {
		if !task.WindowContains(timestamp) {
			continue
		}
		progress, err := s.advance(ctx, userID, task, quantity)
		if err != nil {
			slog.Error("Failed to apply event to task", "error", err, "userId", userID, "taskId", task.ID.Hex(), "source", source)
			continue
		}
		if progress != nil {
			updated = append(updated, progress)
		}
	}
	return updated, nil
}

// advance increments one task's instance for the user.
func (s *ProgressServiceImpl) advance(ctx context.Context, userID string, task *models.Task, quantity int) (*models.Progress, error) {
	progress, err := s.GetOrCreate(ctx, userID, task.ID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotEligible) {
			return nil, nil
		}
		return nil, err
	}

	if progress.Status == models.ProgressStatusLocked {
		// The task is active again (FindActiveByType only returns
		// active tasks), so the instance thaws before counting.
		progress, err = s.progressRepo.TransitionStatus(ctx, progress.ID,
			[]models.ProgressStatus{models.ProgressStatusLocked}, models.ProgressStatusInProgress)
		if err != nil && !errors.Is(err, models.ErrWrongState) {
			return nil, err
		}
	}

	updated, err := s.progressRepo.IncrementProgress(ctx, progress.ID, quantity, task.GoalCount)
	if err != nil {
		if errors.Is(err, models.ErrWrongState) {
			// Already completed, claimed or expired; nothing to count.
			return nil, nil
		}
		return nil, err
	}
	if updated.Status == models.ProgressStatusCompleted {
		slog.Info("Progress completed", "userId", userID, "taskId", task.ID.Hex(), "progress", updated.Progress)
	}
	return updated, nil
}

// Restart resets a finished instance back to the start of its cycle.
func (s *ProgressServiceImpl) Restart(ctx context.Context, progressID primitive.ObjectID) (*models.Progress, error) {
	from := []models.ProgressStatus{
		models.ProgressStatusCompleted,
		models.ProgressStatusClaimed,
		models.ProgressStatusExpired,
	}
	progress, err := s.progressRepo.Reset(ctx, progressID, from)
	if err != nil {
		return nil, err
	}
	slog.Warn("Progress restarted by administrator", "progressId", progressID.Hex(), "attempts", progress.Attempts)
	return progress, nil
}

// ForceEnd resolves a disputed or stuck instance by setting its status
// directly.
func (s *ProgressServiceImpl) ForceEnd(ctx context.Context, progressID primitive.ObjectID, outcome models.ProgressStatus) (*models.Progress, error) {
	if outcome != models.ProgressStatusCompleted && outcome != models.ProgressStatusExpired {
		return nil, fmt.Errorf("%w: force-end outcome must be completed or expired", models.ErrWrongState)
	}
	progress, err := s.progressRepo.TransitionStatus(ctx, progressID, models.NonTerminalStatuses(), outcome)
	if err != nil {
		return nil, err
	}
	slog.Warn("Progress force-ended by administrator", "progressId", progressID.Hex(), "outcome", outcome)
	return progress, nil
}

// GetProgressByID retrieves a progress record by ID
func (s *ProgressServiceImpl) GetProgressByID(ctx context.Context, id primitive.ObjectID) (*models.Progress, error) {
	return s.progressRepo.FindByID(ctx, id)
}

// GetProgressByUser retrieves all progress records for a user
func (s *ProgressServiceImpl) GetProgressByUser(ctx context.Context, userID string) ([]*models.Progress, error) {
	return s.progressRepo.FindByUser(ctx, userID)
}

// GetProgress lists progress records matching the filter
func (s *ProgressServiceImpl) GetProgress(ctx context.Context, filter repositories.ProgressFilter, page, limit int) ([]*models.Progress, error) {
	return s.progressRepo.FindAll(ctx, filter, page, limit)
}

// DeleteProgress removes a progress record
func (s *ProgressServiceImpl) DeleteProgress(ctx context.Context, id primitive.ObjectID) error {
	return s.progressRepo.Delete(ctx, id)
}
