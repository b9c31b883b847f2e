package services

import (
	"context"
	"time"

	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/internal/metrics"
	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure SweeperServiceImpl implements SweeperService
var _ SweeperService = (*SweeperServiceImpl)(nil)

// SweeperServiceImpl expires stale progress once a task's window has
// closed. When expireUnclaimed is set, completed-but-unclaimed
// instances expire with the unmet ones, matching the claim
// coordinator's closed-window rejection.
type SweeperServiceImpl struct {
	taskRepo        repositories.TaskRepository
	progressRepo    repositories.ProgressRepository
	expireUnclaimed bool
}

// NewSweeperService creates a new SweeperServiceImpl
func NewSweeperService(taskRepo repositories.TaskRepository, progressRepo repositories.ProgressRepository, expireUnclaimed bool) *SweeperServiceImpl {
	return &SweeperServiceImpl{
		taskRepo:        taskRepo,
		progressRepo:    progressRepo,
		expireUnclaimed: expireUnclaimed,
	}
}

// Sweep expires stale progress on every ended task. Idempotent by
// construction: expired records no longer match the source statuses.
func (s *SweeperServiceImpl) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tasks, err := s.taskRepo.FindEnded(ctx, now)
	if err != nil {
		return 0, err
	}

	from := []models.ProgressStatus{models.ProgressStatusLocked, models.ProgressStatusInProgress}
	if s.expireUnclaimed {
		from = append(from, models.ProgressStatusCompleted)
	}

	var total int64
	for _, task := range tasks {
		n, err := s.progressRepo.ExpireByTask(ctx, task.ID, from, now)
		if err != nil {
			slog.Error("Failed to sweep task", "error", err, "taskId", task.ID.Hex())
			continue
		}
		if n > 0 {
			slog.Info("Expired stale progress", "taskId", task.ID.Hex(), "expired", n)
			total += n
		}
	}
	if total > 0 {
		metrics.ProgressExpired.Add(float64(total))
	}
	return total, nil
}

// Run sweeps on the given interval until ctx is cancelled.
func (s *SweeperServiceImpl) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Lifecycle sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Lifecycle sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, time.Now()); err != nil {
				slog.Error("Sweep failed", "error", err)
			}
		}
	}
}
