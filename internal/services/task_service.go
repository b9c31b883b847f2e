package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure TaskServiceImpl implements TaskService
var _ TaskService = (*TaskServiceImpl)(nil)

// TaskServiceImpl implements the task catalog over a TaskRepository.
type TaskServiceImpl struct {
	taskRepo     repositories.TaskRepository
	progressRepo repositories.ProgressRepository
}

// NewTaskService creates a new TaskServiceImpl
func NewTaskService(taskRepo repositories.TaskRepository, progressRepo repositories.ProgressRepository) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskRepo:     taskRepo,
		progressRepo: progressRepo,
	}
}

// CreateTask validates and stores a new task definition.
func (s *TaskServiceImpl) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.BudgetDebited = 0
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	slog.Info("Task created", "taskId", task.ID.Hex(), "type", task.Type, "goal", task.GoalCount, "reward", task.RewardAmount)
	return task, nil
}

// UpdateTask replaces a task definition. Existing progress records are
// not rolled back: goal and reward are read live, so the edit applies
// to every not-yet-claimed instance immediately.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id primitive.ObjectID, task *models.Task) (*models.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	slog.Info("Task updated", "taskId", id.Hex())
	return s.taskRepo.FindByID(ctx, id)
}

// GetTaskByID retrieves a task by ID
func (s *TaskServiceImpl) GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	return s.taskRepo.FindByID(ctx, id)
}

// GetTasks lists tasks matching the filter
func (s *TaskServiceImpl) GetTasks(ctx context.Context, filter repositories.TaskFilter, page, limit int) ([]*models.Task, error) {
	return s.taskRepo.FindAll(ctx, filter, page, limit)
}

// SetTaskActive flips the active gate
func (s *TaskServiceImpl) SetTaskActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Task, error) {
	if err := s.taskRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	slog.Info("Task active flag changed", "taskId", id.Hex(), "active", active)
	return s.taskRepo.FindByID(ctx, id)
}

// DeleteTask removes a task definition. Without force it is a
// cascade-deny: the task stays while any non-terminal progress record
// references it.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id primitive.ObjectID, force bool) error {
	if _, err := s.taskRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if !force {
		hasOpen, err := s.progressRepo.HasOpenByTask(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check progress references: %w", err)
		}
		if hasOpen {
			return models.ErrHasActiveProgress
		}
	} else {
		n, err := s.progressRepo.DeleteByTask(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to cascade progress deletion: %w", err)
		}
		if n > 0 {
			slog.Warn("Cascaded progress deletion", "taskId", id.Hex(), "deleted", n)
		}
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Task deleted", "taskId", id.Hex(), "force", force)
	return nil
}
