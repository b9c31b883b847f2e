package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories/memory"
)

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func validTask() *models.Task {
	return &models.Task{
		Title:        "Complete 10 rides",
		Type:         models.TaskTypeRide,
		GoalCount:    10,
		RewardAmount: 500,
		Active:       true,
	}
}

func TestCreateTaskValidation(t *testing.T) {
	taskSvc := NewTaskService(memory.NewTaskStore(), memory.NewProgressStore())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.Task)
	}{
		{"missing title", func(task *models.Task) { task.Title = "" }},
		{"unknown type", func(task *models.Task) { task.Type = "teleport" }},
		{"zero goal", func(task *models.Task) { task.GoalCount = 0 }},
		{"negative reward", func(task *models.Task) { task.RewardAmount = -1 }},
		{"zero per-user cap", func(task *models.Task) { task.MaxPerUser = intPtr(0) }},
		{"negative budget", func(task *models.Task) { task.TotalBudget = floatPtr(-100) }},
		{"inverted window", func(task *models.Task) {
			now := time.Now()
			task.StartAt = timePtr(now)
			task.EndAt = timePtr(now.Add(-time.Hour))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(task)
			_, err := taskSvc.CreateTask(ctx, task)
			assert.ErrorIs(t, err, models.ErrInvalidDefinition)
		})
	}
}

func TestCreateTaskResetsDebitTotal(t *testing.T) {
	taskSvc := NewTaskService(memory.NewTaskStore(), memory.NewProgressStore())

	task := validTask()
	task.TotalBudget = floatPtr(5000)
	task.BudgetDebited = 4999
	created, err := taskSvc.CreateTask(context.Background(), task)
	require.NoError(t, err)
	assert.Zero(t, created.BudgetDebited)
	assert.False(t, created.ID.IsZero())
}

func TestUpdateTaskPreservesDebitTotal(t *testing.T) {
	taskStore := memory.NewTaskStore()
	progressStore := memory.NewProgressStore()
	taskSvc := NewTaskService(taskStore, progressStore)
	ctx := context.Background()

	task := validTask()
	task.TotalBudget = floatPtr(5000)
	created, err := taskSvc.CreateTask(ctx, task)
	require.NoError(t, err)

	// Simulate a paid claim before the edit.
	claimStore := memory.NewClaimStore(taskStore, progressStore)
	p := &models.Progress{UserID: "u1", TaskID: created.ID, Progress: 10, Status: models.ProgressStatusCompleted}
	require.NoError(t, progressStore.Create(ctx, p))
	_, err = claimStore.ExecuteClaim(ctx, p.ID, created.ID, 500)
	require.NoError(t, err)

	edit := validTask()
	edit.RewardAmount = 750
	edit.TotalBudget = floatPtr(5000)
	edit.BudgetDebited = 0
	updated, err := taskSvc.UpdateTask(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, float64(750), updated.RewardAmount)
	assert.Equal(t, float64(500), updated.BudgetDebited)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestUpdateTaskNotFound(t *testing.T) {
	taskSvc := NewTaskService(memory.NewTaskStore(), memory.NewProgressStore())
	_, err := taskSvc.UpdateTask(context.Background(), primitive.NewObjectID(), validTask())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTaskDeniedWhileProgressOpen(t *testing.T) {
	taskStore := memory.NewTaskStore()
	progressStore := memory.NewProgressStore()
	taskSvc := NewTaskService(taskStore, progressStore)
	progressSvc := NewProgressService(taskStore, progressStore)
	ctx := context.Background()

	created, err := taskSvc.CreateTask(ctx, validTask())
	require.NoError(t, err)
	_, err = progressSvc.GetOrCreate(ctx, "u1", created.ID)
	require.NoError(t, err)

	err = taskSvc.DeleteTask(ctx, created.ID, false)
	assert.ErrorIs(t, err, models.ErrHasActiveProgress)

	// The task must still be there.
	_, err = taskSvc.GetTaskByID(ctx, created.ID)
	assert.NoError(t, err)
}

func TestDeleteTaskAllowedOnceProgressSettled(t *testing.T) {
	taskStore := memory.NewTaskStore()
	progressStore := memory.NewProgressStore()
	taskSvc := NewTaskService(taskStore, progressStore)
	progressSvc := NewProgressService(taskStore, progressStore)
	ctx := context.Background()

	created, err := taskSvc.CreateTask(ctx, validTask())
	require.NoError(t, err)
	p, err := progressSvc.GetOrCreate(ctx, "u1", created.ID)
	require.NoError(t, err)
	_, err = progressSvc.ForceEnd(ctx, p.ID, models.ProgressStatusExpired)
	require.NoError(t, err)

	require.NoError(t, taskSvc.DeleteTask(ctx, created.ID, false))
	_, err = taskSvc.GetTaskByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTaskForceCascades(t *testing.T) {
	taskStore := memory.NewTaskStore()
	progressStore := memory.NewProgressStore()
	taskSvc := NewTaskService(taskStore, progressStore)
	progressSvc := NewProgressService(taskStore, progressStore)
	ctx := context.Background()

	created, err := taskSvc.CreateTask(ctx, validTask())
	require.NoError(t, err)
	p, err := progressSvc.GetOrCreate(ctx, "u1", created.ID)
	require.NoError(t, err)

	require.NoError(t, taskSvc.DeleteTask(ctx, created.ID, true))
	_, err = progressSvc.GetProgressByID(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetTasksFilters(t *testing.T) {
	taskSvc := NewTaskService(memory.NewTaskStore(), memory.NewProgressStore())
	ctx := context.Background()

	ride := validTask()
	_, err := taskSvc.CreateTask(ctx, ride)
	require.NoError(t, err)

	delivery := validTask()
	delivery.Type = models.TaskTypeDelivery
	delivery.Active = false
	_, err = taskSvc.CreateTask(ctx, delivery)
	require.NoError(t, err)

	rideType := models.TaskTypeRide
	byType, err := taskSvc.GetTasks(ctx, repositories.TaskFilter{Type: &rideType}, 1, 20)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, models.TaskTypeRide, byType[0].Type)

	active := true
	byActive, err := taskSvc.GetTasks(ctx, repositories.TaskFilter{Active: &active}, 1, 20)
	require.NoError(t, err)
	require.Len(t, byActive, 1)
	assert.True(t, byActive[0].Active)
}

func TestSetTaskActive(t *testing.T) {
	taskSvc := NewTaskService(memory.NewTaskStore(), memory.NewProgressStore())
	ctx := context.Background()

	created, err := taskSvc.CreateTask(ctx, validTask())
	require.NoError(t, err)

	updated, err := taskSvc.SetTaskActive(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)
}
