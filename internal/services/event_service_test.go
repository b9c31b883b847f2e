package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories/memory"
)

type eventHarness struct {
	taskSvc *TaskServiceImpl
	progSvc *ProgressServiceImpl
	svc     *EventServiceImpl
}

func newEventHarness(window time.Duration) *eventHarness {
	tasks := memory.NewTaskStore()
	progress := memory.NewProgressStore()
	progSvc := NewProgressService(tasks, progress)
	return &eventHarness{
		taskSvc: NewTaskService(tasks, progress),
		progSvc: progSvc,
		svc:     NewEventService(memory.NewEventStore(window), progSvc),
	}
}

func TestIngestValidation(t *testing.T) {
	h := newEventHarness(24 * time.Hour)
	ctx := context.Background()

	tests := []struct {
		name  string
		event models.RewardEvent
	}{
		{"missing user", models.RewardEvent{EventID: "e1", Source: models.TaskTypeRide}},
		{"missing event id", models.RewardEvent{UserID: "u1", Source: models.TaskTypeRide}},
		{"unknown source", models.RewardEvent{EventID: "e1", UserID: "u1", Source: "teleport"}},
		{"negative quantity", models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide, Quantity: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Ingest(ctx, tt.event)
			assert.ErrorIs(t, err, models.ErrInvalidEvent)
		})
	}
}

func TestIngestDefaultsQuantityToOne(t *testing.T) {
	h := newEventHarness(24 * time.Hour)
	ctx := context.Background()

	def := validTask()
	def.GoalCount = 2
	_, err := h.taskSvc.CreateTask(ctx, def)
	require.NoError(t, err)

	res, err := h.svc.Ingest(ctx, models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, 1, res.Updated[0].Progress)
}

func TestIngestDuplicateIsDroppedNotFailed(t *testing.T) {
	h := newEventHarness(24 * time.Hour)
	ctx := context.Background()

	def := validTask()
	def.GoalCount = 10
	_, err := h.taskSvc.CreateTask(ctx, def)
	require.NoError(t, err)

	event := models.RewardEvent{EventID: "ride-123", UserID: "u1", Source: models.TaskTypeRide}
	first, err := h.svc.Ingest(ctx, event)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	require.Len(t, first.Updated, 1)

	// The at-least-once redelivery must not advance the counter.
	second, err := h.svc.Ingest(ctx, event)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Empty(t, second.Updated)

	p, err := h.progSvc.GetProgressByID(ctx, first.Updated[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Progress)
}

func TestIngestEventIDSeenAgainAfterWindow(t *testing.T) {
	h := newEventHarness(time.Hour)
	ctx := context.Background()

	def := validTask()
	def.GoalCount = 10
	_, err := h.taskSvc.CreateTask(ctx, def)
	require.NoError(t, err)

	base := time.Now()
	first, err := h.svc.Ingest(ctx, models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide, Timestamp: base})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	// Same id re-used two hours later is outside the dedup window.
	later, err := h.svc.Ingest(ctx, models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide, Timestamp: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.False(t, later.Duplicate)
}

func TestIngestFansOutToAllMatchingTasks(t *testing.T) {
	h := newEventHarness(24 * time.Hour)
	ctx := context.Background()

	a := validTask()
	a.GoalCount = 5
	_, err := h.taskSvc.CreateTask(ctx, a)
	require.NoError(t, err)

	b := validTask()
	b.Title = "Weekend ride bonus"
	b.GoalCount = 3
	_, err = h.taskSvc.CreateTask(ctx, b)
	require.NoError(t, err)

	res, err := h.svc.Ingest(ctx, models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide})
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
}

// flakyTaskStore fails task lookups a fixed number of times before
// recovering.
type flakyTaskStore struct {
	*memory.TaskStore
	failures int
}

func (s *flakyTaskStore) FindActiveByType(ctx context.Context, taskType models.TaskType) ([]*models.Task, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("catalog unavailable")
	}
	return s.TaskStore.FindActiveByType(ctx, taskType)
}

func TestIngestFailureDoesNotConsumeEventID(t *testing.T) {
	tasks := &flakyTaskStore{TaskStore: memory.NewTaskStore(), failures: 1}
	progress := memory.NewProgressStore()
	progSvc := NewProgressService(tasks, progress)
	svc := NewEventService(memory.NewEventStore(24*time.Hour), progSvc)
	ctx := context.Background()

	def := validTask()
	def.GoalCount = 10
	_, err := NewTaskService(tasks, progress).CreateTask(ctx, def)
	require.NoError(t, err)

	event := models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide}
	_, err = svc.Ingest(ctx, event)
	require.Error(t, err)

	// The failed delivery must not burn the id: the producer's
	// redelivery carries the behavior unit and has to count.
	res, err := svc.Ingest(ctx, event)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, 1, res.Updated[0].Progress)
}

func TestIngestNoMatchingTasks(t *testing.T) {
	h := newEventHarness(24 * time.Hour)

	res, err := h.svc.Ingest(context.Background(), models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeReferral})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Empty(t, res.Updated)
}
