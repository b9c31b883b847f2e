package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories/memory"
)

type sweeperHarness struct {
	tasks    *memory.TaskStore
	progress *memory.ProgressStore
	taskSvc  *TaskServiceImpl
	progSvc  *ProgressServiceImpl
	claimSvc *ClaimServiceImpl
}

func newSweeperHarness() *sweeperHarness {
	tasks := memory.NewTaskStore()
	progress := memory.NewProgressStore()
	claims := memory.NewClaimStore(tasks, progress)
	return &sweeperHarness{
		tasks:    tasks,
		progress: progress,
		taskSvc:  NewTaskService(tasks, progress),
		progSvc:  NewProgressService(tasks, progress),
		claimSvc: NewClaimService(tasks, progress, claims, newFakeWallet(), "NGN"),
	}
}

// windowedTask creates a task whose window is currently open but closes
// at end.
func (h *sweeperHarness) windowedTask(t *testing.T, end time.Time) *models.Task {
	t.Helper()
	def := validTask()
	def.StartAt = timePtr(end.Add(-24 * time.Hour))
	def.EndAt = timePtr(end)
	created, err := h.taskSvc.CreateTask(context.Background(), def)
	require.NoError(t, err)
	return created
}

func TestSweepExpiresUnmetProgress(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)
	ctx := context.Background()

	end := time.Now().Add(time.Minute)
	task := h.windowedTask(t, end)
	p, err := h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)

	// Before the window closes nothing expires.
	n, err := sweeper.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sweeper.Sweep(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	swept, err := h.progSvc.GetProgressByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusExpired, swept.Status)

	// An expired instance cannot be claimed.
	_, err = h.claimSvc.Claim(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, models.ErrNotEligible)
}

func TestSweepIsIdempotent(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)
	ctx := context.Background()

	end := time.Now().Add(time.Minute)
	task := h.windowedTask(t, end)
	_, err := h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)

	after := end.Add(time.Second)
	n, err := sweeper.Sweep(ctx, after)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = sweeper.Sweep(ctx, after.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpiresUnclaimedCompletions(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)
	ctx := context.Background()

	end := time.Now().Add(time.Minute)
	task := h.windowedTask(t, end)
	p, err := h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)
	_, err = h.progSvc.ForceEnd(ctx, p.ID, models.ProgressStatusCompleted)
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	swept, err := h.progSvc.GetProgressByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusExpired, swept.Status)
}

func TestSweepLeavesUnclaimedCompletionsWhenPolicyOff(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, false)
	ctx := context.Background()

	end := time.Now().Add(time.Minute)
	task := h.windowedTask(t, end)
	p, err := h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)
	_, err = h.progSvc.ForceEnd(ctx, p.ID, models.ProgressStatusCompleted)
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)

	kept, err := h.progSvc.GetProgressByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusCompleted, kept.Status)
}

func TestSweepNeverTouchesClaimed(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)
	ctx := context.Background()

	end := time.Now().Add(time.Minute)
	task := h.windowedTask(t, end)
	p, err := h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)
	_, err = h.progSvc.ForceEnd(ctx, p.ID, models.ProgressStatusCompleted)
	require.NoError(t, err)
	_, err = h.claimSvc.Claim(ctx, "u1", task.ID)
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)

	kept, err := h.progSvc.GetProgressByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusClaimed, kept.Status)
}

func TestSweepIgnoresOpenWindows(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)
	ctx := context.Background()

	// Unbounded window: the sweeper has nothing to do.
	task, err := h.taskSvc.CreateTask(ctx, validTask())
	require.NoError(t, err)
	_, err = h.progSvc.GetOrCreate(ctx, "u1", task.ID)
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx, time.Now().Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newSweeperHarness()
	sweeper := NewSweeperService(h.tasks, h.progress, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
