package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories/memory"
)

type walletCredit struct {
	UserID    string
	Amount    float64
	Currency  string
	Reference string
}

// fakeWallet records credits on a channel so tests can wait for the
// asynchronous payout dispatch.
type fakeWallet struct {
	credits chan walletCredit
	fail    bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{credits: make(chan walletCredit, 64)}
}

func (w *fakeWallet) Credit(ctx context.Context, userID string, amount float64, currency, reference string) error {
	if w.fail {
		return errors.New("wallet unavailable")
	}
	w.credits <- walletCredit{UserID: userID, Amount: amount, Currency: currency, Reference: reference}
	return nil
}

func (w *fakeWallet) waitForCredit(t *testing.T) walletCredit {
	t.Helper()
	select {
	case c := <-w.credits:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wallet credit")
		return walletCredit{}
	}
}

type claimHarness struct {
	tasks    *memory.TaskStore
	progress *memory.ProgressStore
	taskSvc  *TaskServiceImpl
	progSvc  *ProgressServiceImpl
	eventSvc *EventServiceImpl
	svc      *ClaimServiceImpl
	wallet   *fakeWallet
}

func newClaimHarness() *claimHarness {
	tasks := memory.NewTaskStore()
	progress := memory.NewProgressStore()
	claims := memory.NewClaimStore(tasks, progress)
	events := memory.NewEventStore(24 * time.Hour)
	wallet := newFakeWallet()
	progSvc := NewProgressService(tasks, progress)
	return &claimHarness{
		tasks:    tasks,
		progress: progress,
		taskSvc:  NewTaskService(tasks, progress),
		progSvc:  progSvc,
		eventSvc: NewEventService(events, progSvc),
		svc:      NewClaimService(tasks, progress, claims, wallet, "NGN"),
		wallet:   wallet,
	}
}

func (h *claimHarness) mustCreateTask(t *testing.T, task *models.Task) *models.Task {
	t.Helper()
	created, err := h.taskSvc.CreateTask(context.Background(), task)
	require.NoError(t, err)
	return created
}

// completeFor drives the user's instance to completed via the event path.
func (h *claimHarness) completeFor(t *testing.T, userID string, task *models.Task) {
	t.Helper()
	res, err := h.eventSvc.Ingest(context.Background(), models.RewardEvent{
		EventID:  fmt.Sprintf("evt-%s-%s", userID, task.ID.Hex()),
		UserID:   userID,
		Source:   task.Type,
		Quantity: task.GoalCount,
	})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	require.Equal(t, models.ProgressStatusCompleted, res.Updated[0].Status)
}

func TestClaimHappyPath(t *testing.T) {
	h := newClaimHarness()
	def := validTask()
	def.TotalBudget = floatPtr(5000)
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	// Ten unit events reach the goal, then the claim pays once.
	for i := 0; i < task.GoalCount; i++ {
		_, err := h.eventSvc.Ingest(ctx, models.RewardEvent{
			EventID: fmt.Sprintf("ride-%d", i),
			UserID:  "u1",
			Source:  models.TaskTypeRide,
		})
		require.NoError(t, err)
	}

	result, err := h.svc.Claim(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), result.Amount)
	assert.Equal(t, "NGN", result.Currency)
	assert.Equal(t, models.ProgressStatusClaimed, result.Progress.Status)
	assert.NotNil(t, result.Progress.ClaimedAt)

	credit := h.wallet.waitForCredit(t)
	assert.Equal(t, "u1", credit.UserID)
	assert.Equal(t, float64(500), credit.Amount)
	assert.Equal(t, result.Reference, credit.Reference)

	updated, err := h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), updated.BudgetDebited)

	// Second claim on the same instance is rejected and debits nothing.
	_, err = h.svc.Claim(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyClaimed)
	updated, err = h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), updated.BudgetDebited)
}

func TestClaimRequiresCompletedInstance(t *testing.T) {
	h := newClaimHarness()
	task := h.mustCreateTask(t, validTask())
	ctx := context.Background()

	// No instance at all.
	_, err := h.svc.Claim(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, models.ErrNotEligible)

	// In progress but short of the goal.
	_, err = h.eventSvc.Ingest(ctx, models.RewardEvent{EventID: "e1", UserID: "u1", Source: models.TaskTypeRide, Quantity: 3})
	require.NoError(t, err)
	_, err = h.svc.Claim(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, models.ErrNotEligible)

	// The rejected claim is still recorded as an attempt.
	p, err := h.progress.FindLatestByUserAndTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Attempts)
}

func TestClaimInactiveTask(t *testing.T) {
	h := newClaimHarness()
	task := h.mustCreateTask(t, validTask())
	ctx := context.Background()

	h.completeFor(t, "u1", task)
	_, err := h.taskSvc.SetTaskActive(ctx, task.ID, false)
	require.NoError(t, err)

	_, err = h.svc.Claim(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, models.ErrTaskInactive)
}

func TestClaimBudgetCeiling(t *testing.T) {
	h := newClaimHarness()
	def := validTask()
	def.GoalCount = 1
	def.TotalBudget = floatPtr(5000)
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	// Budget 5000 at 500 per claim pays exactly ten users.
	for i := 0; i < 10; i++ {
		user := fmt.Sprintf("u%d", i)
		h.completeFor(t, user, task)
		result, err := h.svc.Claim(ctx, user, task.ID)
		require.NoError(t, err, "claim %d should fit the budget", i+1)
		assert.Equal(t, float64(500), result.Amount)
	}

	updated, err := h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(5000), updated.BudgetDebited)

	// The eleventh completer is refused, and their instance stays
	// completed so support can resolve it.
	h.completeFor(t, "u10", task)
	_, err = h.svc.Claim(ctx, "u10", task.ID)
	assert.ErrorIs(t, err, models.ErrBudgetExhausted)

	p, err := h.progress.FindLatestByUserAndTask(ctx, "u10", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusCompleted, p.Status)
}

func TestClaimAfterRestartPaysAgain(t *testing.T) {
	h := newClaimHarness()
	def := validTask()
	def.GoalCount = 2
	def.TotalBudget = floatPtr(5000)
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	h.completeFor(t, "u1", task)
	first, err := h.svc.Claim(ctx, "u1", task.ID)
	require.NoError(t, err)

	restarted, err := h.progSvc.Restart(ctx, first.Progress.ID)
	require.NoError(t, err)
	assert.Zero(t, restarted.Progress)
	assert.Equal(t, models.ProgressStatusInProgress, restarted.Status)

	// A fresh cycle completes and claims against the remaining budget.
	_, err = h.eventSvc.Ingest(ctx, models.RewardEvent{EventID: "cycle2", UserID: "u1", Source: models.TaskTypeRide, Quantity: 2})
	require.NoError(t, err)
	second, err := h.svc.Claim(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), second.Amount)

	updated, err := h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1000), updated.BudgetDebited)
}

func TestConcurrentClaimsPayExactlyOnce(t *testing.T) {
	h := newClaimHarness()
	def := validTask()
	def.GoalCount = 1
	def.TotalBudget = floatPtr(5000)
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	h.completeFor(t, "u1", task)

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Claim(ctx, "u1", task.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, rejected int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.True(t, errors.Is(err, models.ErrAlreadyClaimed) || errors.Is(err, models.ErrNotEligible),
			"unexpected claim error: %v", err)
		rejected++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, rejected)

	updated, err := h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(500), updated.BudgetDebited)

	credit := h.wallet.waitForCredit(t)
	assert.Equal(t, "u1", credit.UserID)
	select {
	case extra := <-h.wallet.credits:
		t.Fatalf("unexpected second credit: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConcurrentClaimsRespectBudget(t *testing.T) {
	h := newClaimHarness()
	def := validTask()
	def.GoalCount = 1
	def.TotalBudget = floatPtr(1500)
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	const users = 10
	for i := 0; i < users; i++ {
		h.completeFor(t, fmt.Sprintf("u%d", i), task)
	}

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := 0; i < users; i++ {
		user := fmt.Sprintf("u%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Claim(ctx, user, task.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, models.ErrBudgetExhausted)
		}
	}
	// 1500 at 500 per claim funds exactly three payouts.
	assert.Equal(t, 3, successes)

	updated, err := h.taskSvc.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1500), updated.BudgetDebited)
}

func TestClaimSurvivesWalletFailure(t *testing.T) {
	h := newClaimHarness()
	h.wallet.fail = true
	def := validTask()
	def.GoalCount = 1
	task := h.mustCreateTask(t, def)
	ctx := context.Background()

	h.completeFor(t, "u1", task)
	result, err := h.svc.Claim(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusClaimed, result.Progress.Status)

	// The failed credit never reverses the claim.
	p, err := h.progress.FindLatestByUserAndTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusClaimed, p.Status)
}

func TestClaimUnknownTask(t *testing.T) {
	h := newClaimHarness()
	_, err := h.svc.Claim(context.Background(), "u1", primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
