package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"

	"github.com/lawrencejr5/igle-rewards-backend/internal/metrics"
	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure ClaimServiceImpl implements ClaimService
var _ ClaimService = (*ClaimServiceImpl)(nil)

// ClaimServiceImpl implements the claim coordinator. The pre-checks
// here produce friendly errors fast; the claim repository's atomic
// commit is the authority, so a racer slipping past a pre-check is
// still rejected at commit time.
type ClaimServiceImpl struct {
	taskRepo     repositories.TaskRepository
	progressRepo repositories.ProgressRepository
	claimRepo    repositories.ClaimRepository
	wallet       WalletClient
	currency     string
}

// NewClaimService creates a new ClaimServiceImpl
func NewClaimService(taskRepo repositories.TaskRepository, progressRepo repositories.ProgressRepository, claimRepo repositories.ClaimRepository, wallet WalletClient, currency string) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		taskRepo:     taskRepo,
		progressRepo: progressRepo,
		claimRepo:    claimRepo,
		wallet:       wallet,
		currency:     currency,
	}
}

// Claim pays out the reward for the user's completed instance of the
// task, exactly once.
func (s *ClaimServiceImpl) Claim(ctx context.Context, userID string, taskID primitive.ObjectID) (result *models.ClaimResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordClaimDuration(claimResultLabel(err), time.Since(start).Seconds())
	}()

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.FindLatestByUserAndTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotEligible
		}
		return nil, err
	}

	// Every claim attempt is recorded, successful or not.
	if err := s.progressRepo.RecordAttempt(ctx, progress.ID); err != nil {
		slog.Error("Failed to record claim attempt", "error", err, "progressId", progress.ID.Hex())
	}

	now := time.Now()
	if !task.Active {
		return nil, models.ErrTaskInactive
	}
	if task.WindowClosed(now) {
		// Completed but unclaimed past the window: the sweeper may not
		// have run yet, but the claim is rejected either way.
		return nil, models.ErrTaskInactive
	}
	switch progress.Status {
	case models.ProgressStatusCompleted:
	case models.ProgressStatusClaimed:
		return nil, models.ErrAlreadyClaimed
	default:
		return nil, models.ErrNotEligible
	}
	if remaining, capped := task.RemainingBudget(); capped && task.RewardAmount > remaining {
		return nil, models.ErrBudgetExhausted
	}

	claimed, err := s.claimRepo.ExecuteClaim(ctx, progress.ID, task.ID, task.RewardAmount)
	if err != nil {
		return nil, err
	}
	slog.Info("Reward claimed", "userId", userID, "taskId", taskID.Hex(), "progressId", claimed.ID.Hex(), "amount", task.RewardAmount)

	result = &models.ClaimResult{
		Progress:  claimed,
		Amount:    task.RewardAmount,
		Currency:  s.currency,
		Reference: claimed.ID.Hex(),
	}

	// The claim is durably committed; the wallet credit must not block
	// or fail it. A failed dispatch is logged and retried out of band,
	// never reversed.
	go s.dispatchPayout(userID, result.Amount, result.Reference)

	return result, nil
}

func (s *ClaimServiceImpl) dispatchPayout(userID string, amount float64, reference string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.wallet.Credit(ctx, userID, amount, s.currency, reference); err != nil {
		metrics.PayoutFailures.Inc()
		slog.Error("Wallet credit failed, leaving for out-of-band retry", "error", err, "userId", userID, "amount", amount, "reference", reference)
		return
	}
	slog.Info("Wallet credited", "userId", userID, "amount", amount, "reference", reference)
}

func claimResultLabel(err error) string {
	switch {
	case err == nil:
		return "claimed"
	case errors.Is(err, models.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, models.ErrBudgetExhausted):
		return "budget_exhausted"
	case errors.Is(err, models.ErrTaskInactive):
		return "task_inactive"
	case errors.Is(err, models.ErrNotEligible), errors.Is(err, models.ErrNotFound):
		return "not_eligible"
	default:
		return "error"
	}
}
