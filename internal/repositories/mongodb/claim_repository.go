package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure ClaimRepository implements the interface
var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

// ClaimRepository commits the claim: the progress status flip and the
// task budget debit run inside one MongoDB transaction, so either both
// land or neither does. Requires a replica set (transactions are not
// available on standalone deployments).
type ClaimRepository struct {
	client   *mongo.Client
	progress *mongo.Collection
	tasks    *mongo.Collection
}

// NewClaimRepository creates a new ClaimRepository
func NewClaimRepository(client *mongo.Client, db *mongo.Database) *ClaimRepository {
	return &ClaimRepository{
		client:   client,
		progress: db.Collection("progress"),
		tasks:    db.Collection("tasks"),
	}
}

// ExecuteClaim flips completed -> claimed and debits the task budget
// atomically.
//
// Two racers on the same progress record: the status filter lets only
// one through, the other sees models.ErrAlreadyClaimed. Two racers on
// the same task budget: the $expr ceiling filter admits debits only
// while they fit, and the losing transaction aborts with the progress
// flip rolled back.
func (r *ClaimRepository) ExecuteClaim(ctx context.Context, progressID, taskID primitive.ObjectID, amount float64) (*models.Progress, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()

		filter := bson.M{"_id": progressID, "status": models.ProgressStatusCompleted}
		update := bson.M{"$set": bson.M{
			"status":    models.ProgressStatusClaimed,
			"claimedAt": now,
			"updatedAt": now,
		}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var progress models.Progress
		if err := r.progress.FindOneAndUpdate(sc, filter, update, opts).Decode(&progress); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, r.classifyClaimMiss(sc, progressID)
			}
			return nil, err
		}

		// Debit only while the running total stays under the ceiling.
		// An unset totalBudget is unlimited.
		budgetFilter := bson.M{
			"_id": taskID,
			"$expr": bson.M{"$or": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$totalBudget", nil}}, nil}},
				bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$budgetDebited", amount}}, "$totalBudget"}},
			}},
		}
		debit := bson.M{
			"$inc": bson.M{"budgetDebited": amount},
			"$set": bson.M{"updatedAt": now},
		}
		res, err := r.tasks.UpdateOne(sc, budgetFilter, debit)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// Returning an error aborts the transaction and reverts
			// the status flip above.
			n, err := r.tasks.CountDocuments(sc, bson.M{"_id": taskID}, options.Count().SetLimit(1))
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, models.ErrNotFound
			}
			return nil, models.ErrBudgetExhausted
		}

		return &progress, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Progress), nil
}

// classifyClaimMiss decides why the completed -> claimed swap matched
// nothing.
func (r *ClaimRepository) classifyClaimMiss(ctx context.Context, progressID primitive.ObjectID) error {
	var progress models.Progress
	err := r.progress.FindOne(ctx, bson.M{"_id": progressID}).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		return err
	}
	if progress.Status == models.ProgressStatusClaimed {
		return models.ErrAlreadyClaimed
	}
	return models.ErrNotEligible
}
