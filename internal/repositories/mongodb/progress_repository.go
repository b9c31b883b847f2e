package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure ProgressRepository implements the interface
var _ repositories.ProgressRepository = (*ProgressRepository)(nil)

// ProgressRepository handles MongoDB operations for the progress ledger.
// Every mutation is a single conditional document update, so concurrent
// callers are serialized by the storage engine on the record itself.
type ProgressRepository struct {
	collection *mongo.Collection
}

// NewProgressRepository creates a new ProgressRepository
func NewProgressRepository(db *mongo.Database) *ProgressRepository {
	return &ProgressRepository{
		collection: db.Collection("progress"),
	}
}

// Create inserts a new progress record. The unique partial index on
// (userId, taskId) over non-terminal statuses arbitrates concurrent
// inserts for the same pair: the loser gets a duplicate-key error.
func (r *ProgressRepository) Create(ctx context.Context, progress *models.Progress) error {
	progress.ID = primitive.NewObjectID()
	progress.CreatedAt = time.Now()
	progress.UpdatedAt = progress.CreatedAt
	_, err := r.collection.InsertOne(ctx, progress)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateInstance
		}
		return err
	}
	return nil
}

// FindByID finds a progress record by ID
func (r *ProgressRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Progress, error) {
	var progress models.Progress
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// FindOpenByUserAndTask finds the non-terminal instance for the pair
func (r *ProgressRepository) FindOpenByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error) {
	filter := bson.M{
		"userId": userID,
		"taskId": taskID,
		"status": bson.M{"$in": models.NonTerminalStatuses()},
	}
	var progress models.Progress
	err := r.collection.FindOne(ctx, filter).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// FindLatestByUserAndTask finds the most recently created instance for
// the pair regardless of status
func (r *ProgressRepository) FindLatestByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (*models.Progress, error) {
	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	var progress models.Progress
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "taskId": taskID}, opts).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// CountByUserAndTask counts every instance ever created for the pair
func (r *ProgressRepository) CountByUserAndTask(ctx context.Context, userID string, taskID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID, "taskId": taskID})
}

// FindAll finds progress records matching the filter with pagination
func (r *ProgressRepository) FindAll(ctx context.Context, filter repositories.ProgressFilter, page, limit int) ([]*models.Progress, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.TaskID != nil {
		query["taskId"] = *filter.TaskID
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.Progress
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.Progress{}
	}
	return records, nil
}

// FindByUser finds all progress records for a user
func (r *ProgressRepository) FindByUser(ctx context.Context, userID string) ([]*models.Progress, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.Progress
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.Progress{}
	}
	return records, nil
}

// IncrementProgress atomically advances the counter clamped to goal and
// flips the record to completed when the clamp lands on the goal. The
// whole increment is one update pipeline on one document, so concurrent
// events for the same record can never overshoot or lose an increment.
func (r *ProgressRepository) IncrementProgress(ctx context.Context, id primitive.ObjectID, quantity, goal int) (*models.Progress, error) {
	filter := bson.M{"_id": id, "status": models.ProgressStatusInProgress}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"progress":  bson.M{"$min": bson.A{goal, bson.M{"$add": bson.A{"$progress", quantity}}}},
			"updatedAt": time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$progress", goal}},
				models.ProgressStatusCompleted,
				"$status",
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var progress models.Progress
	err := r.collection.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.classifyMiss(ctx, id, models.ErrWrongState)
		}
		return nil, err
	}
	return &progress, nil
}

// TransitionStatus compare-and-swaps the lifecycle status
func (r *ProgressRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus, to models.ProgressStatus) (*models.Progress, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var progress models.Progress
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.classifyMiss(ctx, id, models.ErrWrongState)
		}
		return nil, err
	}
	return &progress, nil
}

// Reset performs the administrator restart
func (r *ProgressRepository) Reset(ctx context.Context, id primitive.ObjectID, from []models.ProgressStatus) (*models.Progress, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{
		"$set":   bson.M{"progress": 0, "status": models.ProgressStatusInProgress, "updatedAt": time.Now()},
		"$unset": bson.M{"claimedAt": ""},
		"$inc":   bson.M{"attempts": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var progress models.Progress
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.classifyMiss(ctx, id, models.ErrWrongState)
		}
		return nil, err
	}
	return &progress, nil
}

// RecordAttempt bumps the claim-attempt counter
func (r *ProgressRepository) RecordAttempt(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"attempts": 1}})
	return err
}

// ExpireByTask bulk-expires instances of a task
func (r *ProgressRepository) ExpireByTask(ctx context.Context, taskID primitive.ObjectID, from []models.ProgressStatus, now time.Time) (int64, error) {
	filter := bson.M{"taskId": taskID, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": models.ProgressStatusExpired, "updatedAt": now}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// HasOpenByTask reports whether live instances still reference the task
func (r *ProgressRepository) HasOpenByTask(ctx context.Context, taskID primitive.ObjectID) (bool, error) {
	filter := bson.M{"taskId": taskID, "status": bson.M{"$in": models.NonTerminalStatuses()}}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a progress record
func (r *ProgressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByTask removes every progress record referencing the task
func (r *ProgressRepository) DeleteByTask(ctx context.Context, taskID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// classifyMiss distinguishes "record does not exist" from "record is in
// the wrong state" after a conditional update matched nothing.
func (r *ProgressRepository) classifyMiss(ctx context.Context, id primitive.ObjectID, stateErr error) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return stateErr
}
