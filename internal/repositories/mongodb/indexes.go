package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
)

// EnsureIndexes creates the indexes the engine relies on. Safe to call
// on every startup; MongoDB treats existing identical indexes as a
// no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database, dedupWindow time.Duration) error {
	tasks := db.Collection("tasks")
	if _, err := tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "endAt", Value: 1}}},
	}); err != nil {
		return err
	}

	progress := db.Collection("progress")
	if _, err := progress.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// One open instance per (user, task) pair: uniqueness applies
		// only while the record is non-terminal, so an expired or
		// claimed instance leaves room for the next cycle.
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "taskId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": models.NonTerminalStatuses()},
			}),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "taskId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "taskId", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return err
	}

	admins := db.Collection("admin_users")
	if _, err := admins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: uniqueIndex(),
	}); err != nil {
		return err
	}

	return ensureEventIndexes(ctx, db, dedupWindow)
}

func uniqueIndex() *options.IndexOptions {
	return options.Index().SetUnique(true)
}

func ttlIndex(window time.Duration) *options.IndexOptions {
	return options.Index().SetExpireAfterSeconds(int32(window / time.Second))
}
