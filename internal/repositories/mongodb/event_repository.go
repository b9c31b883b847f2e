package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure EventRepository implements the interface
var _ repositories.EventRepository = (*EventRepository)(nil)

// EventRepository is the persisted seen-set for event deduplication.
// The unique index on eventId arbitrates concurrent deliveries of the
// same event; a TTL index prunes entries after the dedup window.
type EventRepository struct {
	collection *mongo.Collection
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection("reward_events"),
	}
}

type seenEvent struct {
	EventID string    `bson:"eventId"`
	SeenAt  time.Time `bson:"seenAt"`
}

// MarkSeen inserts the event id, reporting false when it was already
// recorded.
func (r *EventRepository) MarkSeen(ctx context.Context, eventID string, at time.Time) (bool, error) {
	_, err := r.collection.InsertOne(ctx, seenEvent{EventID: eventID, SeenAt: at})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Forget releases an event id so a redelivery can be applied.
func (r *EventRepository) Forget(ctx context.Context, eventID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"eventId": eventID})
	return err
}

// ensureEventIndexes creates the uniqueness and TTL indexes backing the
// seen-set.
func ensureEventIndexes(ctx context.Context, db *mongo.Database, dedupWindow time.Duration) error {
	coll := db.Collection("reward_events")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: uniqueIndex(),
		},
		{
			Keys:    bson.D{{Key: "seenAt", Value: 1}},
			Options: ttlIndex(dedupWindow),
		},
	})
	return err
}
