package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rms-be/models"
)

// CounterRepository owns named sequences.
type CounterRepository struct {
	counters *mongo.Collection
}

// NewCounterRepository creates a new CounterRepository.
func NewCounterRepository(db *mongo.Database) *CounterRepository {
	return &CounterRepository{counters: db.Collection(CountersCollection)}
}

// NextSequence atomically increments the named counter and returns the new
// value. A missing counter starts at seed, so the first value is seed+1.
func (r *CounterRepository) NextSequence(ctx context.Context, name string, seed int64) (int64, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "sequence_value", Value: bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$sequence_value", seed}}},
			1,
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter models.Counter
	if err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return counter.SequenceValue, nil
}
