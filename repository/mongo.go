// Package repository holds the MongoDB-backed record store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rms-be/models"
)

// Collection names.
const (
	IssuesCollection   = "issues"
	VotesCollection    = "votes"
	CommentsCollection = "comments"
	CountersCollection = "counters"
	UsersCollection    = "users"
)

// EnsureIndexes creates every index the store relies on, including the
// uniqueness constraints that back the vote ledger and issue identifiers.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := models.EnsureIssueIndexes(ctx, db.Collection(IssuesCollection)); err != nil {
		return fmt.Errorf("issue indexes: %w", err)
	}
	if err := models.EnsureVoteIndex(ctx, db.Collection(VotesCollection)); err != nil {
		return fmt.Errorf("vote index: %w", err)
	}
	if err := models.EnsureCommentIndex(ctx, db.Collection(CommentsCollection)); err != nil {
		return fmt.Errorf("comment index: %w", err)
	}
	if err := models.EnsureUserIndex(ctx, db.Collection(UsersCollection)); err != nil {
		return fmt.Errorf("user index: %w", err)
	}
	return nil
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, models.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// inTransaction runs fn inside a multi-document transaction. The deployment
// must be a replica set or sharded cluster.
func inTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// adjustTally adds delta to a denormalized counter on an active issue,
// flooring the result at zero, and returns the updated issue.
func adjustTally(ctx context.Context, issues *mongo.Collection, id primitive.ObjectID, field string, delta int, at time.Time) (*models.Issue, error) {
	filter := bson.M{"_id": id, "isActive": true}

	var issue models.Issue
	if delta == 0 {
		if err := issues.FindOne(ctx, filter).Decode(&issue); err != nil {
			return nil, translate(err, fmt.Sprintf("find issue %s", id.Hex()))
		}
		return &issue, nil
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: field, Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$add", Value: bson.A{"$" + field, delta}}},
			}}}},
			{Key: "updatedAt", Value: at},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := issues.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue); err != nil {
		return nil, translate(err, fmt.Sprintf("adjust %s on issue %s", field, id.Hex()))
	}
	return &issue, nil
}
