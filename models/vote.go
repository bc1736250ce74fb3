package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VoteType enum
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// VoteAction is the outcome of casting a vote.
type VoteAction string

const (
	VoteAdded   VoteAction = "added"
	VoteUpdated VoteAction = "updated"
	VoteRemoved VoteAction = "removed"
)

// Vote represents a user's current vote on an issue
type Vote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	IssueID   primitive.ObjectID `bson:"issueId" json:"issueId"`
	Vote      VoteType           `bson:"vote" json:"vote"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VoteMutation is a vote change together with the tally adjustment that
// must be committed with it.
type VoteMutation struct {
	Action VoteAction
	// Vote carries the record after the change; for VoteRemoved it is the
	// record being deleted.
	Vote Vote
	// PreviousType is the type the stored record must still have for an
	// update or removal to apply.
	PreviousType VoteType
	TallyDelta   int
	At           time.Time
}

// EnsureVoteIndex creates a unique compound index for (userId, issueId)
func EnsureVoteIndex(ctx context.Context, collection *mongo.Collection) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "issueId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
