package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rms-be/models"
)

// VoteRepository stores votes and keeps the issue upvote tally in step with them.
type VoteRepository struct {
	client *mongo.Client
	votes  *mongo.Collection
	issues *mongo.Collection
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(client *mongo.Client, db *mongo.Database) *VoteRepository {
	return &VoteRepository{
		client: client,
		votes:  db.Collection(VotesCollection),
		issues: db.Collection(IssuesCollection),
	}
}

// FindVote retrieves the vote a user holds on an issue.
func (r *VoteRepository) FindVote(ctx context.Context, userID, issueID primitive.ObjectID) (*models.Vote, error) {
	var vote models.Vote
	err := r.votes.FindOne(ctx, bson.M{"userId": userID, "issueId": issueID}).Decode(&vote)
	if err != nil {
		return nil, translate(err, "find vote")
	}
	return &vote, nil
}

// VotesByUser maps each of issueIDs the user has voted on to the vote type.
func (r *VoteRepository) VotesByUser(ctx context.Context, userID primitive.ObjectID, issueIDs []primitive.ObjectID) (map[primitive.ObjectID]models.VoteType, error) {
	result := make(map[primitive.ObjectID]models.VoteType, len(issueIDs))
	if len(issueIDs) == 0 {
		return result, nil
	}

	cursor, err := r.votes.Find(ctx, bson.M{"userId": userID, "issueId": bson.M{"$in": issueIDs}})
	if err != nil {
		return nil, fmt.Errorf("find user votes: %w", err)
	}
	defer cursor.Close(ctx)

	var votes []models.Vote
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, fmt.Errorf("decode user votes: %w", err)
	}
	for _, v := range votes {
		result[v.IssueID] = v.Vote
	}
	return result, nil
}

// ApplyVote commits a vote change and the matching tally adjustment in one
// transaction. A concurrent duplicate insert fails on the unique (userId,
// issueId) index and surfaces as ErrConflict, as does an update or removal
// whose stored vote no longer has the expected type.
func (r *VoteRepository) ApplyVote(ctx context.Context, m models.VoteMutation) (*models.Issue, error) {
	var issue *models.Issue
	err := inTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		switch m.Action {
		case models.VoteAdded:
			if _, err := r.votes.InsertOne(sc, m.Vote); err != nil {
				return translate(err, "insert vote")
			}
		case models.VoteUpdated:
			res, err := r.votes.UpdateOne(sc,
				bson.M{"_id": m.Vote.ID, "vote": m.PreviousType},
				bson.M{"$set": bson.M{"vote": m.Vote.Vote, "updatedAt": m.At}})
			if err != nil {
				return translate(err, "update vote")
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("update vote %s: %w", m.Vote.ID.Hex(), models.ErrConflict)
			}
		case models.VoteRemoved:
			res, err := r.votes.DeleteOne(sc, bson.M{"_id": m.Vote.ID, "vote": m.PreviousType})
			if err != nil {
				return translate(err, "delete vote")
			}
			if res.DeletedCount == 0 {
				return fmt.Errorf("delete vote %s: %w", m.Vote.ID.Hex(), models.ErrConflict)
			}
		default:
			return fmt.Errorf("unknown vote action %q", m.Action)
		}

		updated, err := adjustTally(sc, r.issues, m.Vote.IssueID, "upvotesCount", m.TallyDelta, m.At)
		if err != nil {
			return err
		}
		issue = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}
