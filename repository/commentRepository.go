package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rms-be/models"
)

// CommentRepository stores comments and keeps the issue comment tally in step with them.
type CommentRepository struct {
	client   *mongo.Client
	comments *mongo.Collection
	issues   *mongo.Collection
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(client *mongo.Client, db *mongo.Database) *CommentRepository {
	return &CommentRepository{
		client:   client,
		comments: db.Collection(CommentsCollection),
		issues:   db.Collection(IssuesCollection),
	}
}

// CreateComment inserts the comment and increments the issue's comment tally
// in one transaction.
func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Issue, error) {
	var issue *models.Issue
	err := inTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if _, err := r.comments.InsertOne(sc, comment); err != nil {
			return translate(err, "insert comment")
		}
		updated, err := adjustTally(sc, r.issues, comment.IssueID, "commentsCount", 1, comment.CreatedAt)
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

// FindComment retrieves an active comment by its ID.
func (r *CommentRepository) FindComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.comments.FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&comment)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find comment %s", id.Hex()))
	}
	return &comment, nil
}

// ListComments returns the active comments of an issue, newest first.
func (r *CommentRepository) ListComments(ctx context.Context, issueID primitive.ObjectID) ([]models.Comment, error) {
	cursor, err := r.comments.Find(ctx,
		bson.M{"issueId": issueID, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// DeactivateComment soft-deletes the comment and decrements the issue's
// comment tally in one transaction.
func (r *CommentRepository) DeactivateComment(ctx context.Context, comment *models.Comment, at time.Time) (*models.Issue, error) {
	var issue *models.Issue
	err := inTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		res, err := r.comments.UpdateOne(sc,
			bson.M{"_id": comment.ID, "isActive": true},
			bson.M{"$set": bson.M{"isActive": false, "updatedAt": at}})
		if err != nil {
			return translate(err, "deactivate comment")
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("deactivate comment %s: %w", comment.ID.Hex(), models.ErrNotFound)
		}
		updated, err := adjustTally(sc, r.issues, comment.IssueID, "commentsCount", -1, at)
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
