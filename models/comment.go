package models

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const MaxCommentLength = 500

// Comment is one user's feedback on an issue
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	IssueID   primitive.ObjectID `bson:"issueId" json:"issueId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Text      string             `bson:"text" json:"text"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeCommentText trims text and enforces the length limits.
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewValidationError("text", "Comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", NewValidationError("text", "Comment cannot exceed 500 characters")
	}
	return text, nil
}

// EnsureCommentIndex creates the (issueId, createdAt) listing index
func EnsureCommentIndex(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}
