// Package services holds the issue lifecycle logic: identifier minting, the
// vote ledger, the engagement log and the status/assignment transition engine.
package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// IssueStore defines the issue data access consumed by the services.
type IssueStore interface {
	CreateIssue(ctx context.Context, issue *models.Issue) error
	FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	ListIssues(ctx context.Context, q models.IssueQuery) ([]models.Issue, int64, error)
	UpdateIssue(ctx context.Context, id primitive.ObjectID, m models.IssueMutation) (*models.Issue, error)
	DeactivateIssue(ctx context.Context, id primitive.ObjectID, at time.Time) error
	IssueStats(ctx context.Context) (*models.IssueStats, error)
	AdminIssueStats(ctx context.Context, since time.Time) (*models.AdminStats, error)
}

// VoteStore defines the vote data access consumed by the vote ledger.
type VoteStore interface {
	FindVote(ctx context.Context, userID, issueID primitive.ObjectID) (*models.Vote, error)
	VotesByUser(ctx context.Context, userID primitive.ObjectID, issueIDs []primitive.ObjectID) (map[primitive.ObjectID]models.VoteType, error)
	ApplyVote(ctx context.Context, m models.VoteMutation) (*models.Issue, error)
}

// CommentStore defines the comment data access consumed by the engagement log.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Issue, error)
	FindComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListComments(ctx context.Context, issueID primitive.ObjectID) ([]models.Comment, error)
	DeactivateComment(ctx context.Context, comment *models.Comment, at time.Time) (*models.Issue, error)
}

// CounterStore mints values from named sequences.
type CounterStore interface {
	NextSequence(ctx context.Context, name string, seed int64) (int64, error)
}

// UserStore defines the user data access consumed by the services.
type UserStore interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsersByRole(ctx context.Context, roles []models.Role, limit int) ([]models.User, error)
}
