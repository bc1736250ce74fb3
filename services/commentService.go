package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// CommentService is the per-issue engagement log.
type CommentService struct {
	issues   IssueStore
	comments CommentStore
	users    userDirectory
	now      func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(issues IssueStore, comments CommentStore, users UserStore) *CommentService {
	return &CommentService{issues: issues, comments: comments, users: userDirectory{users: users}, now: time.Now}
}

// Add stores a comment by author on an issue and bumps its comment tally. The
// returned comment carries its author's name.
func (s *CommentService) Add(ctx context.Context, issueID, authorID primitive.ObjectID, text string) (*models.CommentView, error) {
	text, err := models.NormalizeCommentText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.issues.FindIssue(ctx, issueID); err != nil {
		return nil, err
	}

	now := s.now()
	comment := &models.Comment{
		ID:        primitive.NewObjectID(),
		IssueID:   issueID,
		UserID:    authorID,
		Text:      text,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	views, err := s.users.commentViews(ctx, []models.Comment{*comment})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns the active comments of an active issue, newest first, with
// their authors' names.
func (s *CommentService) List(ctx context.Context, issueID primitive.ObjectID) ([]models.CommentView, error) {
	if _, err := s.issues.FindIssue(ctx, issueID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListComments(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return s.users.commentViews(ctx, comments)
}

// Delete soft-deletes a comment of issueID. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, issueID, commentID primitive.ObjectID, actor models.Actor) (*models.Issue, error) {
	comment, err := s.comments.FindComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IssueID != issueID {
		return nil, fmt.Errorf("comment %s on issue %s: %w", commentID.Hex(), issueID.Hex(), models.ErrNotFound)
	}
	if comment.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("delete comment %s: %w", commentID.Hex(), models.ErrForbidden)
	}
	return s.comments.DeactivateComment(ctx, comment, s.now())
}
