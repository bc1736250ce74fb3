package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// Default page sizes for the public and administrative listings.
const (
	PublicPageLimit = 10
	AdminPageLimit  = 20
)

// IssuePage is one page of issues.
type IssuePage struct {
	Issues     []models.IssueView `json:"issues"`
	Pagination models.Pagination  `json:"pagination"`
}

// IssueDetail is an issue with its comments and the viewer's vote.
type IssueDetail struct {
	Issue    *models.IssueView    `json:"issue"`
	Comments []models.CommentView `json:"comments"`
	UserVote *models.VoteType     `json:"userVote"`
}

// IssueService handles reporting, browsing and removing issues.
type IssueService struct {
	issues   IssueStore
	votes    VoteStore
	comments CommentStore
	users    userDirectory
	ids      *IssueIDGenerator
	notifier *Notifier
	now      func() time.Time
}

// NewIssueService creates a new IssueService.
func NewIssueService(issues IssueStore, votes VoteStore, comments CommentStore, users UserStore, ids *IssueIDGenerator, notifier *Notifier) *IssueService {
	return &IssueService{
		issues:   issues,
		votes:    votes,
		comments: comments,
		users:    userDirectory{users: users},
		ids:      ids,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create validates in and stores a new pending issue reported by actor.
func (s *IssueService) Create(ctx context.Context, actor models.Actor, in models.IssueInput) (*models.Issue, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	issue := models.NewIssue(in, s.ids.Next(ctx), actor.ID, s.now())
	if err := s.issues.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}

	s.notifier.IssueUpdated(*issue, "Issue Reported - "+issue.IssueID)
	return issue, nil
}

// View expands the reporter and assignee of issue, with contact details.
func (s *IssueService) View(ctx context.Context, issue *models.Issue) (*models.IssueView, error) {
	return s.users.issueView(ctx, issue)
}

// List returns one page of active issues with reporter and assignee names.
// When viewer is set each issue carries the viewer's vote.
func (s *IssueService) List(ctx context.Context, q models.IssueQuery, defaultLimit int, viewer *primitive.ObjectID) (*IssuePage, error) {
	return s.list(ctx, q, defaultLimit, viewer, false)
}

// AdminList returns one page of active issues for the triage dashboard, with
// reporter and assignee contact details.
func (s *IssueService) AdminList(ctx context.Context, q models.IssueQuery) (*IssuePage, error) {
	return s.list(ctx, q, AdminPageLimit, nil, true)
}

func (s *IssueService) list(ctx context.Context, q models.IssueQuery, defaultLimit int, viewer *primitive.ObjectID, contact bool) (*IssuePage, error) {
	if err := q.Normalize(defaultLimit); err != nil {
		return nil, err
	}

	issues, total, err := s.issues.ListIssues(ctx, q)
	if err != nil {
		return nil, err
	}

	if viewer != nil && len(issues) > 0 {
		ids := make([]primitive.ObjectID, len(issues))
		for i := range issues {
			ids[i] = issues[i].ID
		}
		votes, err := s.votes.VotesByUser(ctx, *viewer, ids)
		if err != nil {
			return nil, err
		}
		for i := range issues {
			if v, ok := votes[issues[i].ID]; ok {
				issues[i].UserVote = &v
			}
		}
	}

	views, err := s.users.issueViews(ctx, issues, contact)
	if err != nil {
		return nil, err
	}
	return &IssuePage{
		Issues:     views,
		Pagination: models.NewPagination(q.Page, q.Limit, len(issues), total),
	}, nil
}

// Get returns an active issue with its active comments and the viewer's vote.
func (s *IssueService) Get(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*IssueDetail, error) {
	issue, err := s.issues.FindIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := s.users.issueView(ctx, issue)
	if err != nil {
		return nil, err
	}
	commentViews, err := s.users.commentViews(ctx, comments)
	if err != nil {
		return nil, err
	}

	detail := &IssueDetail{Issue: view, Comments: commentViews}
	if viewer != nil {
		vote, err := s.votes.FindVote(ctx, *viewer, id)
		switch {
		case err == nil:
			detail.UserVote = &vote.Vote
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}
	return detail, nil
}

// Delete soft-deletes an issue. Only its reporter or an admin may do so.
func (s *IssueService) Delete(ctx context.Context, id primitive.ObjectID, actor models.Actor) error {
	issue, err := s.issues.FindIssue(ctx, id)
	if err != nil {
		return err
	}
	if issue.ReportedBy != actor.ID && actor.Role != models.RoleAdmin {
		return fmt.Errorf("delete issue %s: %w", id.Hex(), models.ErrForbidden)
	}
	return s.issues.DeactivateIssue(ctx, id, s.now())
}

// Stats returns the public dashboard summary.
func (s *IssueService) Stats(ctx context.Context) (*models.IssueStats, error) {
	return s.issues.IssueStats(ctx)
}

// AdminStats returns the administrative dashboard with six months of trends.
func (s *IssueService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	now := s.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -6, 0)
	stats, err := s.issues.AdminIssueStats(ctx, since)
	if err != nil {
		return nil, err
	}
	if err := s.users.expandIssues(ctx, stats.RecentIssues, false); err != nil {
		return nil, err
	}
	return stats, nil
}
