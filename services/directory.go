package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// userDirectory resolves user references on issues and comments into
// summaries with one batched lookup per response.
type userDirectory struct {
	users UserStore
}

func (d userDirectory) lookup(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	found := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	seen := make(map[primitive.ObjectID]bool, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	users, err := d.users.FindUsers(ctx, unique)
	if err != nil {
		return nil, err
	}
	for i := range users {
		found[users[i].ID] = &users[i]
	}
	return found, nil
}

// expandIssues fills the reporter and assignee of each view. With contact
// set the summaries carry email and phone.
func (d userDirectory) expandIssues(ctx context.Context, views []models.IssueView, contact bool) error {
	ids := make([]primitive.ObjectID, 0, 2*len(views))
	for i := range views {
		ids = append(ids, views[i].Issue.ReportedBy)
		if a := views[i].Issue.AssignedTo; a != nil {
			ids = append(ids, *a)
		}
	}

	users, err := d.lookup(ctx, ids)
	if err != nil {
		return err
	}
	for i := range views {
		views[i].ReportedBy = users[views[i].Issue.ReportedBy].Summary(contact)
		views[i].AssignedTo = nil
		if a := views[i].Issue.AssignedTo; a != nil {
			views[i].AssignedTo = users[*a].Summary(contact)
		}
	}
	return nil
}

func (d userDirectory) issueViews(ctx context.Context, issues []models.Issue, contact bool) ([]models.IssueView, error) {
	views := models.NewIssueViews(issues)
	if err := d.expandIssues(ctx, views, contact); err != nil {
		return nil, err
	}
	return views, nil
}

func (d userDirectory) issueView(ctx context.Context, issue *models.Issue) (*models.IssueView, error) {
	views, err := d.issueViews(ctx, []models.Issue{*issue}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// commentViews fills the author of each comment, by name only.
func (d userDirectory) commentViews(ctx context.Context, comments []models.Comment) ([]models.CommentView, error) {
	ids := make([]primitive.ObjectID, len(comments))
	for i := range comments {
		ids[i] = comments[i].UserID
	}
	users, err := d.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, len(comments))
	for i := range comments {
		views[i] = models.CommentView{Comment: comments[i], UserID: users[comments[i].UserID].Summary(false)}
	}
	return views, nil
}
