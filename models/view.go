package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserSummary is the public part of a user embedded in issue and comment
// responses in place of a bare reference.
type UserSummary struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email,omitempty"`
	Phone string             `json:"phone,omitempty"`
}

// Summary returns the user's summary, with contact details when contact is
// set. It returns nil for a nil user so dangling references render as null.
func (u *User) Summary(contact bool) *UserSummary {
	if u == nil {
		return nil
	}
	s := &UserSummary{ID: u.ID, Name: u.Name}
	if contact {
		s.Email = u.Email
		s.Phone = u.Phone
	}
	return s
}

// IssueView is an issue with its reporter and assignee expanded. The outer
// fields shadow the embedded references when encoded.
type IssueView struct {
	Issue
	ReportedBy *UserSummary `json:"reportedBy"`
	AssignedTo *UserSummary `json:"assignedTo"`
}

// NewIssueViews wraps issues without expanding their references.
func NewIssueViews(issues []Issue) []IssueView {
	views := make([]IssueView, len(issues))
	for i := range issues {
		views[i].Issue = issues[i]
	}
	return views
}

// CommentView is a comment with its author expanded.
type CommentView struct {
	Comment
	UserID *UserSummary `json:"userId"`
}
