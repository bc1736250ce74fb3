package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// StatusChange is an administrative status update.
type StatusChange struct {
	Status   models.IssueStatus
	Message  string
	Priority *models.IssuePriority
}

// AssignmentChange sets or clears the maintenance assignee. A nil AssigneeID
// clears the assignment.
type AssignmentChange struct {
	AssigneeID    *primitive.ObjectID
	EstimatedCost *float64
}

// TransitionEngine governs status and assignment changes and the history
// entries they append.
type TransitionEngine struct {
	issues   IssueStore
	users    UserStore
	notifier *Notifier
	now      func() time.Time
}

// NewTransitionEngine creates a new TransitionEngine.
func NewTransitionEngine(issues IssueStore, users UserStore, notifier *Notifier) *TransitionEngine {
	return &TransitionEngine{issues: issues, users: users, notifier: notifier, now: time.Now}
}

// SetStatus moves an issue to change.Status and optionally sets its priority.
// The reporter is notified only when the status actually changed.
func (e *TransitionEngine) SetStatus(ctx context.Context, issueID primitive.ObjectID, change StatusChange, actor models.Actor) (*models.Issue, error) {
	if !actor.Role.Elevated() {
		return nil, fmt.Errorf("set status: %w", models.ErrForbidden)
	}
	if !change.Status.Valid() {
		return nil, models.NewValidationError("status", "Invalid status")
	}
	if change.Priority != nil && !change.Priority.Valid() {
		return nil, models.NewValidationError("priority", "Invalid priority")
	}

	issue, err := e.issues.FindIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	m, changed := PlanStatusChange(issue, change, actor.ID, e.now())
	if m.Empty() {
		return issue, nil
	}

	updated, err := e.issues.UpdateIssue(ctx, issueID, m)
	if err != nil {
		return nil, err
	}

	if changed {
		e.notifier.IssueUpdated(*updated, "Issue Status Updated - "+updated.IssueID)
	}
	return updated, nil
}

// SetAssignment assigns or unassigns an issue and optionally records its
// estimated cost. The reporter is notified only on a new assignee.
func (e *TransitionEngine) SetAssignment(ctx context.Context, issueID primitive.ObjectID, change AssignmentChange, actor models.Actor) (*models.Issue, error) {
	if !actor.Role.Elevated() {
		return nil, fmt.Errorf("set assignment: %w", models.ErrForbidden)
	}
	if c := change.EstimatedCost; c != nil && (*c < 0 || math.IsNaN(*c) || math.IsInf(*c, 0)) {
		return nil, models.NewValidationError("estimatedCost", "Estimated cost must be a non-negative number")
	}
	if change.AssigneeID != nil {
		if err := e.checkAssignee(ctx, *change.AssigneeID); err != nil {
			return nil, err
		}
	}

	issue, err := e.issues.FindIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	m, assigned := PlanAssignment(issue, change, actor.ID, e.now())
	if m.Empty() {
		return issue, nil
	}

	updated, err := e.issues.UpdateIssue(ctx, issueID, m)
	if err != nil {
		return nil, err
	}

	if assigned {
		e.notifier.IssueUpdated(*updated, "Issue Assigned - "+updated.IssueID)
	}
	return updated, nil
}

func (e *TransitionEngine) checkAssignee(ctx context.Context, id primitive.ObjectID) error {
	user, err := e.users.FindUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("invalid assignee %s: %w", id.Hex(), models.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !user.IsActive || !user.Role.Elevated() {
		return fmt.Errorf("assignee %s lacks authority role: %w", id.Hex(), models.ErrForbidden)
	}
	return nil
}

// PlanStatusChange computes the mutation for a status update and reports
// whether the status changes. Setting the current status appends no history.
func PlanStatusChange(issue *models.Issue, change StatusChange, actorID primitive.ObjectID, now time.Time) (models.IssueMutation, bool) {
	m := models.IssueMutation{ExpectStatus: issue.Status}
	changed := change.Status != issue.Status

	if changed {
		status := change.Status
		message := strings.TrimSpace(change.Message)
		if message == "" {
			message = fmt.Sprintf("Status changed from %s to %s", issue.Status, status)
		}
		m.Status = &status
		m.History = []models.HistoryEntry{{
			Action:    string(status),
			Message:   message,
			ActionBy:  actorID,
			Timestamp: now,
		}}
	}
	if change.Priority != nil {
		priority := *change.Priority
		m.Priority = &priority
	}
	if !m.Empty() {
		m.UpdatedAt = now
	}
	return m, changed
}

// PlanAssignment computes the mutation for an assignment update and reports
// whether a new assignee was set. A new assignee forces status assigned;
// clearing an existing assignee forces status approved.
func PlanAssignment(issue *models.Issue, change AssignmentChange, actorID primitive.ObjectID, now time.Time) (models.IssueMutation, bool) {
	m := models.IssueMutation{CheckAssignee: true, ExpectAssignedTo: issue.AssignedTo}
	assigned := false

	switch {
	case change.AssigneeID != nil && (issue.AssignedTo == nil || *issue.AssignedTo != *change.AssigneeID):
		assignee := *change.AssigneeID
		status := models.StatusAssigned
		m.SetAssignee = true
		m.AssignedTo = &assignee
		m.Status = &status
		m.History = []models.HistoryEntry{{
			Action:    string(models.StatusAssigned),
			Message:   "Issue assigned to maintenance team",
			ActionBy:  actorID,
			Timestamp: now,
		}}
		assigned = true
	case change.AssigneeID == nil && issue.AssignedTo != nil:
		status := models.StatusApproved
		m.SetAssignee = true
		m.AssignedTo = nil
		m.Status = &status
		m.History = []models.HistoryEntry{{
			Action:    models.ActionUnassigned,
			Message:   "Issue unassigned from maintenance team",
			ActionBy:  actorID,
			Timestamp: now,
		}}
	}

	if change.EstimatedCost != nil {
		cost := *change.EstimatedCost
		m.EstimatedCost = &cost
	}
	if !m.Empty() {
		m.UpdatedAt = now
	}
	return m, assigned
}
