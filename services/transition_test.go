package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"rms-be/mocks"
	"rms-be/models"
)

func TestPlanStatusChange(t *testing.T) {
	actor := primitive.NewObjectID()
	f := newFixture(t, nil)
	issue := models.NewIssue(validInput(), "RMS10001", f.citizen.ID, f.now)
	high := models.PriorityHigh

	tests := []struct {
		name     string
		change   StatusChange
		changed  bool
		history  int
		message  string
		priority bool
	}{
		{"same status", StatusChange{Status: models.StatusPending}, false, 0, "", false},
		{"same status with priority", StatusChange{Status: models.StatusPending, Priority: &high}, false, 0, "", true},
		{"default message", StatusChange{Status: models.StatusApproved}, true, 1, "Status changed from pending to approved", false},
		{"custom message", StatusChange{Status: models.StatusDeclined, Message: "  duplicate report "}, true, 1, "duplicate report", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, changed := PlanStatusChange(issue, tt.change, actor, f.now)
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
			if len(m.History) != tt.history {
				t.Fatalf("len(History) = %d, want %d", len(m.History), tt.history)
			}
			if tt.history == 1 {
				h := m.History[0]
				if h.Message != tt.message {
					t.Errorf("Message = %q, want %q", h.Message, tt.message)
				}
				if h.Action != string(tt.change.Status) || h.ActionBy != actor || !h.Timestamp.Equal(f.now) {
					t.Errorf("History[0] = %+v, want action %q by %s", h, tt.change.Status, actor.Hex())
				}
			}
			if (m.Priority != nil) != tt.priority {
				t.Errorf("Priority set = %v, want %v", m.Priority != nil, tt.priority)
			}
			if m.ExpectStatus != models.StatusPending {
				t.Errorf("ExpectStatus = %q, want pending", m.ExpectStatus)
			}
		})
	}
}

func TestPlanAssignment(t *testing.T) {
	f := newFixture(t, nil)
	actor := f.admin.ID
	b := f.authority.ID
	c := primitive.NewObjectID()
	cost := 1500.0

	unassigned := models.NewIssue(validInput(), "RMS10001", f.citizen.ID, f.now)
	assigned := models.NewIssue(validInput(), "RMS10002", f.citizen.ID, f.now)
	assigned.AssignedTo = &b
	assigned.Status = models.StatusAssigned

	tests := []struct {
		name     string
		issue    *models.Issue
		change   AssignmentChange
		assigned bool
		empty    bool
		status   models.IssueStatus
		action   string
	}{
		{"assign", unassigned, AssignmentChange{AssigneeID: &b}, true, false, models.StatusAssigned, "assigned"},
		{"reassign", assigned, AssignmentChange{AssigneeID: &c}, true, false, models.StatusAssigned, "assigned"},
		{"same assignee", assigned, AssignmentChange{AssigneeID: &b}, false, true, "", ""},
		{"unassign", assigned, AssignmentChange{}, false, false, models.StatusApproved, models.ActionUnassigned},
		{"unassign nobody", unassigned, AssignmentChange{}, false, true, "", ""},
		{"cost only", unassigned, AssignmentChange{EstimatedCost: &cost}, false, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, got := PlanAssignment(tt.issue, tt.change, actor, f.now)
			if got != tt.assigned {
				t.Errorf("assigned = %v, want %v", got, tt.assigned)
			}
			if m.Empty() != tt.empty {
				t.Errorf("Empty() = %v, want %v", m.Empty(), tt.empty)
			}
			if tt.status == "" {
				if m.Status != nil {
					t.Errorf("Status = %q, want unchanged", *m.Status)
				}
				if len(m.History) != 0 {
					t.Errorf("len(History) = %d, want 0", len(m.History))
				}
				return
			}
			if m.Status == nil || *m.Status != tt.status {
				t.Errorf("Status = %v, want %q", m.Status, tt.status)
			}
			if len(m.History) != 1 || m.History[0].Action != tt.action {
				t.Errorf("History = %+v, want one %q entry", m.History, tt.action)
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issue := f.seed(t)

	got, err := f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusPending}, f.admin.Actor())
	if err != nil {
		t.Fatalf("SetStatus(same) error = %v", err)
	}
	if len(got.History) != 1 {
		t.Errorf("len(History) after same status = %d, want 1", len(got.History))
	}

	urgent := models.PriorityUrgent
	got, err = f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusApproved, Priority: &urgent}, f.authority.Actor())
	if err != nil {
		t.Fatalf("SetStatus(approved) error = %v", err)
	}
	if got.Status != models.StatusApproved || got.Priority != models.PriorityUrgent {
		t.Errorf("issue = %s/%s, want approved/urgent", got.Status, got.Priority)
	}
	if len(got.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(got.History))
	}
	if last := got.History[1]; last.ActionBy != f.authority.ID || last.Action != string(models.StatusApproved) {
		t.Errorf("History[1] = %+v", last)
	}
	if !got.UpdatedAt.Equal(f.now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, f.now)
	}

	low := models.PriorityLow
	got, err = f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusApproved, Priority: &low}, f.admin.Actor())
	if err != nil {
		t.Fatalf("SetStatus(priority only) error = %v", err)
	}
	if got.Priority != models.PriorityLow || len(got.History) != 2 {
		t.Errorf("priority only: priority %s history %d, want low and 2", got.Priority, len(got.History))
	}
}

func TestSetStatusRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issue := f.seed(t)
	bogus := models.IssuePriority("whenever")

	tests := []struct {
		name   string
		id     primitive.ObjectID
		change StatusChange
		actor  models.Actor
		want   error
	}{
		{"citizen", issue.ID, StatusChange{Status: models.StatusApproved}, f.citizen.Actor(), models.ErrForbidden},
		{"unknown status", issue.ID, StatusChange{Status: "closed"}, f.admin.Actor(), models.ErrInvalidInput},
		{"unknown priority", issue.ID, StatusChange{Status: models.StatusApproved, Priority: &bogus}, f.admin.Actor(), models.ErrInvalidInput},
		{"missing issue", primitive.NewObjectID(), StatusChange{Status: models.StatusApproved}, f.admin.Actor(), models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SetStatus(ctx, tt.id, tt.change, tt.actor)
			if !errors.Is(err, tt.want) {
				t.Errorf("SetStatus() error = %v, want %v", err, tt.want)
			}
		})
	}

	after := f.reload(t, issue.ID)
	if after.Status != models.StatusPending || len(after.History) != 1 {
		t.Errorf("issue = %s with %d history entries, want untouched", after.Status, len(after.History))
	}
}

func TestSetStatusStaleWriteConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issue := f.seed(t)

	m, _ := PlanStatusChange(issue, StatusChange{Status: models.StatusApproved}, f.admin.ID, f.now)
	if _, err := f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusDeclined}, f.admin.Actor()); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if _, err := f.store.UpdateIssue(ctx, issue.ID, m); !errors.Is(err, models.ErrConflict) {
		t.Errorf("UpdateIssue(stale) error = %v, want ErrConflict", err)
	}
	if got := f.reload(t, issue.ID); got.Status != models.StatusDeclined || len(got.History) != 2 {
		t.Errorf("issue = %s with %d history entries, want declined with 2", got.Status, len(got.History))
	}
}

func TestSetStatusPersistenceFailure(t *testing.T) {
	f := newFixture(t, nil)
	issue := f.seed(t)
	f.store.FailUpdates = true

	if _, err := f.engine.SetStatus(context.Background(), issue.ID, StatusChange{Status: models.StatusResolved}, f.admin.Actor()); err == nil {
		t.Fatal("SetStatus() error = nil, want store failure")
	}
	f.store.FailUpdates = false
	if got := f.reload(t, issue.ID); got.Status != models.StatusPending || len(got.History) != 1 {
		t.Errorf("issue = %s with %d history entries, want untouched", got.Status, len(got.History))
	}
}

func TestSetAssignment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issue := f.seed(t)
	b := f.authority.ID
	cost := 2500.0

	got, err := f.engine.SetAssignment(ctx, issue.ID, AssignmentChange{AssigneeID: &b, EstimatedCost: &cost}, f.admin.Actor())
	if err != nil {
		t.Fatalf("SetAssignment(assign) error = %v", err)
	}
	if got.Status != models.StatusAssigned || got.AssignedTo == nil || *got.AssignedTo != b {
		t.Errorf("issue = %s assigned to %v, want assigned to %s", got.Status, got.AssignedTo, b.Hex())
	}
	if got.EstimatedCost == nil || *got.EstimatedCost != cost {
		t.Errorf("EstimatedCost = %v, want %v", got.EstimatedCost, cost)
	}
	if len(got.History) != 2 || got.History[1].Message != "Issue assigned to maintenance team" {
		t.Errorf("History = %+v, want assignment entry", got.History)
	}

	got, err = f.engine.SetAssignment(ctx, issue.ID, AssignmentChange{AssigneeID: &b}, f.admin.Actor())
	if err != nil {
		t.Fatalf("SetAssignment(same) error = %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("len(History) after same assignee = %d, want 2", len(got.History))
	}

	got, err = f.engine.SetAssignment(ctx, issue.ID, AssignmentChange{}, f.authority.Actor())
	if err != nil {
		t.Fatalf("SetAssignment(unassign) error = %v", err)
	}
	if got.AssignedTo != nil || got.Status != models.StatusApproved {
		t.Errorf("issue = %s assigned to %v, want approved and unassigned", got.Status, got.AssignedTo)
	}
	if len(got.History) != 3 || got.History[2].Action != models.ActionUnassigned {
		t.Errorf("History = %+v, want unassigned entry", got.History)
	}
}

func TestSetAssignmentRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issue := f.seed(t)

	retired := models.User{ID: primitive.NewObjectID(), Name: "Retired", Email: "retired@example.com", Role: models.RoleAuthority}
	if err := f.store.CreateUser(ctx, &retired); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	stranger := primitive.NewObjectID()
	citizen := f.neighbour.ID
	negative := -1.0
	nan := math.NaN()
	b := f.authority.ID

	tests := []struct {
		name   string
		change AssignmentChange
		actor  models.Actor
		want   error
	}{
		{"citizen actor", AssignmentChange{AssigneeID: &b}, f.citizen.Actor(), models.ErrForbidden},
		{"citizen assignee", AssignmentChange{AssigneeID: &citizen}, f.admin.Actor(), models.ErrForbidden},
		{"unknown assignee", AssignmentChange{AssigneeID: &stranger}, f.admin.Actor(), models.ErrForbidden},
		{"inactive assignee", AssignmentChange{AssigneeID: &retired.ID}, f.admin.Actor(), models.ErrForbidden},
		{"negative cost", AssignmentChange{AssigneeID: &b, EstimatedCost: &negative}, f.admin.Actor(), models.ErrInvalidInput},
		{"nan cost", AssignmentChange{EstimatedCost: &nan}, f.admin.Actor(), models.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SetAssignment(ctx, issue.ID, tt.change, tt.actor)
			if !errors.Is(err, tt.want) {
				t.Errorf("SetAssignment() error = %v, want %v", err, tt.want)
			}
		})
	}

	got := f.reload(t, issue.ID)
	if got.AssignedTo != nil || got.Status != models.StatusPending || len(got.History) != 1 || got.EstimatedCost != nil {
		t.Errorf("issue = %+v, want untouched", got)
	}
}

func TestTransitionNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	f := newFixture(t, sender)
	ctx := context.Background()
	issue := f.seed(t)
	b := f.authority.ID

	sender.EXPECT().
		Send(gomock.Any(), f.citizen.Email, "Issue Status Updated - "+issue.IssueID, gomock.Any()).
		Return(nil).
		Times(1)
	sender.EXPECT().
		Send(gomock.Any(), f.citizen.Email, "Issue Assigned - "+issue.IssueID, gomock.Any()).
		Return(nil).
		Times(1)

	if _, err := f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusApproved}, f.admin.Actor()); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	// Same status and unassign send nothing.
	if _, err := f.engine.SetStatus(ctx, issue.ID, StatusChange{Status: models.StatusApproved}, f.admin.Actor()); err != nil {
		t.Fatalf("SetStatus(same) error = %v", err)
	}
	if _, err := f.engine.SetAssignment(ctx, issue.ID, AssignmentChange{AssigneeID: &b}, f.admin.Actor()); err != nil {
		t.Fatalf("SetAssignment() error = %v", err)
	}
	if _, err := f.engine.SetAssignment(ctx, issue.ID, AssignmentChange{}, f.admin.Actor()); err != nil {
		t.Fatalf("SetAssignment(unassign) error = %v", err)
	}
	f.notifier.Wait()
}

func TestTransitionSurvivesNotificationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	f := newFixture(t, sender)
	issue := f.seed(t)

	sender.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp: connection refused"))

	got, err := f.engine.SetStatus(context.Background(), issue.ID, StatusChange{Status: models.StatusResolved}, f.admin.Actor())
	if err != nil {
		t.Fatalf("SetStatus() error = %v, want nil despite mail failure", err)
	}
	f.notifier.Wait()
	if got.Status != models.StatusResolved {
		t.Errorf("Status = %s, want resolved", got.Status)
	}
	if after := f.reload(t, issue.ID); after.Status != models.StatusResolved {
		t.Errorf("stored Status = %s, want resolved", after.Status)
	}
}
