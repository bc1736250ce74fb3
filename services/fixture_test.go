package services

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
	"rms-be/repository/memstore"
)

type fixture struct {
	store *memstore.Store
	now   time.Time

	citizen   *models.User
	neighbour *models.User
	authority *models.User
	admin     *models.User

	notifier *Notifier
	ids      *IssueIDGenerator
	issues   *IssueService
	ledger   *VoteLedger
	engine   *TransitionEngine
	comments *CommentService
}

func newFixture(t *testing.T, sender Sender) *fixture {
	t.Helper()

	store := memstore.New()
	f := &fixture{store: store, now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.citizen = addUser(t, store, "Asha", "asha@example.com", models.RoleCitizen)
	f.neighbour = addUser(t, store, "Bilal", "bilal@example.com", models.RoleCitizen)
	f.authority = addUser(t, store, "Public Works", "works@example.com", models.RoleAuthority)
	f.admin = addUser(t, store, "Admin", "admin@example.com", models.RoleAdmin)

	if sender == nil {
		sender = NoopSender{}
	}
	f.notifier = NewNotifier(sender, store, "http://client.test")
	t.Cleanup(f.notifier.Wait)

	f.ids = NewIssueIDGenerator(store)
	f.ids.now = clock
	f.issues = NewIssueService(store, store, store, store, f.ids, f.notifier)
	f.issues.now = clock
	f.ledger = NewVoteLedger(store, store)
	f.ledger.now = clock
	f.engine = NewTransitionEngine(store, store, f.notifier)
	f.engine.now = clock
	f.comments = NewCommentService(store, store, store)
	f.comments.now = clock
	return f
}

func addUser(t *testing.T, store *memstore.Store, name, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Email:    email,
		Phone:    "9876543210",
		Role:     role,
		IsActive: true,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return u
}

func validInput() models.IssueInput {
	return models.IssueInput{
		Title:       "Deep pothole near school gate",
		Description: "A pothole about a foot wide has opened in the left lane.",
		Category:    models.CategoryPothole,
		Location:    models.LocationInput{Lat: coord(28.6139), Lng: coord(77.2090), Address: "Janpath Road, New Delhi"},
		Tags:        []string{"school", " lane "},
	}
}

func coord(v float64) *float64 { return &v }

// report creates an issue through the service, as a citizen would.
func (f *fixture) report(t *testing.T) *models.Issue {
	t.Helper()
	issue, err := f.issues.Create(context.Background(), f.citizen.Actor(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return issue
}

// seed stores an issue directly, bypassing notifications.
func (f *fixture) seed(t *testing.T) *models.Issue {
	t.Helper()
	issue := models.NewIssue(validInput(), "RMS"+primitive.NewObjectID().Hex()[:6], f.citizen.ID, f.now)
	if err := f.store.CreateIssue(context.Background(), issue); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	return issue
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *models.Issue {
	t.Helper()
	issue, err := f.store.FindIssue(context.Background(), id)
	if err != nil {
		t.Fatalf("FindIssue() error = %v", err)
	}
	return issue
}
