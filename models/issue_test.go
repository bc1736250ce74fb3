package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueInputValidate(t *testing.T) {
	base := func() IssueInput {
		return IssueInput{
			Title:       "Broken streetlight",
			Description: "The light at the corner has been out for a week.",
			Category:    CategoryStreetlight,
			Location:    LocationInput{Lat: coord(-33.86), Lng: coord(151.21), Address: "George St, Sydney"},
		}
	}

	tests := []struct {
		name  string
		edit  func(*IssueInput)
		field string
	}{
		{"valid", func(*IssueInput) {}, ""},
		{"boundary coordinates", func(in *IssueInput) { in.Location.Lat = coord(90); in.Location.Lng = coord(-180) }, ""},
		{"zero coordinates", func(in *IssueInput) { in.Location.Lat = coord(0); in.Location.Lng = coord(0) }, ""},
		{"title too long", func(in *IssueInput) { in.Title = strings.Repeat("t", 201) }, "title"},
		{"description too long", func(in *IssueInput) { in.Description = strings.Repeat("d", 1001) }, "description"},
		{"empty category", func(in *IssueInput) { in.Category = "" }, "category"},
		{"latitude below", func(in *IssueInput) { in.Location.Lat = coord(-90.01) }, "location.lat"},
		{"longitude above", func(in *IssueInput) { in.Location.Lng = coord(180.01) }, "location.lng"},
		{"latitude missing", func(in *IssueInput) { in.Location.Lat = nil }, "location.lat"},
		{"longitude missing", func(in *IssueInput) { in.Location.Lng = nil }, "location.lng"},
		{"both coordinates missing", func(in *IssueInput) { in.Location = LocationInput{Address: "George St, Sydney"} }, "location.lat"},
		{"address too long", func(in *IssueInput) { in.Location.Address = strings.Repeat("a", 201) }, "location.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.edit(&in)
			err := in.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Validate() error = %v, want %s", err, tt.field)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("errors.Is(%v, ErrInvalidInput) = false", err)
			}
		})
	}
}

func coord(v float64) *float64 { return &v }

func TestIssueInputNormalize(t *testing.T) {
	blank := "   "
	in := IssueInput{
		Title:    "  Flooded underpass ",
		Location: LocationInput{Address: "  Ring Road  "},
		ImageURL: &blank,
		Tags:     []string{" rain", "", "  "},
	}
	in.Normalize()

	if in.Title != "Flooded underpass" || in.Location.Address != "Ring Road" {
		t.Errorf("Normalize() = %q / %q, want trimmed", in.Title, in.Location.Address)
	}
	if in.ImageURL != nil {
		t.Errorf("ImageURL = %q, want nil", *in.ImageURL)
	}
	if len(in.Tags) != 1 || in.Tags[0] != "rain" {
		t.Errorf("Tags = %q, want [rain]", in.Tags)
	}
}

func TestIssueQueryNormalize(t *testing.T) {
	q := IssueQuery{Limit: 500, Order: "sideways"}
	if err := q.Normalize(10); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := IssueQuery{Page: 1, Limit: MaxPageLimit, SortBy: "createdAt", Order: "desc"}
	if q != want {
		t.Errorf("Normalize() = %+v, want %+v", q, want)
	}
	if q.Skip() != 0 {
		t.Errorf("Skip() = %d, want 0", q.Skip())
	}

	q = IssueQuery{Page: 3, Order: "asc", Search: "  pothole "}
	if err := q.Normalize(20); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if q.Limit != 20 || q.Skip() != 40 || q.Order != "asc" || q.Search != "pothole" {
		t.Errorf("Normalize() = %+v", q)
	}

	q = IssueQuery{Page: MaxPage, Limit: 1000}
	if err := q.Normalize(10); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if want := (MaxPage - 1) * MaxPageLimit; q.Skip() != want {
		t.Errorf("Skip() = %d, want %d", q.Skip(), want)
	}

	for _, bad := range []IssueQuery{
		{SortBy: "title"},
		{Status: "closed"},
		{Category: "meteor"},
		{Priority: "whenever"},
		{Page: MaxPage + 1},
		{Page: int(^uint(0) >> 1)},
	} {
		if err := bad.Normalize(10); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Normalize(%+v) error = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestIssueMutationApply(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	issue := NewIssue(IssueInput{Title: "t", Category: CategoryOther}, "RMS10001", primitive.NewObjectID(), now)

	if !(IssueMutation{ExpectStatus: StatusPending}).Empty() {
		t.Error("Empty() = false for precondition-only mutation")
	}

	assignee := primitive.NewObjectID()
	status := StatusAssigned
	IssueMutation{
		Status:      &status,
		SetAssignee: true,
		AssignedTo:  &assignee,
		History:     []HistoryEntry{{Action: string(StatusAssigned)}},
		UpdatedAt:   later,
	}.Apply(issue)

	if issue.Status != StatusAssigned || issue.AssignedTo == nil || *issue.AssignedTo != assignee {
		t.Errorf("Apply() = %s assigned to %v", issue.Status, issue.AssignedTo)
	}
	if len(issue.History) != 2 || !issue.UpdatedAt.Equal(later) {
		t.Errorf("Apply() history %d updatedAt %v", len(issue.History), issue.UpdatedAt)
	}

	IssueMutation{SetAssignee: true}.Apply(issue)
	if issue.AssignedTo != nil {
		t.Errorf("AssignedTo = %v, want cleared", issue.AssignedTo)
	}
}

func TestNormalizeCommentText(t *testing.T) {
	if got, err := NormalizeCommentText("  fixed?  "); err != nil || got != "fixed?" {
		t.Errorf("NormalizeCommentText() = %q, %v", got, err)
	}
	if _, err := NormalizeCommentText(strings.Repeat("ü", MaxCommentLength)); err != nil {
		t.Errorf("NormalizeCommentText(500 runes) error = %v", err)
	}
	if _, err := NormalizeCommentText(" "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NormalizeCommentText(blank) error = %v, want ErrInvalidInput", err)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
