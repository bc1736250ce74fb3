package models

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IssueCategory enum
type IssueCategory string

const (
	CategoryPothole       IssueCategory = "pothole"
	CategoryTrafficLight  IssueCategory = "traffic-light"
	CategoryRoadDamage    IssueCategory = "road-damage"
	CategoryDrainage      IssueCategory = "drainage"
	CategoryStreetlight   IssueCategory = "streetlight"
	CategorySignage       IssueCategory = "signage"
	CategoryConstruction  IssueCategory = "construction"
	CategoryAccidentProne IssueCategory = "accident-prone"
	CategoryOther         IssueCategory = "other"
)

var IssueCategories = []IssueCategory{
	CategoryPothole, CategoryTrafficLight, CategoryRoadDamage, CategoryDrainage,
	CategoryStreetlight, CategorySignage, CategoryConstruction, CategoryAccidentProne,
	CategoryOther,
}

func (c IssueCategory) Valid() bool {
	for _, v := range IssueCategories {
		if c == v {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusApproved   IssueStatus = "approved"
	StatusDeclined   IssueStatus = "declined"
	StatusInProgress IssueStatus = "in-progress"
	StatusAssigned   IssueStatus = "assigned"
	StatusResolved   IssueStatus = "resolved"
)

var IssueStatuses = []IssueStatus{
	StatusPending, StatusApproved, StatusDeclined, StatusInProgress, StatusAssigned, StatusResolved,
}

func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

var IssuePriorities = []IssuePriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p IssuePriority) Valid() bool {
	for _, v := range IssuePriorities {
		if p == v {
			return true
		}
	}
	return false
}

// History actions that are not statuses.
const (
	ActionCreated    = "created"
	ActionUnassigned = "unassigned"
)

// Location is where the reported problem is.
type Location struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
	Address string  `bson:"address" json:"address"`
}

// LocationInput is a submitted location. Coordinates are pointers so a
// missing value is rejected rather than read as 0.
type LocationInput struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

// Location converts the input; absent coordinates become 0.
func (l LocationInput) Location() Location {
	loc := Location{Address: l.Address}
	if l.Lat != nil {
		loc.Lat = *l.Lat
	}
	if l.Lng != nil {
		loc.Lng = *l.Lng
	}
	return loc
}

// HistoryEntry is one immutable lifecycle event on an issue.
type HistoryEntry struct {
	Action    string             `bson:"action" json:"action"`
	Message   string             `bson:"message" json:"message"`
	ActionBy  primitive.ObjectID `bson:"actionBy" json:"actionBy"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Issue represents a reported road-infrastructure problem
type Issue struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	IssueID       string              `bson:"issueId" json:"issueId"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Category      IssueCategory       `bson:"category" json:"category"`
	Location      Location            `bson:"location" json:"location"`
	ImageURL      *string             `bson:"imageUrl" json:"imageUrl"`
	Status        IssueStatus         `bson:"status" json:"status"`
	ReportedBy    primitive.ObjectID  `bson:"reportedBy" json:"reportedBy"`
	AssignedTo    *primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	UpvotesCount  int                 `bson:"upvotesCount" json:"upvotesCount"`
	CommentsCount int                 `bson:"commentsCount" json:"commentsCount"`
	Priority      IssuePriority       `bson:"priority" json:"priority"`
	EstimatedCost *float64            `bson:"estimatedCost" json:"estimatedCost"`
	History       []HistoryEntry      `bson:"history" json:"history"`
	Tags          []string            `bson:"tags" json:"tags"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`

	// UserVote is the viewer's current vote; it is never persisted.
	UserVote *VoteType `bson:"-" json:"userVote,omitempty"`
}

// IssueInput is what a citizen submits when reporting an issue.
type IssueInput struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description" binding:"required"`
	Category    IssueCategory `json:"category" binding:"required,issuecategory"`
	Location    LocationInput `json:"location"`
	ImageURL    *string       `json:"imageUrl"`
	Tags        []string      `json:"tags"`
}

// Normalize trims free-text fields in place.
func (in *IssueInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location.Address = strings.TrimSpace(in.Location.Address)
	if in.ImageURL != nil {
		url := strings.TrimSpace(*in.ImageURL)
		if url == "" {
			in.ImageURL = nil
		} else {
			in.ImageURL = &url
		}
	}
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
}

// Validate checks a normalized input.
func (in *IssueInput) Validate() error {
	if err := lengthBetween("title", in.Title, 5, 200); err != nil {
		return err
	}
	if err := lengthBetween("description", in.Description, 10, 1000); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return NewValidationError("category", "Invalid category")
	}
	return in.Location.Validate()
}

// Validate checks that both coordinates are present and in range, and the
// address length.
func (l LocationInput) Validate() error {
	if l.Lat == nil || math.IsNaN(*l.Lat) || *l.Lat < -90 || *l.Lat > 90 {
		return NewValidationError("location.lat", "Invalid latitude")
	}
	if l.Lng == nil || math.IsNaN(*l.Lng) || *l.Lng < -180 || *l.Lng > 180 {
		return NewValidationError("location.lng", "Invalid longitude")
	}
	return lengthBetween("location.address", l.Address, 5, 200)
}

func lengthBetween(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return NewValidationError(field, fmt.Sprintf("must be between %d and %d characters", min, max))
	}
	return nil
}

// NewIssue builds a pending issue whose history starts with a created entry.
func NewIssue(in IssueInput, issueID string, reporter primitive.ObjectID, now time.Time) *Issue {
	return &Issue{
		ID:          primitive.NewObjectID(),
		IssueID:     issueID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location.Location(),
		ImageURL:    in.ImageURL,
		Status:      StatusPending,
		ReportedBy:  reporter,
		Priority:    PriorityMedium,
		History: []HistoryEntry{{
			Action:    ActionCreated,
			Message:   "Issue reported",
			ActionBy:  reporter,
			Timestamp: now,
		}},
		Tags:      in.Tags,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IssueMutation is one atomic update of an issue document. The precondition
// fields guard against applying a transition computed from a stale read.
type IssueMutation struct {
	ExpectStatus     IssueStatus
	CheckAssignee    bool
	ExpectAssignedTo *primitive.ObjectID

	Status        *IssueStatus
	Priority      *IssuePriority
	SetAssignee   bool
	AssignedTo    *primitive.ObjectID
	EstimatedCost *float64
	History       []HistoryEntry
	UpdatedAt     time.Time
}

// Empty reports whether the mutation changes nothing.
func (m IssueMutation) Empty() bool {
	return m.Status == nil && m.Priority == nil && !m.SetAssignee &&
		m.EstimatedCost == nil && len(m.History) == 0
}

// Apply performs the mutation on an in-memory copy of the issue.
func (m IssueMutation) Apply(issue *Issue) {
	if m.Status != nil {
		issue.Status = *m.Status
	}
	if m.Priority != nil {
		issue.Priority = *m.Priority
	}
	if m.SetAssignee {
		issue.AssignedTo = m.AssignedTo
	}
	if m.EstimatedCost != nil {
		cost := *m.EstimatedCost
		issue.EstimatedCost = &cost
	}
	issue.History = append(issue.History, m.History...)
	if !m.UpdatedAt.IsZero() {
		issue.UpdatedAt = m.UpdatedAt
	}
}

// IssueQuery filters, sorts and pages issue listings.
type IssueQuery struct {
	Status   IssueStatus   `form:"status"`
	Category IssueCategory `form:"category"`
	Priority IssuePriority `form:"priority"`
	Search   string        `form:"search"`
	SortBy   string        `form:"sortBy"`
	Order    string        `form:"order"`
	Page     int           `form:"page"`
	Limit    int           `form:"limit"`
}

var issueSortFields = map[string]bool{
	"createdAt": true, "updatedAt": true, "upvotesCount": true,
	"commentsCount": true, "priority": true, "status": true,
}

// Listing bounds. MaxPage keeps the skip offset well inside int range.
const (
	MaxPageLimit = 100
	MaxPage      = 100000
)

// Normalize fills defaults and rejects unknown filter values.
func (q *IssueQuery) Normalize(defaultLimit int) error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		return NewValidationError("page", fmt.Sprintf("Page must not exceed %d", MaxPage))
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if !issueSortFields[q.SortBy] {
		return NewValidationError("sortBy", "Invalid sort field")
	}
	if q.Order != "asc" {
		q.Order = "desc"
	}
	if q.Status != "" && !q.Status.Valid() {
		return NewValidationError("status", "Invalid status")
	}
	if q.Category != "" && !q.Category.Valid() {
		return NewValidationError("category", "Invalid category")
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return NewValidationError("priority", "Invalid priority")
	}
	q.Search = strings.TrimSpace(q.Search)
	return nil
}

// Skip is the number of documents before the requested page.
func (q IssueQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// CountByKey is one bucket of a grouped count.
type CountByKey struct {
	Key   string `bson:"_id" json:"_id"`
	Count int64  `bson:"count" json:"count"`
}

// MonthKey identifies one calendar month.
type MonthKey struct {
	Year  int `bson:"year" json:"year"`
	Month int `bson:"month" json:"month"`
}

// MonthlyCount is the number of issues reported in one calendar month.
type MonthlyCount struct {
	Month MonthKey `bson:"_id" json:"_id"`
	Count int64    `bson:"count" json:"count"`
}

// IssueOverview holds the headline counters of the public dashboard.
type IssueOverview struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Resolved   int64 `json:"resolved"`
	InProgress int64 `json:"inProgress"`
}

// IssueStats is the public dashboard summary.
type IssueStats struct {
	Overview      IssueOverview `json:"overview"`
	CategoryStats []CountByKey  `json:"categoryStats"`
}

// AdminOverview holds the headline counters of the administrative dashboard.
type AdminOverview struct {
	Total int64 `json:"total"`
}

// AdminStats is the administrative dashboard summary.
type AdminStats struct {
	Overview      AdminOverview  `json:"overview"`
	StatusStats   []CountByKey   `json:"statusStats"`
	PriorityStats []CountByKey   `json:"priorityStats"`
	CategoryStats []CountByKey   `json:"categoryStats"`
	RecentIssues  []IssueView    `json:"recentIssues"`
	MonthlyTrends []MonthlyCount `json:"monthlyTrends"`
}

// EnsureIssueIndexes creates the issue collection indexes
func EnsureIssueIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "issueId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}
