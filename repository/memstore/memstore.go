// Package memstore is an in-memory record store with the same atomicity and
// uniqueness guarantees as the MongoDB repositories. Every operation holds a
// single lock, so each call behaves like one committed transaction.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

type voteKey struct {
	user, issue primitive.ObjectID
}

// Store holds issues, votes, comments, counters and users in memory.
type Store struct {
	mu       sync.Mutex
	issues   map[primitive.ObjectID]*models.Issue
	votes    map[voteKey]*models.Vote
	comments map[primitive.ObjectID]*models.Comment
	counters map[string]int64
	users    map[primitive.ObjectID]*models.User

	// FailCounter makes NextSequence fail, simulating an unreachable store.
	FailCounter bool
	// FailUpdates makes UpdateIssue, ApplyVote and comment writes fail.
	FailUpdates bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		issues:   make(map[primitive.ObjectID]*models.Issue),
		votes:    make(map[voteKey]*models.Vote),
		comments: make(map[primitive.ObjectID]*models.Comment),
		counters: make(map[string]int64),
		users:    make(map[primitive.ObjectID]*models.User),
	}
}

var errStoreDown = fmt.Errorf("memstore: simulated failure")

func cloneIssue(i *models.Issue) *models.Issue {
	c := *i
	c.History = append([]models.HistoryEntry(nil), i.History...)
	c.Tags = append([]string(nil), i.Tags...)
	if i.AssignedTo != nil {
		id := *i.AssignedTo
		c.AssignedTo = &id
	}
	if i.EstimatedCost != nil {
		v := *i.EstimatedCost
		c.EstimatedCost = &v
	}
	if i.ImageURL != nil {
		v := *i.ImageURL
		c.ImageURL = &v
	}
	c.UserVote = nil
	return &c
}

// CreateIssue inserts a new issue; a duplicate issueId is a conflict.
func (s *Store) CreateIssue(_ context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ID]; ok {
		return fmt.Errorf("insert issue: %w", models.ErrConflict)
	}
	for _, existing := range s.issues {
		if existing.IssueID == issue.IssueID {
			return fmt.Errorf("insert issue: %w", models.ErrConflict)
		}
	}
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

// FindIssue retrieves an active issue.
func (s *Store) FindIssue(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, err := s.activeIssue(id)
	if err != nil {
		return nil, err
	}
	return cloneIssue(issue), nil
}

func (s *Store) activeIssue(id primitive.ObjectID) (*models.Issue, error) {
	issue, ok := s.issues[id]
	if !ok || !issue.IsActive {
		return nil, fmt.Errorf("find issue %s: %w", id.Hex(), models.ErrNotFound)
	}
	return issue, nil
}

// ListIssues filters, sorts and pages active issues.
func (s *Store) ListIssues(_ context.Context, q models.IssueQuery) ([]models.Issue, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(q.Search)
	var matched []models.Issue
	for _, issue := range s.issues {
		if !issue.IsActive {
			continue
		}
		if q.Status != "" && issue.Status != q.Status {
			continue
		}
		if q.Category != "" && issue.Category != q.Category {
			continue
		}
		if q.Priority != "" && issue.Priority != q.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.Description), search) &&
			!strings.Contains(strings.ToLower(issue.IssueID), search) {
			continue
		}
		matched = append(matched, *cloneIssue(issue))
	}

	sort.Slice(matched, func(i, j int) bool {
		less := lessBy(q.SortBy, &matched[i], &matched[j])
		if q.Order == "asc" {
			return less
		}
		return lessBy(q.SortBy, &matched[j], &matched[i])
	})

	total := int64(len(matched))
	start := q.Skip()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]models.Issue{}, matched[start:end]...), total, nil
}

func lessBy(field string, a, b *models.Issue) bool {
	switch field {
	case "updatedAt":
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	case "upvotesCount":
		if a.UpvotesCount != b.UpvotesCount {
			return a.UpvotesCount < b.UpvotesCount
		}
	case "commentsCount":
		if a.CommentsCount != b.CommentsCount {
			return a.CommentsCount < b.CommentsCount
		}
	case "priority":
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
	case "status":
		if a.Status != b.Status {
			return a.Status < b.Status
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID.Hex() < b.ID.Hex()
}

// UpdateIssue applies m atomically after checking its precondition.
func (s *Store) UpdateIssue(_ context.Context, id primitive.ObjectID, m models.IssueMutation) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return nil, errStoreDown
	}

	issue, err := s.activeIssue(id)
	if err != nil {
		return nil, err
	}
	if m.ExpectStatus != "" && issue.Status != m.ExpectStatus {
		return nil, fmt.Errorf("update issue %s: %w", id.Hex(), models.ErrConflict)
	}
	if m.CheckAssignee && !sameAssignee(issue.AssignedTo, m.ExpectAssignedTo) {
		return nil, fmt.Errorf("update issue %s: %w", id.Hex(), models.ErrConflict)
	}

	m.Apply(issue)
	return cloneIssue(issue), nil
}

func sameAssignee(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DeactivateIssue soft-deletes an issue.
func (s *Store) DeactivateIssue(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, err := s.activeIssue(id)
	if err != nil {
		return err
	}
	issue.IsActive = false
	issue.UpdatedAt = at
	return nil
}

// IssueStats computes the public dashboard counters.
func (s *Store) IssueStats(_ context.Context) (*models.IssueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.IssueStats{}
	categories := map[string]int64{}
	for _, issue := range s.issues {
		if !issue.IsActive {
			continue
		}
		stats.Overview.Total++
		switch issue.Status {
		case models.StatusPending:
			stats.Overview.Pending++
		case models.StatusResolved:
			stats.Overview.Resolved++
		case models.StatusInProgress, models.StatusAssigned:
			stats.Overview.InProgress++
		}
		categories[string(issue.Category)]++
	}
	stats.CategoryStats = buckets(categories)
	return stats, nil
}

// AdminIssueStats computes the administrative dashboard.
func (s *Store) AdminIssueStats(_ context.Context, since time.Time) (*models.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.AdminStats{}
	recent := []models.Issue{}
	statuses, priorities, categories := map[string]int64{}, map[string]int64{}, map[string]int64{}
	months := map[models.MonthKey]int64{}
	for _, issue := range s.issues {
		if !issue.IsActive {
			continue
		}
		stats.Overview.Total++
		statuses[string(issue.Status)]++
		priorities[string(issue.Priority)]++
		categories[string(issue.Category)]++
		if !issue.CreatedAt.Before(since) {
			months[models.MonthKey{Year: issue.CreatedAt.Year(), Month: int(issue.CreatedAt.Month())}]++
		}
		recent = append(recent, *cloneIssue(issue))
	}
	stats.StatusStats = buckets(statuses)
	stats.PriorityStats = buckets(priorities)
	stats.CategoryStats = buckets(categories)

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentIssues = models.NewIssueViews(recent)

	stats.MonthlyTrends = []models.MonthlyCount{}
	for k, n := range months {
		stats.MonthlyTrends = append(stats.MonthlyTrends, models.MonthlyCount{Month: k, Count: n})
	}
	sort.Slice(stats.MonthlyTrends, func(i, j int) bool {
		a, b := stats.MonthlyTrends[i].Month, stats.MonthlyTrends[j].Month
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return stats, nil
}

func buckets(counts map[string]int64) []models.CountByKey {
	out := make([]models.CountByKey, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.CountByKey{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// FindVote retrieves the vote a user holds on an issue.
func (s *Store) FindVote(_ context.Context, userID, issueID primitive.ObjectID) (*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vote, ok := s.votes[voteKey{userID, issueID}]
	if !ok {
		return nil, fmt.Errorf("find vote: %w", models.ErrNotFound)
	}
	v := *vote
	return &v, nil
}

// VotesByUser maps issues the user voted on to the vote type.
func (s *Store) VotesByUser(_ context.Context, userID primitive.ObjectID, issueIDs []primitive.ObjectID) (map[primitive.ObjectID]models.VoteType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[primitive.ObjectID]models.VoteType, len(issueIDs))
	for _, id := range issueIDs {
		if v, ok := s.votes[voteKey{userID, id}]; ok {
			result[id] = v.Vote
		}
	}
	return result, nil
}

// ApplyVote commits the vote change and tally adjustment together.
func (s *Store) ApplyVote(_ context.Context, m models.VoteMutation) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return nil, errStoreDown
	}

	issue, err := s.activeIssue(m.Vote.IssueID)
	if err != nil {
		return nil, err
	}

	key := voteKey{m.Vote.UserID, m.Vote.IssueID}
	existing, exists := s.votes[key]
	switch m.Action {
	case models.VoteAdded:
		if exists {
			return nil, fmt.Errorf("insert vote: %w", models.ErrConflict)
		}
		v := m.Vote
		s.votes[key] = &v
	case models.VoteUpdated:
		if !exists || existing.ID != m.Vote.ID || existing.Vote != m.PreviousType {
			return nil, fmt.Errorf("update vote: %w", models.ErrConflict)
		}
		existing.Vote = m.Vote.Vote
		existing.UpdatedAt = m.At
	case models.VoteRemoved:
		if !exists || existing.ID != m.Vote.ID || existing.Vote != m.PreviousType {
			return nil, fmt.Errorf("delete vote: %w", models.ErrConflict)
		}
		delete(s.votes, key)
	default:
		return nil, fmt.Errorf("unknown vote action %q", m.Action)
	}

	if m.TallyDelta != 0 {
		issue.UpvotesCount = max(0, issue.UpvotesCount+m.TallyDelta)
		issue.UpdatedAt = m.At
	}
	return cloneIssue(issue), nil
}

// CountVotes returns how many votes of type vt reference an issue.
func (s *Store) CountVotes(issueID primitive.ObjectID, vt models.VoteType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.votes {
		if k.issue == issueID && v.Vote == vt {
			n++
		}
	}
	return n
}

// CreateComment inserts a comment and bumps the issue's comment tally.
func (s *Store) CreateComment(_ context.Context, comment *models.Comment) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return nil, errStoreDown
	}

	issue, err := s.activeIssue(comment.IssueID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.comments[comment.ID]; ok {
		return nil, fmt.Errorf("insert comment: %w", models.ErrConflict)
	}
	c := *comment
	s.comments[c.ID] = &c
	issue.CommentsCount++
	issue.UpdatedAt = comment.CreatedAt
	return cloneIssue(issue), nil
}

// FindComment retrieves an active comment.
func (s *Store) FindComment(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || !c.IsActive {
		return nil, fmt.Errorf("find comment %s: %w", id.Hex(), models.ErrNotFound)
	}
	out := *c
	return &out, nil
}

// ListComments returns the active comments of an issue, newest first.
func (s *Store) ListComments(_ context.Context, issueID primitive.ObjectID) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Comment{}
	for _, c := range s.comments {
		if c.IssueID == issueID && c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

// DeactivateComment soft-deletes a comment and decrements the tally.
func (s *Store) DeactivateComment(_ context.Context, comment *models.Comment, at time.Time) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return nil, errStoreDown
	}

	c, ok := s.comments[comment.ID]
	if !ok || !c.IsActive {
		return nil, fmt.Errorf("deactivate comment: %w", models.ErrNotFound)
	}
	issue, err := s.activeIssue(c.IssueID)
	if err != nil {
		return nil, err
	}
	c.IsActive = false
	c.UpdatedAt = at
	issue.CommentsCount = max(0, issue.CommentsCount-1)
	issue.UpdatedAt = at
	return cloneIssue(issue), nil
}

// CountActiveComments returns the number of active comments on an issue.
func (s *Store) CountActiveComments(issueID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.comments {
		if c.IssueID == issueID && c.IsActive {
			n++
		}
	}
	return n
}

// NextSequence increments a named counter, starting from seed.
func (s *Store) NextSequence(_ context.Context, name string, seed int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCounter {
		return 0, errStoreDown
	}
	v, ok := s.counters[name]
	if !ok {
		v = seed
	}
	v++
	s.counters[name] = v
	return v, nil
}

// FindUser retrieves a user by ID.
func (s *Store) FindUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("find user %s: %w", id.Hex(), models.ErrNotFound)
	}
	out := *u
	return &out, nil
}

// FindUsers retrieves the users with the given IDs, skipping unknown ones.
func (s *Store) FindUsers(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := *u
			c.Password = ""
			out = append(out, c)
		}
	}
	return out, nil
}

// FindUserByEmail retrieves a user by email.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find user by email: %w", models.ErrNotFound)
}

// CreateUser inserts a user; a taken email is a conflict.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("insert user: %w", models.ErrConflict)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

// ListUsersByRole returns up to limit active users holding one of roles.
func (s *Store) ListUsersByRole(_ context.Context, roles []models.Role, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, u := range s.users {
		if !u.IsActive {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				out = append(out, *u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
