package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"rms-be/models"
)

// IssueRepository handles issue data access operations.
type IssueRepository struct {
	issues *mongo.Collection
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{issues: db.Collection(IssuesCollection)}
}

// CreateIssue inserts a new issue.
func (r *IssueRepository) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if _, err := r.issues.InsertOne(ctx, issue); err != nil {
		return translate(err, "insert issue")
	}
	return nil
}

// FindIssue retrieves an active issue by its ID.
func (r *IssueRepository) FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.issues.FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&issue)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find issue %s", id.Hex()))
	}
	return &issue, nil
}

// ListIssues returns one page of active issues matching q and the total match count.
func (r *IssueRepository) ListIssues(ctx context.Context, q models.IssueQuery) ([]models.Issue, int64, error) {
	filter := issueFilter(q)

	order := -1
	if q.Order == "asc" {
		order = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: q.SortBy, Value: order}, {Key: "_id", Value: order}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	var (
		issues []models.Issue
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := r.issues.Find(gctx, filter, findOptions)
		if err != nil {
			return fmt.Errorf("find issues: %w", err)
		}
		defer cursor.Close(gctx)
		return cursor.All(gctx, &issues)
	})
	g.Go(func() error {
		n, err := r.issues.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("count issues: %w", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues, total, nil
}

func issueFilter(q models.IssueQuery) bson.M {
	filter := bson.M{"isActive": true}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"issueId": pattern},
		}
	}
	return filter
}

// UpdateIssue applies m to the active issue as a single document update, so
// status, assignee and history entries are committed together. It returns
// ErrConflict when the issue exists but no longer satisfies m's precondition.
func (r *IssueRepository) UpdateIssue(ctx context.Context, id primitive.ObjectID, m models.IssueMutation) (*models.Issue, error) {
	filter := bson.M{"_id": id, "isActive": true}
	if m.ExpectStatus != "" {
		filter["status"] = m.ExpectStatus
	}
	if m.CheckAssignee {
		filter["assignedTo"] = m.ExpectAssignedTo
	}

	set := bson.M{"updatedAt": m.UpdatedAt}
	if m.Status != nil {
		set["status"] = *m.Status
	}
	if m.Priority != nil {
		set["priority"] = *m.Priority
	}
	if m.SetAssignee {
		set["assignedTo"] = m.AssignedTo
	}
	if m.EstimatedCost != nil {
		set["estimatedCost"] = *m.EstimatedCost
	}
	update := bson.M{"$set": set}
	if len(m.History) > 0 {
		update["$push"] = bson.M{"history": bson.M{"$each": m.History}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue models.Issue
	err := r.issues.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.FindIssue(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("update issue %s: %w", id.Hex(), models.ErrConflict)
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("update issue %s", id.Hex()))
	}
	return &issue, nil
}

// DeactivateIssue soft-deletes an issue.
func (r *IssueRepository) DeactivateIssue(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.issues.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": at}})
	if err != nil {
		return translate(err, fmt.Sprintf("deactivate issue %s", id.Hex()))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("deactivate issue %s: %w", id.Hex(), models.ErrNotFound)
	}
	return nil
}

// IssueStats computes the public dashboard counters.
func (r *IssueRepository) IssueStats(ctx context.Context) (*models.IssueStats, error) {
	var stats models.IssueStats
	active := bson.M{"isActive": true}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, filter bson.M) {
		g.Go(func() error {
			n, err := r.issues.CountDocuments(gctx, filter)
			if err != nil {
				return fmt.Errorf("count issues: %w", err)
			}
			*dst = n
			return nil
		})
	}
	count(&stats.Overview.Total, active)
	count(&stats.Overview.Pending, bson.M{"isActive": true, "status": models.StatusPending})
	count(&stats.Overview.Resolved, bson.M{"isActive": true, "status": models.StatusResolved})
	count(&stats.Overview.InProgress, bson.M{"isActive": true, "status": bson.M{
		"$in": bson.A{models.StatusInProgress, models.StatusAssigned},
	}})
	g.Go(func() error {
		buckets, err := r.groupCount(gctx, "$category")
		stats.CategoryStats = buckets
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminIssueStats computes the administrative dashboard, with monthly trends
// starting at since. Recent issues are returned unexpanded.
func (r *IssueRepository) AdminIssueStats(ctx context.Context, since time.Time) (*models.AdminStats, error) {
	var stats models.AdminStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.issues.CountDocuments(gctx, bson.M{"isActive": true})
		stats.Overview.Total = n
		return err
	})
	g.Go(func() error {
		buckets, err := r.groupCount(gctx, "$status")
		stats.StatusStats = buckets
		return err
	})
	g.Go(func() error {
		buckets, err := r.groupCount(gctx, "$priority")
		stats.PriorityStats = buckets
		return err
	})
	g.Go(func() error {
		buckets, err := r.groupCount(gctx, "$category")
		stats.CategoryStats = buckets
		return err
	})
	g.Go(func() error {
		cursor, err := r.issues.Find(gctx, bson.M{"isActive": true},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(10))
		if err != nil {
			return err
		}
		defer cursor.Close(gctx)
		recent := []models.Issue{}
		if err := cursor.All(gctx, &recent); err != nil {
			return err
		}
		stats.RecentIssues = models.NewIssueViews(recent)
		return nil
	})
	g.Go(func() error {
		trends, err := r.monthlyTrends(gctx, since)
		stats.MonthlyTrends = trends
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &stats, nil
}

func (r *IssueRepository) groupCount(ctx context.Context, field string) ([]models.CountByKey, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group issues by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	buckets := []models.CountByKey{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("decode %s buckets: %w", field, err)
	}
	return buckets, nil
}

func (r *IssueRepository) monthlyTrends(ctx context.Context, since time.Time) ([]models.MonthlyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true, "createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"year": bson.M{"$year": "$createdAt"}, "month": bson.M{"$month": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
	}
	cursor, err := r.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer cursor.Close(ctx)

	trends := []models.MonthlyCount{}
	if err := cursor.All(ctx, &trends); err != nil {
		return nil, fmt.Errorf("decode monthly trends: %w", err)
	}
	return trends, nil
}
