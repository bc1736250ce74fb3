package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"rms-be/models"
)

// IssueIDGenerator mints human-readable issue identifiers such as RMS10001.
type IssueIDGenerator struct {
	counters CounterStore
	now      func() time.Time
}

// NewIssueIDGenerator creates a new IssueIDGenerator.
func NewIssueIDGenerator(counters CounterStore) *IssueIDGenerator {
	return &IssueIDGenerator{counters: counters, now: time.Now}
}

// Next returns the next identifier. When the counter store is unreachable it
// falls back to an identifier derived from the current epoch milliseconds,
// which is not guaranteed unique under concurrent calls.
func (g *IssueIDGenerator) Next(ctx context.Context) string {
	seq, err := g.counters.NextSequence(ctx, models.IssueCounterName, models.IssueCounterSeed)
	if err != nil {
		fallback := models.IssueIDPrefix + strconv.FormatInt(g.now().UnixMilli(), 10)
		slog.Error("issue id counter unavailable, using timestamp id", "error", err, "issue_id", fallback)
		return fallback
	}
	return models.IssueIDPrefix + strconv.FormatInt(seq, 10)
}
