package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
)

// VoteResult is the outcome of a cast vote and the issue after it.
type VoteResult struct {
	Action models.VoteAction `json:"action"`
	Issue  *models.Issue     `json:"issue"`
}

// VoteLedger enforces one vote per user per issue and keeps the upvote tally.
type VoteLedger struct {
	issues IssueStore
	votes  VoteStore
	now    func() time.Time
}

// NewVoteLedger creates a new VoteLedger.
func NewVoteLedger(issues IssueStore, votes VoteStore) *VoteLedger {
	return &VoteLedger{issues: issues, votes: votes, now: time.Now}
}

// CastVote records voteType from voterID on issueID. Repeating the current
// vote removes it; switching type updates it in place.
func (l *VoteLedger) CastVote(ctx context.Context, voterID, issueID primitive.ObjectID, voteType models.VoteType) (*VoteResult, error) {
	if !voteType.Valid() {
		return nil, models.NewValidationError("vote", "Invalid vote type")
	}
	if _, err := l.issues.FindIssue(ctx, issueID); err != nil {
		return nil, err
	}

	existing, err := l.votes.FindVote(ctx, voterID, issueID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	m := planVote(existing, voterID, issueID, voteType, l.now())
	issue, err := l.votes.ApplyVote(ctx, m)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Action: m.Action, Issue: issue}, nil
}

// planVote decides the vote change and tally delta. Only upvotes move the tally.
func planVote(existing *models.Vote, voterID, issueID primitive.ObjectID, voteType models.VoteType, now time.Time) models.VoteMutation {
	if existing == nil {
		m := models.VoteMutation{
			Action: models.VoteAdded,
			Vote: models.Vote{
				ID:        primitive.NewObjectID(),
				UserID:    voterID,
				IssueID:   issueID,
				Vote:      voteType,
				CreatedAt: now,
				UpdatedAt: now,
			},
			At: now,
		}
		if voteType == models.Upvote {
			m.TallyDelta = 1
		}
		return m
	}

	m := models.VoteMutation{Vote: *existing, PreviousType: existing.Vote, At: now}
	if existing.Vote == voteType {
		m.Action = models.VoteRemoved
		if voteType == models.Upvote {
			m.TallyDelta = -1
		}
		return m
	}

	m.Action = models.VoteUpdated
	m.Vote.Vote = voteType
	m.Vote.UpdatedAt = now
	if voteType == models.Upvote {
		m.TallyDelta = 1
	} else {
		m.TallyDelta = -1
	}
	return m
}
