package models

// Counter is a named monotonically increasing sequence.
type Counter struct {
	ID            string `bson:"_id"`
	SequenceValue int64  `bson:"sequence_value"`
}

const (
	IssueCounterName       = "issueId"
	IssueCounterSeed int64 = 10000
	IssueIDPrefix          = "RMS"
)
