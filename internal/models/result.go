package models

import "time"

// LeaderboardEntry is an append-only snapshot of one completed competitive
// session; never mutated after creation.
type LeaderboardEntry struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	DisplayName      string    `bson:"display_name" json:"display_name"`
	SessionID        string    `bson:"session_id" json:"session_id"`
	Rating           int       `bson:"rating" json:"rating"`
	Score            int       `bson:"score" json:"score"`
	TotalQuestions   int       `bson:"total_questions" json:"total_questions"`
	Accuracy         float64   `bson:"accuracy" json:"accuracy"`
	TotalTimeSeconds float64   `bson:"total_time_seconds" json:"total_time_seconds"`
	SubmittedAt      time.Time `bson:"submitted_at" json:"submitted_at"`

	// Rank is assigned by page position during reads, never stored.
	Rank int `bson:"-" json:"rank,omitempty"`
}

// PracticeResult is an append-only record of one completed practice session,
// readable only by its owner.
type PracticeResult struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	SessionID        string    `bson:"session_id" json:"session_id"`
	Score            int       `bson:"score" json:"score"`
	TotalQuestions   int       `bson:"total_questions" json:"total_questions"`
	Accuracy         float64   `bson:"accuracy" json:"accuracy"`
	TotalTimeSeconds float64   `bson:"total_time_seconds" json:"total_time_seconds"`
	Category         string    `bson:"category,omitempty" json:"category,omitempty"`
	CompletedAt      time.Time `bson:"completed_at" json:"completed_at"`
}

// SubmitResult is the structured outcome of a score submission; validation
// failures are carried here rather than thrown.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	EntryID string `json:"entry_id,omitempty"`
}

// HistorySort names the sortable practice-history fields.
type HistorySort string

const (
	SortByCompletedAt HistorySort = "completed_at"
	SortByAccuracy    HistorySort = "accuracy"
	SortByScore       HistorySort = "score"
)

// ValidHistorySort reports whether s is a supported sort field.
func ValidHistorySort(s HistorySort) bool {
	switch s {
	case SortByCompletedAt, SortByAccuracy, SortByScore:
		return true
	}
	return false
}

// Page is one batch of a cursor-paged result set.
type Page[T any] struct {
	Entries    []T
	NextCursor string
	HasMore    bool
}
