package models

import "time"

// QuizMode distinguishes private practice runs from ranked competitive runs.
type QuizMode string

const (
	ModePractice    QuizMode = "practice"
	ModeCompetitive QuizMode = "competitive"
)

// Flag is one entry of the static signal-flag dataset.
type Flag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Meaning  string `json:"meaning"`
	Category string `json:"category"`
}

// Option is one selectable answer of a multiple-choice question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question pairs a flag with a shuffled option set. CorrectOptionID is kept
// server-side and stripped from client payloads.
type Question struct {
	ID              string   `json:"id"`
	FlagID          string   `json:"flag_id"`
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"-"`
}

// AnsweredQuestion records one submitted answer inside a session.
type AnsweredQuestion struct {
	QuestionID       string  `json:"question_id"`
	FlagID           string  `json:"flag_id"`
	SelectedOptionID string  `json:"selected_option_id"`
	CorrectOptionID  string  `json:"correct_option_id"`
	Correct          bool    `json:"correct"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// QuizSession tracks one in-flight quiz run. Competitive sessions carry the
// owning user and a running rating.
type QuizSession struct {
	SessionID            string             `json:"session_id"`
	Mode                 QuizMode           `json:"mode"`
	UserID               string             `json:"user_id,omitempty"`
	Category             string             `json:"category,omitempty"`
	TotalQuestions       int                `json:"total_questions"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	Questions            []Question         `json:"questions"`
	Answers              []AnsweredQuestion `json:"answers"`
	StartTime            time.Time          `json:"start_time"`
	IsActive             bool               `json:"is_active"`
	CurrentRating        float64            `json:"current_rating,omitempty"`
}

// QuizSummary is the immutable finalized view of a completed session.
type QuizSummary struct {
	SessionID        string   `json:"session_id"`
	Mode             QuizMode `json:"mode"`
	UserID           string   `json:"user_id,omitempty"`
	Score            int      `json:"score"`
	TotalQuestions   int      `json:"total_questions"`
	Accuracy         float64  `json:"accuracy"`
	TotalTimeSeconds float64  `json:"total_time_seconds"`
	FinalRating      float64  `json:"final_rating,omitempty"`
}
