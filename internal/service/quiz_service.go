package service

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/flags"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/config"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
)

// Rating constants for competitive scoring.
const (
	ratingBase          = 400.0
	ratingPerAccuracy   = 10.0
	speedBonusPerSecond = 2.0
	speedBonusClamp     = 150.0
)

// QuizService generates question sets from the static flag dataset and
// tracks in-flight practice and competitive sessions.
type QuizService struct {
	cfg    config.QuizConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*models.QuizSession
	rng      *rand.Rand
}

// NewQuizService constructs the engine.
func NewQuizService(cfg config.QuizConfig, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 10
	}
	if cfg.OptionCount <= 1 {
		cfg.OptionCount = 4
	}
	if cfg.BenchmarkSeconds <= 0 {
		cfg.BenchmarkSeconds = 15
	}
	return &QuizService{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*models.QuizSession),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession draws a fresh question set and opens a session. Competitive
// sessions must carry the owning user.
func (s *QuizService) StartSession(mode models.QuizMode, userID, category string, questionCount int) (*models.QuizSession, error) {
	if mode != models.ModePractice && mode != models.ModeCompetitive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown quiz mode")
	}
	if mode == models.ModeCompetitive && userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "competitive sessions require a user")
	}
	if questionCount <= 0 {
		questionCount = s.cfg.QuestionCount
	}

	questions, err := s.generateQuestions(questionCount, category)
	if err != nil {
		return nil, err
	}

	sessionID, err := gonanoid.New()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session id")
	}

	session := &models.QuizSession{
		SessionID:      sessionID,
		Mode:           mode,
		UserID:         userID,
		Category:       category,
		TotalQuestions: len(questions),
		Questions:      questions,
		StartTime:      time.Now().UTC(),
		IsActive:       true,
	}

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	return session, nil
}

// generateQuestions draws n flags without replacement, then builds each
// question as the correct flag plus distractors drawn without replacement
// from the remaining pool, with option order shuffled.
func (s *QuizService) generateQuestions(n int, category string) ([]models.Question, error) {
	pool := flags.ByCategory(category)
	if len(pool) < s.cfg.OptionCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "not enough flags in category for a question set")
	}
	if n > len(pool) {
		n = len(pool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make([]models.Flag, len(pool))
	copy(selected, pool)
	s.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	selected = selected[:n]

	questions := make([]models.Question, 0, n)
	for i, correct := range selected {
		distractors := make([]models.Flag, 0, len(pool)-1)
		for _, f := range pool {
			if f.ID != correct.ID {
				distractors = append(distractors, f)
			}
		}
		s.rng.Shuffle(len(distractors), func(i, j int) {
			distractors[i], distractors[j] = distractors[j], distractors[i]
		})

		options := make([]models.Option, 0, s.cfg.OptionCount)
		options = append(options, models.Option{ID: correct.ID, Label: correct.Meaning})
		for _, d := range distractors[:s.cfg.OptionCount-1] {
			options = append(options, models.Option{ID: d.ID, Label: d.Meaning})
		}
		s.rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})

		questions = append(questions, models.Question{
			ID:              correct.ID + "-" + strconv.Itoa(i),
			FlagID:          correct.ID,
			Prompt:          correct.Name,
			Options:         options,
			CorrectOptionID: correct.ID,
		})
	}

	return questions, nil
}

// SubmitAnswer records the answer to the session's current question. Score
// moves only on an exact match against the correct option id.
func (s *QuizService) SubmitAnswer(sessionID, selectedOptionID string, timeSpentSeconds float64) (*models.AnsweredQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz session not found")
	}
	if !session.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz session already completed")
	}
	if session.CurrentQuestionIndex >= len(session.Questions) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no questions remaining")
	}
	if timeSpentSeconds < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time spent cannot be negative")
	}

	question := session.Questions[session.CurrentQuestionIndex]
	answer := models.AnsweredQuestion{
		QuestionID:       question.ID,
		FlagID:           question.FlagID,
		SelectedOptionID: selectedOptionID,
		CorrectOptionID:  question.CorrectOptionID,
		Correct:          selectedOptionID == question.CorrectOptionID,
		TimeSpentSeconds: timeSpentSeconds,
	}
	session.Answers = append(session.Answers, answer)
	session.CurrentQuestionIndex++

	if session.Mode == models.ModeCompetitive {
		session.CurrentRating = s.ratingFor(session.Answers, session.TotalQuestions)
	}

	return &answer, nil
}

// CompleteSession finalizes a session into an immutable summary derived
// purely from the accumulated answers.
func (s *QuizService) CompleteSession(sessionID string) (*models.QuizSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz session not found")
	}
	if !session.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "quiz session already completed")
	}
	session.IsActive = false

	summary := Finalize(session, s.cfg.BenchmarkSeconds)
	delete(s.sessions, sessionID)
	return &summary, nil
}

// GetSession returns an in-flight session.
func (s *QuizService) GetSession(sessionID string) (*models.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz session not found")
	}
	return session, nil
}

// Finalize computes the summary of a session from its answers alone.
// benchmarkPerQuestion is the per-question reference time for the speed
// bonus.
func Finalize(session *models.QuizSession, benchmarkPerQuestion float64) models.QuizSummary {
	score := 0
	totalTime := 0.0
	for _, answer := range session.Answers {
		if answer.Correct {
			score++
		}
		totalTime += answer.TimeSpentSeconds
	}

	accuracy := 0.0
	if session.TotalQuestions > 0 {
		accuracy = float64(score) / float64(session.TotalQuestions) * 100
	}

	summary := models.QuizSummary{
		SessionID:        session.SessionID,
		Mode:             session.Mode,
		UserID:           session.UserID,
		Score:            score,
		TotalQuestions:   session.TotalQuestions,
		Accuracy:         accuracy,
		TotalTimeSeconds: totalTime,
	}

	if session.Mode == models.ModeCompetitive {
		benchmark := benchmarkPerQuestion * float64(session.TotalQuestions)
		summary.FinalRating = BaseRating(accuracy) + SpeedBonus(totalTime, benchmark)
	}

	return summary
}

// BaseRating maps accuracy (0-100) onto the rating scale.
func BaseRating(accuracy float64) float64 {
	return ratingBase + accuracy*ratingPerAccuracy
}

// SpeedBonus rewards finishing under the benchmark and penalises exceeding
// it, clamped symmetrically.
func SpeedBonus(totalTime, benchmark float64) float64 {
	bonus := (benchmark - totalTime) * speedBonusPerSecond
	return math.Max(-speedBonusClamp, math.Min(speedBonusClamp, bonus))
}

func (s *QuizService) ratingFor(answers []models.AnsweredQuestion, totalQuestions int) float64 {
	score := 0
	totalTime := 0.0
	for _, a := range answers {
		if a.Correct {
			score++
		}
		totalTime += a.TimeSpentSeconds
	}
	accuracy := 0.0
	if totalQuestions > 0 {
		accuracy = float64(score) / float64(totalQuestions) * 100
	}
	benchmark := s.cfg.BenchmarkSeconds * float64(totalQuestions)
	return BaseRating(accuracy) + SpeedBonus(totalTime, benchmark)
}
