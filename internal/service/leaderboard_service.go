package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/config"
	"github.com/signalflags/signalflags-api/pkg/cursor"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
)

type resultStore interface {
	InsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error
	InsertPracticeResult(ctx context.Context, result *models.PracticeResult) error
	LeaderboardPage(ctx context.Context, after *cursor.Key, limit int) ([]models.LeaderboardEntry, bool, error)
	PracticeHistoryPage(ctx context.Context, userID string, sortBy models.HistorySort, after *cursor.Key, limit int) ([]models.PracticeResult, bool, error)
	WatchLeaderboard(ctx context.Context) (<-chan struct{}, error)
}

// LeaderboardService submits validated result documents and pages ranked
// or per-user result sets using opaque continuation cursors.
type LeaderboardService struct {
	store   resultStore
	codec   *cursor.Codec
	cfg     config.LeaderboardConfig
	logger  *zap.Logger
	metrics *MetricsService

	mu       sync.Mutex
	watchers map[int]func([]models.LeaderboardEntry)
	nextID   int
}

// NewLeaderboardService constructs the read path.
func NewLeaderboardService(store resultStore, codec *cursor.Codec, cfg config.LeaderboardConfig, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 20
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	return &LeaderboardService{
		store:    store,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
		watchers: make(map[int]func([]models.LeaderboardEntry)),
	}
}

// UseMetrics attaches read-path instrumentation.
func (s *LeaderboardService) UseMetrics(m *MetricsService) {
	s.metrics = m
}

// SubmitScore validates and appends a competitive result. Validation
// failures come back as a structured result and never reach the write
// primitive.
func (s *LeaderboardService) SubmitScore(ctx context.Context, user *models.User, summary models.QuizSummary) models.SubmitResult {
	if msg := validateSubmission(user, summary); msg != "" {
		return models.SubmitResult{Success: false, Message: msg}
	}

	entry := &models.LeaderboardEntry{
		UserID:           user.UserID,
		DisplayName:      user.DisplayName(),
		SessionID:        summary.SessionID,
		Rating:           int(math.Round(summary.FinalRating)),
		Score:            summary.Score,
		TotalQuestions:   summary.TotalQuestions,
		Accuracy:         summary.Accuracy,
		TotalTimeSeconds: summary.TotalTimeSeconds,
	}

	if err := s.store.InsertLeaderboardEntry(ctx, entry); err != nil {
		s.logger.Error("failed to submit score", zap.String("user_id", user.UserID), zap.Error(err))
		return models.SubmitResult{Success: false, Message: appErrors.FromError(err).Message}
	}
	return models.SubmitResult{Success: true, EntryID: entry.ID}
}

// SubmitPractice validates and appends a practice result for one user.
func (s *LeaderboardService) SubmitPractice(ctx context.Context, user *models.User, summary models.QuizSummary, category string) models.SubmitResult {
	if msg := validateSubmission(user, summary); msg != "" {
		return models.SubmitResult{Success: false, Message: msg}
	}

	result := &models.PracticeResult{
		UserID:           user.UserID,
		SessionID:        summary.SessionID,
		Score:            summary.Score,
		TotalQuestions:   summary.TotalQuestions,
		Accuracy:         summary.Accuracy,
		TotalTimeSeconds: summary.TotalTimeSeconds,
		Category:         category,
	}

	if err := s.store.InsertPracticeResult(ctx, result); err != nil {
		s.logger.Error("failed to submit practice result", zap.String("user_id", user.UserID), zap.Error(err))
		return models.SubmitResult{Success: false, Message: appErrors.FromError(err).Message}
	}
	return models.SubmitResult{Success: true, EntryID: result.ID}
}

func validateSubmission(user *models.User, summary models.QuizSummary) string {
	if user == nil || user.UserID == "" {
		return "a signed-in user is required to submit results"
	}
	if summary.Accuracy < 0 || summary.Accuracy > 100 {
		return fmt.Sprintf("accuracy %.2f is outside the 0-100 range", summary.Accuracy)
	}
	if summary.TotalTimeSeconds < 0 {
		return "total time cannot be negative"
	}
	if summary.TotalQuestions <= 0 {
		return "total questions must be positive"
	}
	if summary.Score < 0 || summary.Score > summary.TotalQuestions {
		return fmt.Sprintf("score %d is not possible with %d questions", summary.Score, summary.TotalQuestions)
	}
	return ""
}

// GetLeaderboardInitial reads the first page, ranked from 1.
func (s *LeaderboardService) GetLeaderboardInitial(ctx context.Context, batchSize int) (*models.Page[models.LeaderboardEntry], error) {
	return s.leaderboardPage(ctx, nil, batchSize, 1)
}

// GetLeaderboardPaginated resumes after an opaque cursor. Rank numbers are
// assigned by page position offset by startingRank; they stay correct only
// while pages are consumed in order.
func (s *LeaderboardService) GetLeaderboardPaginated(ctx context.Context, cursorToken string, batchSize, startingRank int) (*models.Page[models.LeaderboardEntry], error) {
	key, err := s.codec.Decode(cursorToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid continuation cursor")
	}
	if startingRank < 1 {
		startingRank = 1
	}
	return s.leaderboardPage(ctx, &key, batchSize, startingRank)
}

func (s *LeaderboardService) leaderboardPage(ctx context.Context, after *cursor.Key, batchSize, startingRank int) (*models.Page[models.LeaderboardEntry], error) {
	batchSize = s.clampBatch(batchSize)

	start := time.Now()
	entries, hasMore, err := s.store.LeaderboardPage(ctx, after, batchSize)
	s.metrics.ObservePageRead("leaderboard", time.Since(start))
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Rank = startingRank + i
	}

	page := &models.Page[models.LeaderboardEntry]{Entries: entries, HasMore: hasMore}
	if hasMore && len(entries) > 0 {
		last := entries[len(entries)-1]
		token, err := s.codec.Encode(cursor.Key{SortValue: float64(last.Rating), Time: last.SubmittedAt, ID: last.ID})
		if err != nil {
			return nil, err
		}
		page.NextCursor = token
	}
	return page, nil
}

// GetPracticeHistoryInitial reads the first page of one user's results.
func (s *LeaderboardService) GetPracticeHistoryInitial(ctx context.Context, userID string, sortBy models.HistorySort, batchSize int) (*models.Page[models.PracticeResult], error) {
	return s.practicePage(ctx, userID, sortBy, nil, batchSize)
}

// GetPracticeHistoryPaginated resumes a history read after a cursor.
func (s *LeaderboardService) GetPracticeHistoryPaginated(ctx context.Context, userID string, sortBy models.HistorySort, cursorToken string, batchSize int) (*models.Page[models.PracticeResult], error) {
	key, err := s.codec.Decode(cursorToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid continuation cursor")
	}
	return s.practicePage(ctx, userID, sortBy, &key, batchSize)
}

func (s *LeaderboardService) practicePage(ctx context.Context, userID string, sortBy models.HistorySort, after *cursor.Key, batchSize int) (*models.Page[models.PracticeResult], error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a user id is required for history reads")
	}
	if sortBy == "" {
		sortBy = models.SortByCompletedAt
	}
	if !models.ValidHistorySort(sortBy) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported history sort field")
	}
	batchSize = s.clampBatch(batchSize)

	start := time.Now()
	results, hasMore, err := s.store.PracticeHistoryPage(ctx, userID, sortBy, after, batchSize)
	s.metrics.ObservePageRead("practice_results", time.Since(start))
	if err != nil {
		return nil, err
	}

	page := &models.Page[models.PracticeResult]{Entries: results, HasMore: hasMore}
	if hasMore && len(results) > 0 {
		last := results[len(results)-1]
		key := cursor.Key{Time: last.CompletedAt, ID: last.ID}
		switch sortBy {
		case models.SortByAccuracy:
			key.SortValue = last.Accuracy
		case models.SortByScore:
			key.SortValue = float64(last.Score)
		}
		token, err := s.codec.Encode(key)
		if err != nil {
			return nil, err
		}
		page.NextCursor = token
	}
	return page, nil
}

func (s *LeaderboardService) clampBatch(batchSize int) int {
	if batchSize <= 0 {
		return s.cfg.DefaultBatchSize
	}
	if batchSize > s.cfg.MaxBatchSize {
		return s.cfg.MaxBatchSize
	}
	return batchSize
}

// SubscribeTop registers a callback receiving a full replacement snapshot
// of the top page on every leaderboard change. The returned function
// cancels the subscription.
func (s *LeaderboardService) SubscribeTop(fn func([]models.LeaderboardEntry)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// StartWatch consumes the store's change notifications, re-reading the top
// page and fanning a replacement snapshot out to subscribers. Runs until
// ctx is cancelled.
func (s *LeaderboardService) StartWatch(ctx context.Context) error {
	notifications, err := s.store.WatchLeaderboard(ctx)
	if err != nil {
		return err
	}

	go func() {
		for range notifications {
			page, err := s.GetLeaderboardInitial(ctx, s.cfg.DefaultBatchSize)
			if err != nil {
				s.logger.Warn("leaderboard watch re-read failed", zap.Error(err))
				continue
			}
			s.mu.Lock()
			fns := make([]func([]models.LeaderboardEntry), 0, len(s.watchers))
			for _, fn := range s.watchers {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(page.Entries)
			}
		}
	}()

	return nil
}
