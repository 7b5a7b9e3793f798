package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/config"
	"github.com/signalflags/signalflags-api/pkg/cursor"
)

type mockResultStore struct {
	entries       []models.LeaderboardEntry
	results       []models.PracticeResult
	insertCalls   int
	practiceCalls int
	pageCalls     int
	lastAfter     *cursor.Key
	hasMore       bool
	insertErr     error
	notifications chan struct{}
}

func (m *mockResultStore) InsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error {
	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	entry.ID = "entry-1"
	entry.SubmittedAt = time.Now().UTC()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockResultStore) InsertPracticeResult(ctx context.Context, result *models.PracticeResult) error {
	m.practiceCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	result.ID = "result-1"
	result.CompletedAt = time.Now().UTC()
	m.results = append(m.results, *result)
	return nil
}

func (m *mockResultStore) LeaderboardPage(ctx context.Context, after *cursor.Key, limit int) ([]models.LeaderboardEntry, bool, error) {
	m.pageCalls++
	m.lastAfter = after
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], m.hasMore, nil
}

func (m *mockResultStore) PracticeHistoryPage(ctx context.Context, userID string, sortBy models.HistorySort, after *cursor.Key, limit int) ([]models.PracticeResult, bool, error) {
	m.lastAfter = after
	if limit > len(m.results) {
		limit = len(m.results)
	}
	return m.results[:limit], m.hasMore, nil
}

func (m *mockResultStore) WatchLeaderboard(ctx context.Context) (<-chan struct{}, error) {
	if m.notifications == nil {
		m.notifications = make(chan struct{}, 1)
	}
	return m.notifications, nil
}

func newLeaderboardService(store *mockResultStore) *LeaderboardService {
	codec := cursor.NewCodec("test-secret")
	cfg := config.LeaderboardConfig{DefaultBatchSize: 20, MaxBatchSize: 100}
	return NewLeaderboardService(store, codec, cfg, zap.NewNop())
}

func submitter() *models.User {
	return &models.User{UserID: "u1", Rank: models.RankLieutenant, FirstName: "Sam", LastName: "Carter"}
}

func validSummary() models.QuizSummary {
	return models.QuizSummary{
		SessionID:        "s1",
		Mode:             models.ModeCompetitive,
		UserID:           "u1",
		Score:            8,
		TotalQuestions:   10,
		Accuracy:         80,
		TotalTimeSeconds: 95.5,
		FinalRating:      1234.56,
	}
}

func TestSubmitScoreRoundsRating(t *testing.T) {
	store := &mockResultStore{}
	svc := newLeaderboardService(store)

	result := svc.SubmitScore(context.Background(), submitter(), validSummary())
	require.True(t, result.Success)
	require.Len(t, store.entries, 1)
	assert.Equal(t, 1235, store.entries[0].Rating)

	summary := validSummary()
	summary.FinalRating = 1350.0
	result = svc.SubmitScore(context.Background(), submitter(), summary)
	require.True(t, result.Success)
	assert.Equal(t, 1350, store.entries[1].Rating)
}

func TestSubmitScorePreservesAccuracyAndDenormalizesName(t *testing.T) {
	store := &mockResultStore{}
	svc := newLeaderboardService(store)

	summary := validSummary()
	summary.Accuracy = 87.5

	result := svc.SubmitScore(context.Background(), submitter(), summary)
	require.True(t, result.Success)
	entry := store.entries[0]
	assert.Equal(t, 87.5, entry.Accuracy)
	assert.Equal(t, "LT Sam Carter", entry.DisplayName)
	assert.Equal(t, "entry-1", result.EntryID)
}

func TestSubmitScoreRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.QuizSummary)
		user   *models.User
	}{
		{"missing user", func(s *models.QuizSummary) {}, nil},
		{"accuracy below range", func(s *models.QuizSummary) { s.Accuracy = -1 }, submitter()},
		{"accuracy above range", func(s *models.QuizSummary) { s.Accuracy = 100.1 }, submitter()},
		{"negative total time", func(s *models.QuizSummary) { s.TotalTimeSeconds = -0.5 }, submitter()},
		{"score exceeds questions", func(s *models.QuizSummary) { s.Score = 11 }, submitter()},
		{"negative score", func(s *models.QuizSummary) { s.Score = -1 }, submitter()},
		{"zero questions", func(s *models.QuizSummary) { s.TotalQuestions = 0 }, submitter()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockResultStore{}
			svc := newLeaderboardService(store)

			summary := validSummary()
			tc.mutate(&summary)

			result := svc.SubmitScore(context.Background(), tc.user, summary)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Message)
			// A rejected submission never reaches the write primitive.
			assert.Zero(t, store.insertCalls)
		})
	}
}

func TestSubmitPractice(t *testing.T) {
	store := &mockResultStore{}
	svc := newLeaderboardService(store)

	summary := validSummary()
	summary.Mode = models.ModePractice

	result := svc.SubmitPractice(context.Background(), submitter(), summary, "alphabet")
	require.True(t, result.Success)
	require.Len(t, store.results, 1)
	assert.Equal(t, "alphabet", store.results[0].Category)
}

func TestLeaderboardPaging(t *testing.T) {
	now := time.Now().UTC()
	store := &mockResultStore{hasMore: true}
	for i := 0; i < 3; i++ {
		store.entries = append(store.entries, models.LeaderboardEntry{
			ID:          "e" + string(rune('a'+i)),
			Rating:      1500 - i*10,
			SubmittedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := newLeaderboardService(store)

	page, err := svc.GetLeaderboardInitial(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	// Ranks are assigned by page position starting at 1.
	assert.Equal(t, []int{1, 2, 3}, []int{page.Entries[0].Rank, page.Entries[1].Rank, page.Entries[2].Rank})
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.GetLeaderboardPaginated(context.Background(), page.NextCursor, 3, 4)
	require.NoError(t, err)
	require.NotNil(t, store.lastAfter)
	assert.Equal(t, float64(1480), store.lastAfter.SortValue)
	assert.Equal(t, 4, next.Entries[0].Rank)
}

func TestLeaderboardPaginatedRejectsTamperedCursor(t *testing.T) {
	svc := newLeaderboardService(&mockResultStore{})

	_, err := svc.GetLeaderboardPaginated(context.Background(), "not-a-cursor", 10, 1)
	assert.Error(t, err)
}

func TestPracticeHistoryPaging(t *testing.T) {
	store := &mockResultStore{hasMore: true}
	store.results = append(store.results, models.PracticeResult{
		ID:          "r1",
		Accuracy:    90,
		Score:       9,
		CompletedAt: time.Now().UTC(),
	})
	svc := newLeaderboardService(store)

	t.Run("defaults to completed_at", func(t *testing.T) {
		page, err := svc.GetPracticeHistoryInitial(context.Background(), "u1", "", 1)
		require.NoError(t, err)
		assert.Len(t, page.Entries, 1)
		assert.NotEmpty(t, page.NextCursor)
	})

	t.Run("accuracy sort carries accuracy in the cursor", func(t *testing.T) {
		page, err := svc.GetPracticeHistoryInitial(context.Background(), "u1", models.SortByAccuracy, 1)
		require.NoError(t, err)

		codec := cursor.NewCodec("test-secret")
		key, err := codec.Decode(page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, float64(90), key.SortValue)
	})

	t.Run("rejects unknown sort", func(t *testing.T) {
		_, err := svc.GetPracticeHistoryInitial(context.Background(), "u1", "rating", 1)
		assert.Error(t, err)
	})

	t.Run("requires a user id", func(t *testing.T) {
		_, err := svc.GetPracticeHistoryInitial(context.Background(), "", models.SortByScore, 1)
		assert.Error(t, err)
	})
}

func TestSubscribeTopReceivesSnapshots(t *testing.T) {
	store := &mockResultStore{}
	store.entries = append(store.entries, models.LeaderboardEntry{ID: "e1", Rating: 1400})
	svc := newLeaderboardService(store)

	snapshots := make(chan []models.LeaderboardEntry, 1)
	unsubscribe := svc.SubscribeTop(func(entries []models.LeaderboardEntry) {
		snapshots <- entries
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.StartWatch(ctx))

	store.notifications <- struct{}{}

	select {
	case entries := <-snapshots:
		require.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].Rank)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}
