package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/config"
)

func newExportService(store *mockResultStore, enabled bool) *ExportService {
	leaderboard := newLeaderboardService(store)
	return NewExportService(leaderboard, config.ExportsConfig{Enabled: enabled, MaxRows: 100}, zap.NewNop())
}

func TestExportStandingsCSV(t *testing.T) {
	store := &mockResultStore{}
	store.entries = append(store.entries, models.LeaderboardEntry{
		ID:               "e1",
		DisplayName:      "LT Sam Carter",
		Rating:           1337,
		Score:            9,
		TotalQuestions:   10,
		Accuracy:         90,
		TotalTimeSeconds: 84.2,
		SubmittedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	})
	svc := newExportService(store, true)

	data, filename, contentType, err := svc.ExportStandings(context.Background(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	body := string(data)
	assert.Contains(t, body, "Rank,Name,Rating")
	assert.Contains(t, body, "LT Sam Carter")
	assert.Contains(t, body, "1337")
	assert.Contains(t, body, "9/10")
}

func TestExportStandingsPDF(t *testing.T) {
	store := &mockResultStore{}
	store.entries = append(store.entries, models.LeaderboardEntry{ID: "e1", DisplayName: "CAPT Dana Reyes", Rating: 1500})
	svc := newExportService(store, true)

	data, _, contentType, err := svc.ExportStandings(context.Background(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportStandingsGuards(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc := newExportService(&mockResultStore{}, false)
		_, _, _, err := svc.ExportStandings(context.Background(), FormatCSV)
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := newExportService(&mockResultStore{}, true)
		_, _, _, err := svc.ExportStandings(context.Background(), "xlsx")
		assert.Error(t, err)
	})
}
