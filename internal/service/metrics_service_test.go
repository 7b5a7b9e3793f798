package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalflags/signalflags-api/internal/models"
)

func histogramSamples(t *testing.T, m *MetricsService, name string) uint64 {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)

	var total uint64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetHistogram().GetSampleCount()
		}
	}
	return total
}

func TestObservePageReadRecordsSamples(t *testing.T) {
	m := NewMetricsService()
	m.ObservePageRead("leaderboard", 5*time.Millisecond)
	m.ObservePageRead("practice_results", 7*time.Millisecond)

	assert.Equal(t, uint64(2), histogramSamples(t, m, "leaderboard_page_read_seconds"))
}

func TestObserveStorageOpRecordsSamples(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStorageOp("get", time.Millisecond)
	m.ObserveStorageOp("set", time.Millisecond)
	m.ObserveStorageOp("set", time.Millisecond)

	assert.Equal(t, uint64(3), histogramSamples(t, m, "device_storage_op_seconds"))
}

func TestLeaderboardReadsFeedPageReadHistogram(t *testing.T) {
	store := &mockResultStore{}
	store.entries = append(store.entries, models.LeaderboardEntry{ID: "e1", Rating: 1500, SubmittedAt: time.Now().UTC()})
	svc := newLeaderboardService(store)

	m := NewMetricsService()
	svc.UseMetrics(m)

	_, err := svc.GetLeaderboardInitial(context.Background(), 10)
	require.NoError(t, err)
	_, err = svc.GetPracticeHistoryInitial(context.Background(), "u1", models.SortByCompletedAt, 10)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), histogramSamples(t, m, "leaderboard_page_read_seconds"))
}

func TestMetricsMethodsAreNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/x", 200, time.Millisecond)
		m.RecordSessionStarted("practice")
		m.RecordSessionCompleted("practice")
		m.RecordSubmission("leaderboard", true)
		m.ObservePageRead("leaderboard", time.Millisecond)
		m.ObserveStorageOp("get", time.Millisecond)
	})
}
