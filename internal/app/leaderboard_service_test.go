package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/domain"
)

func newTestService(source app.SubmissionSource, opts app.Options) *app.LeaderboardService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return baseTime }
	}
	return app.NewLeaderboardService(source, opts, zerolog.Nop())
}

func sampleSubmissions() []domain.SubmissionRecord {
	return []domain.SubmissionRecord{
		submission("p1", 90, baseTime.Add(-time.Hour)),
		submission("p2", 70, baseTime.Add(-2*time.Hour)),
		inDepartment(submission("c1", 100, baseTime.Add(-time.Hour)), "Chemistry"),
		inDepartment(submission("c2", 40, baseTime.AddDate(0, -2, 0)), "Chemistry"),
	}
}

func TestGenerateGlobalLeaderboard(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	result := service.GenerateGlobalLeaderboard(context.Background(), domain.RankAverageScore, domain.PeriodAllTime, 10)
	require.Equal(t, domain.Scope{Kind: domain.ScopeGlobal}, result.Scope)
	require.Equal(t, []string{"c1", "p1", "p2", "c2"}, userIDs(result.Users))
	require.Equal(t, 4, result.TotalParticipants)
	require.True(t, result.HasData)
	require.Empty(t, result.Error)
	require.Equal(t, baseTime, result.GeneratedAt)
}

func TestGenerateLeaderboardAppliesLimitAfterCounting(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	result := service.GenerateGlobalLeaderboard(context.Background(), domain.RankAverageScore, domain.PeriodAllTime, 2)
	require.Len(t, result.Users, 2)
	require.Equal(t, 4, result.TotalParticipants)
}

func TestGenerateLeaderboardDefaultLimit(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{DefaultLimit: 3})

	result := service.GenerateGlobalLeaderboard(context.Background(), domain.RankAverageScore, domain.PeriodAllTime, 0)
	require.Len(t, result.Users, 3)
}

func TestGenerateDepartmentLeaderboardFiltersBeforeRanking(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	result, err := service.GenerateDepartmentLeaderboard(context.Background(), "Chemistry", domain.RankAverageScore, domain.PeriodThisMonth, 10)
	require.NoError(t, err)
	require.Equal(t, domain.Scope{Kind: domain.ScopeDepartment, Department: "Chemistry"}, result.Scope)
	require.Equal(t, []string{"c1"}, userIDs(result.Users))
	require.Equal(t, 1, result.Users[0].Rank)
}

func TestGenerateDepartmentLeaderboardNoSubmissions(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	result, err := service.GenerateDepartmentLeaderboard(context.Background(), "Biology", domain.RankAverageScore, domain.PeriodAllTime, 10)
	require.NoError(t, err)
	require.Empty(t, result.Users)
	require.NotNil(t, result.Users)
	require.False(t, result.HasData)
	require.Zero(t, result.TotalParticipants)
	require.Empty(t, result.Error)
}

func TestGenerateDepartmentLeaderboardRequiresDepartment(t *testing.T) {
	source := &staticSource{records: sampleSubmissions()}
	service := newTestService(source, app.Options{})

	_, err := service.GenerateDepartmentLeaderboard(context.Background(), "", domain.RankAverageScore, domain.PeriodAllTime, 10)
	require.ErrorIs(t, err, domain.ErrDepartmentRequired)
	require.Zero(t, source.calls, "expected no fetch")
}

func TestGenerateLeaderboardFailsSoft(t *testing.T) {
	service := newTestService(&staticSource{err: errors.New("permission denied")}, app.Options{})

	result := service.GenerateGlobalLeaderboard(context.Background(), domain.RankTotalScore, domain.PeriodToday, 10)
	require.False(t, result.HasData)
	require.Empty(t, result.Users)
	require.Contains(t, result.Error, "permission denied")
	require.Contains(t, result.Error, domain.ErrSourceUnavailable.Error())
	require.Equal(t, domain.RankTotalScore, result.RankingType)
	require.Equal(t, domain.PeriodToday, result.TimePeriod)
}

func TestGenerateLeaderboardTimesOut(t *testing.T) {
	source := &blockingSource{block: map[int]bool{1: true}}
	service := newTestService(source, app.Options{FetchTimeout: 20 * time.Millisecond})

	result := service.GenerateGlobalLeaderboard(context.Background(), domain.RankAverageScore, domain.PeriodAllTime, 10)
	require.False(t, result.HasData)
	require.Contains(t, result.Error, context.DeadlineExceeded.Error())
}

func TestGetUserPosition(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	pos, err := service.GetUserPosition(context.Background(), "p2", "Physics", domain.RankAverageScore, domain.PeriodAllTime)
	require.NoError(t, err)

	require.NotNil(t, pos.Department)
	require.NotNil(t, pos.Department.Rank)
	require.Equal(t, 2, *pos.Department.Rank)
	require.Equal(t, 2, pos.Department.TotalParticipants)
	require.Equal(t, 70.0, pos.Department.Stats.AveragePercentage)

	require.NotNil(t, pos.Global)
	require.Equal(t, 3, *pos.Global.Rank)
	require.Equal(t, 4, pos.Global.TotalParticipants)
	require.True(t, pos.Global.HasData)
}

func TestGetUserPositionUnknownUser(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	pos, err := service.GetUserPosition(context.Background(), "ghost", "Physics", domain.RankAverageScore, domain.PeriodAllTime)
	require.NoError(t, err)
	require.Nil(t, pos.Department.Rank)
	require.Nil(t, pos.Department.Stats)
	require.Nil(t, pos.Global.Rank)
	require.Nil(t, pos.Global.Stats)
}

func TestGetUserPositionWithoutDepartment(t *testing.T) {
	service := newTestService(&staticSource{records: sampleSubmissions()}, app.Options{})

	pos, err := service.GetUserPosition(context.Background(), "p1", "", domain.RankAverageScore, domain.PeriodAllTime)
	require.NoError(t, err)
	require.Nil(t, pos.Department)
	require.Equal(t, 2, *pos.Global.Rank)
}

func TestGetUserPositionFindsUsersBeyondDefaultLimit(t *testing.T) {
	var subs []domain.SubmissionRecord
	for i := 0; i < 20; i++ {
		subs = append(subs, submission(string(rune('a'+i)), 100-i, baseTime))
	}
	service := newTestService(&staticSource{records: subs}, app.Options{DefaultLimit: 5})

	pos, err := service.GetUserPosition(context.Background(), "t", "", domain.RankAverageScore, domain.PeriodAllTime)
	require.NoError(t, err)
	require.Equal(t, 20, *pos.Global.Rank)
}

func TestInvalidateReachesSource(t *testing.T) {
	source := &invalidatingSource{staticSource: staticSource{records: sampleSubmissions()}}
	service := newTestService(source, app.Options{})

	service.Invalidate(context.Background())
	require.Equal(t, 1, source.invalidations)
}

func TestGenerationRecorded(t *testing.T) {
	rec := &recordingMetrics{}
	service := newTestService(&staticSource{err: errors.New("down")}, app.Options{Recorder: rec})

	_ = service.GenerateGlobalLeaderboard(context.Background(), domain.RankAverageScore, domain.PeriodAllTime, 10)
	require.Equal(t, 1, rec.generations)
	require.Equal(t, 1, rec.failures)
	require.ErrorIs(t, rec.lastErr, domain.ErrSourceUnavailable)
}

type invalidatingSource struct {
	staticSource
	invalidations int
}

func (s *invalidatingSource) Invalidate(context.Context) error {
	s.invalidations++
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	generations int
	failures    int
	lastErr     error
	deliveries  int
	subscribers int
}

func (m *recordingMetrics) ObserveGeneration(_ domain.ScopeKind, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations++
	if err != nil {
		m.failures++
		m.lastErr = err
	}
}

func (m *recordingMetrics) ObserveDelivery(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries++
}

func (m *recordingMetrics) SubscriberDelta(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers += delta
}
