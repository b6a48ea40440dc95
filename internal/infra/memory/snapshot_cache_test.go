package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-leaderboard/internal/domain"
)

func TestSnapshotCacheCaches(t *testing.T) {
	source := &countingSource{SubmissionStore: seededStore(t)}
	cache := NewSnapshotCache(source, time.Minute)

	records, err := cache.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 1, source.calls)

	_, err = cache.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.calls, "expected cache hit")
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	store := seededStore(t)
	source := &countingSource{SubmissionStore: store}
	cache := NewSnapshotCache(source, time.Minute)

	_, err := cache.FetchAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.AddSubmission("quiz-1", "s3", doc("u3", "Physics", 9, 10)))
	require.NoError(t, cache.Invalidate(context.Background()))

	records, err := cache.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, 2, source.calls)
}

func TestSnapshotCacheExpires(t *testing.T) {
	source := &countingSource{SubmissionStore: seededStore(t)}
	cache := NewSnapshotCache(source, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, err := cache.FetchAll(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}

type countingSource struct {
	*SubmissionStore
	calls int
}

func (s *countingSource) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	s.calls++
	return s.SubmissionStore.FetchAll(ctx)
}

func seededStore(t *testing.T) *SubmissionStore {
	t.Helper()
	store := NewSubmissionStore()
	store.PutQuiz(Quiz{ID: "quiz-1", Title: "Kinematics", Department: "Physics"})
	require.NoError(t, store.AddSubmission("quiz-1", "s1", doc("u1", "Physics", 8, 10)))
	require.NoError(t, store.AddSubmission("quiz-1", "s2", doc("u2", "Chemistry", 6, 10)))
	return store
}

func doc(userID, department string, score, total int) domain.SubmissionDocument {
	pct := score * 100 / total
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return domain.SubmissionDocument{
		UserID:      &userID,
		Department:  &department,
		Score:       &score,
		Total:       &total,
		Percentage:  &pct,
		SubmittedAt: &at,
	}
}
