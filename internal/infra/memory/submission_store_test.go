package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-leaderboard/internal/domain"
)

func TestSubmissionStoreFetchAllDefaultsMissingFields(t *testing.T) {
	store := NewSubmissionStore()
	store.PutQuiz(Quiz{ID: "quiz-1"})
	userID := "u1"
	require.NoError(t, store.AddSubmission("quiz-1", "s1", domain.SubmissionDocument{UserID: &userID}))

	records, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "quiz-1", rec.QuizID)
	require.Equal(t, "s1", rec.SubmissionID)
	require.Equal(t, domain.DefaultDepartment, rec.Department)
	require.Equal(t, domain.DefaultRegNumber, rec.RegNumber)
	require.Equal(t, domain.DefaultFullName, rec.FullName)
	require.False(t, rec.HasTimestamp())
}

func TestSubmissionStoreRejectsUnknownQuiz(t *testing.T) {
	store := NewSubmissionStore()
	err := store.AddSubmission("missing", "s1", domain.SubmissionDocument{})
	require.True(t, errors.Is(err, domain.ErrQuizNotFound))
}

func TestSubmissionStoreListenLifecycle(t *testing.T) {
	store := NewSubmissionStore()
	store.PutQuiz(Quiz{ID: "quiz-1"})

	calls := 0
	release, err := store.Listen(context.Background(), func() { calls++ })
	require.NoError(t, err)

	require.NoError(t, store.AddSubmission("quiz-1", "s1", domain.SubmissionDocument{}))
	require.Equal(t, 1, calls)

	release()
	release()
	require.NoError(t, store.AddSubmission("quiz-1", "s2", domain.SubmissionDocument{}))
	require.Equal(t, 1, calls, "expected no signal after release")
}

func TestSubmissionStoreFetchAllHonoursContext(t *testing.T) {
	store := NewSubmissionStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.FetchAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
