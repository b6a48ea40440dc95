package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-leaderboard/internal/domain"
)

var baseTime = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // a Wednesday

func submission(userID string, pct int, at time.Time) domain.SubmissionRecord {
	return domain.SubmissionRecord{
		SubmissionID: fmt.Sprintf("%s-%d-%d", userID, pct, at.UnixNano()),
		QuizID:       "quiz-1",
		UserID:       userID,
		RegNumber:    "REG-" + userID,
		FullName:     "User " + userID,
		Department:   "Physics",
		Score:        pct / 10,
		Total:        10,
		Percentage:   pct,
		SubmittedAt:  at,
	}
}

func inDepartment(r domain.SubmissionRecord, department string) domain.SubmissionRecord {
	r.Department = department
	return r
}

// staticSource serves a fixed submission list.
type staticSource struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
	err     error
	calls   int
}

func (s *staticSource) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// blockingSource waits for ctx to end on calls whose number is in block.
type blockingSource struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
	block   map[int]bool
	calls   int
	started chan int
}

func (s *blockingSource) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	blocked := s.block[n]
	s.mu.Unlock()
	if s.started != nil {
		s.started <- n
	}
	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.records, nil
}
