package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-leaderboard/internal/domain"
)

// Quiz is the minimal quiz document the store keeps.
type Quiz struct {
	ID         string
	Title      string
	Department string
}

// SubmissionStore is an in-process document store: quizzes, each with a
// submissions sub-collection. It implements both app.SubmissionSource and
// app.ChangeNotifier.
type SubmissionStore struct {
	mu          sync.RWMutex
	quizzes     map[string]Quiz
	submissions map[string]map[string]domain.SubmissionDocument
	listeners   map[uint64]func()
	nextID      uint64
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		quizzes:     make(map[string]Quiz),
		submissions: make(map[string]map[string]domain.SubmissionDocument),
		listeners:   make(map[uint64]func()),
	}
}

// PutQuiz creates or replaces a quiz document.
func (s *SubmissionStore) PutQuiz(quiz Quiz) {
	s.mu.Lock()
	s.quizzes[quiz.ID] = quiz
	if _, ok := s.submissions[quiz.ID]; !ok {
		s.submissions[quiz.ID] = make(map[string]domain.SubmissionDocument)
	}
	s.mu.Unlock()
	s.notify()
}

// AddSubmission writes a submission under quizID and signals listeners.
func (s *SubmissionStore) AddSubmission(quizID, submissionID string, doc domain.SubmissionDocument) error {
	s.mu.Lock()
	subs, ok := s.submissions[quizID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("add submission %s: %w", submissionID, domain.ErrQuizNotFound)
	}
	subs[submissionID] = doc
	s.mu.Unlock()
	s.notify()
	return nil
}

// FetchAll lists quizzes, then each quiz's submissions. Output is ordered by
// quiz ID then submission ID so repeated reads are identical.
func (s *SubmissionStore) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	quizIDs := make([]string, 0, len(s.quizzes))
	for id := range s.quizzes {
		quizIDs = append(quizIDs, id)
	}
	sort.Strings(quizIDs)

	records := make([]domain.SubmissionRecord, 0)
	for _, quizID := range quizIDs {
		subs := s.submissions[quizID]
		ids := make([]string, 0, len(subs))
		for id := range subs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			records = append(records, subs[id].Record(quizID, id))
		}
	}
	return records, nil
}

// Listen registers onChange until the returned function is called or ctx ends.
func (s *SubmissionStore) Listen(ctx context.Context, onChange func()) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = onChange
	s.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-done:
		}
	}()
	return release, nil
}

func (s *SubmissionStore) notify() {
	s.mu.RLock()
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
