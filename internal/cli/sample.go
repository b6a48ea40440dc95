package cli

import (
	"fmt"
	"time"

	"quiz-leaderboard/internal/domain"
	"quiz-leaderboard/internal/infra/memory"
)

type sampleStudent struct {
	id, reg, name, department string
	percentages               []int
}

// seedSampleData fills the in-memory store for demos; configure postgres.url for real data.
func seedSampleData(store *memory.SubmissionStore) error {
	quizzes := []memory.Quiz{
		{ID: "quiz-mechanics", Title: "Mechanics", Department: "Physics"},
		{ID: "quiz-organic", Title: "Organic Chemistry", Department: "Chemistry"},
	}
	for _, q := range quizzes {
		store.PutQuiz(q)
	}

	students := []sampleStudent{
		{"u-ada", "PHY-001", "Ada Lovelace", "Physics", []int{92, 88, 75}},
		{"u-alan", "PHY-002", "Alan Turing", "Physics", []int{70, 95}},
		{"u-marie", "CHE-001", "Marie Curie", "Chemistry", []int{99, 97, 91, 85}},
		{"u-rosalind", "CHE-002", "Rosalind Franklin", "Chemistry", []int{64, 81}},
	}

	now := time.Now()
	for _, s := range students {
		for i, pct := range s.percentages {
			quiz := quizzes[i%len(quizzes)]
			userID, reg, name, dept := s.id, s.reg, s.name, s.department
			email := s.id[2:] + "@example.edu"
			score, total, spent := pct/5, 20, 300+i*45
			percentage := pct
			at := now.Add(-time.Duration(len(s.percentages)-i) * 26 * time.Hour)
			err := store.AddSubmission(quiz.ID, fmt.Sprintf("%s-%d", s.id, i), domain.SubmissionDocument{
				UserID:      &userID,
				RegNumber:   &reg,
				FullName:    &name,
				Department:  &dept,
				Email:       &email,
				Score:       &score,
				Total:       &total,
				Percentage:  &percentage,
				TimeSpent:   &spent,
				SubmittedAt: &at,
			})
			if err != nil {
				return fmt.Errorf("seed sample data: %w", err)
			}
		}
	}
	return nil
}
