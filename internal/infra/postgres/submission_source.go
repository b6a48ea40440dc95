package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-leaderboard/internal/domain"
)

const listQuizzesSQL = `SELECT id FROM quizzes ORDER BY id`

const listSubmissionsSQL = `
SELECT id, user_id, reg_number, full_name, department, email,
       score, total, percentage, time_spent, submitted_at
FROM quiz_submissions
WHERE quiz_id = $1
ORDER BY id`

// SubmissionSource reads submissions from Postgres: quizzes first, then each
// quiz's submissions in a single batch round trip.
type SubmissionSource struct {
	pool *pgxpool.Pool
}

func NewSubmissionSource(pool *pgxpool.Pool) *SubmissionSource {
	return &SubmissionSource{pool: pool}
}

func (s *SubmissionSource) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	quizIDs, err := s.listQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	if len(quizIDs) == 0 {
		return []domain.SubmissionRecord{}, nil
	}

	batch := &pgx.Batch{}
	for _, id := range quizIDs {
		batch.Queue(listSubmissionsSQL, id)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	records := make([]domain.SubmissionRecord, 0)
	for _, quizID := range quizIDs {
		rows, err := br.Query()
		if err != nil {
			return nil, fmt.Errorf("list submissions for quiz %s: %w", quizID, err)
		}
		records, err = scanSubmissions(rows, quizID, records)
		if err != nil {
			return nil, fmt.Errorf("scan submissions for quiz %s: %w", quizID, err)
		}
	}
	return records, nil
}

func (s *SubmissionSource) listQuizzes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, listQuizzesSQL)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return ids, nil
}

func scanSubmissions(rows pgx.Rows, quizID string, into []domain.SubmissionRecord) ([]domain.SubmissionRecord, error) {
	defer rows.Close()
	for rows.Next() {
		var (
			id  string
			doc domain.SubmissionDocument
			at  *time.Time
		)
		if err := rows.Scan(
			&id, &doc.UserID, &doc.RegNumber, &doc.FullName, &doc.Department, &doc.Email,
			&doc.Score, &doc.Total, &doc.Percentage, &doc.TimeSpent, &at,
		); err != nil {
			return into, err
		}
		doc.SubmittedAt = at
		into = append(into, doc.Record(quizID, id))
	}
	return into, rows.Err()
}
