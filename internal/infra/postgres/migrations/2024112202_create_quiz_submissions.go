package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createSubmissionsSQL = `
CREATE TABLE IF NOT EXISTS quiz_submissions (
	id           TEXT PRIMARY KEY,
	quiz_id      TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	user_id      TEXT,
	reg_number   TEXT,
	full_name    TEXT,
	department   TEXT,
	email        TEXT,
	score        INTEGER,
	total        INTEGER,
	percentage   INTEGER,
	time_spent   INTEGER,
	submitted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS quiz_submissions_quiz_id_idx ON quiz_submissions (quiz_id)`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createSubmissionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quiz_submissions`)
			return err
		},
	)
}
