package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createNotifyTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_quiz_submissions_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ChangeChannel + `', TG_TABLE_NAME);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS quizzes_changed ON quizzes;
CREATE TRIGGER quizzes_changed AFTER INSERT OR UPDATE OR DELETE ON quizzes
	FOR EACH STATEMENT EXECUTE FUNCTION notify_quiz_submissions_changed();
DROP TRIGGER IF EXISTS quiz_submissions_changed ON quiz_submissions;
CREATE TRIGGER quiz_submissions_changed AFTER INSERT OR UPDATE OR DELETE ON quiz_submissions
	FOR EACH STATEMENT EXECUTE FUNCTION notify_quiz_submissions_changed()`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createNotifyTriggerSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP FUNCTION IF EXISTS notify_quiz_submissions_changed() CASCADE`)
			return err
		},
	)
}
