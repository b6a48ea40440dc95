package migrations

import "github.com/uptrace/bun/migrate"

// ChangeChannel is the NOTIFY channel raised whenever quizzes or submissions change.
const ChangeChannel = "quiz_submissions_changed"

var Migrations = migrate.NewMigrations()
