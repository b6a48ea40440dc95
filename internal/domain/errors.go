package domain

import "errors"

var (
	// ErrDepartmentRequired is returned when a department leaderboard is requested without a department.
	ErrDepartmentRequired = errors.New("department is required")
	// ErrQuizNotFound indicates a submission was written against an unknown quiz.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSourceUnavailable indicates the submission source could not be reached.
	ErrSourceUnavailable = errors.New("submission source unavailable")
)
