package app

import (
	"time"

	"quiz-leaderboard/internal/domain"
)

// FilterByPeriod keeps submissions from the start of the window through now,
// both bounds inclusive. Records stamped after now (clock skew) fall outside
// every bounded window. Records without a timestamp are treated as submitted at now.
// PeriodAllTime returns the input slice unchanged.
func FilterByPeriod(submissions []domain.SubmissionRecord, period domain.TimePeriod, now time.Time) []domain.SubmissionRecord {
	start, ok := periodStart(period, now)
	if !ok {
		return submissions
	}

	filtered := make([]domain.SubmissionRecord, 0, len(submissions))
	for _, s := range submissions {
		at := s.SubmittedAt
		if !s.HasTimestamp() {
			at = now
		}
		if !at.Before(start) && !at.After(now) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// periodStart returns the inclusive window start in now's location.
func periodStart(period domain.TimePeriod, now time.Time) (time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case domain.PeriodToday:
		return midnight, true
	case domain.PeriodThisWeek:
		return midnight.AddDate(0, 0, -int(now.Weekday())), true
	case domain.PeriodThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}
